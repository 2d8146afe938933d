package workflow

import (
	"context"

	"github.com/mmdatafocus/quoting_backend/models"
)

// Repository is the persistence surface the finalizer writes through.
// The production implementation is GormRepository; tests substitute an
// in-memory fake.
type Repository interface {
	CreateQuoteRecord(ctx context.Context, input *models.NewQuote) (*models.Quote, error)
	CreateComponent(ctx context.Context, input *models.NewComponent) (*models.Component, error)
	UpdateComponentPrices(ctx context.Context, id int, prices models.ComponentPrices) error
	ClearCurrentPriceFlag(ctx context.Context, componentId int) error
	AppendPriceHistory(ctx context.Context, componentId int, quoteId int, input *models.NewPriceHistory) (*models.PriceHistory, error)
}

// RateSource supplies current exchange factors. Consumed only by the price
// normalizer.
type RateSource func(ctx context.Context) (models.ExchangeRates, error)

// GormRepository delegates to the models package (gorm + MySQL).
type GormRepository struct{}

func (GormRepository) CreateQuoteRecord(ctx context.Context, input *models.NewQuote) (*models.Quote, error) {
	return models.CreateQuoteRecord(ctx, input)
}

func (GormRepository) CreateComponent(ctx context.Context, input *models.NewComponent) (*models.Component, error) {
	return models.CreateComponent(ctx, input)
}

func (GormRepository) UpdateComponentPrices(ctx context.Context, id int, prices models.ComponentPrices) error {
	return models.UpdateComponentPrices(ctx, id, prices)
}

func (GormRepository) ClearCurrentPriceFlag(ctx context.Context, componentId int) error {
	return models.ClearCurrentPriceFlag(ctx, componentId)
}

func (GormRepository) AppendPriceHistory(ctx context.Context, componentId int, quoteId int, input *models.NewPriceHistory) (*models.PriceHistory, error) {
	return models.AppendPriceHistory(ctx, componentId, quoteId, input)
}
