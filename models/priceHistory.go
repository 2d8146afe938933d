package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceHistory is one observed price for a component, tied to the quote
// document it came from. At most one row per component carries
// is_current_price = 1 at any time.
type PriceHistory struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id" binding:"required"`
	ComponentId     int             `gorm:"index;not null" json:"component_id" binding:"required"`
	QuoteId         int             `gorm:"index;not null" json:"quote_id"`
	UnitPriceNis    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price_nis"`
	UnitPriceUsd    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price_usd"`
	UnitPriceEur    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price_eur"`
	Currency        CurrencyCode    `gorm:"size:3" json:"currency"`
	QuoteDate       time.Time       `json:"quote_date"`
	SupplierName    string          `gorm:"size:100" json:"supplier_name"`
	ConfidenceScore float64         `json:"confidence_score"`
	IsCurrentPrice  *bool           `gorm:"not null;default:false;index" json:"is_current_price"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPriceHistory struct {
	UnitPriceNis    decimal.Decimal `json:"unit_price_nis"`
	UnitPriceUsd    decimal.Decimal `json:"unit_price_usd"`
	UnitPriceEur    decimal.Decimal `json:"unit_price_eur"`
	Currency        CurrencyCode    `json:"currency"`
	QuoteDate       time.Time       `json:"quote_date"`
	SupplierName    string          `json:"supplier_name"`
	ConfidenceScore float64         `json:"confidence_score"`
	IsCurrentPrice  bool            `json:"is_current_price"`
}

// AppendPriceHistory inserts one history row. When the new row is flagged
// current, the previous current flag for the component is cleared in the
// same transaction so the single-current invariant holds at commit.
func AppendPriceHistory(ctx context.Context, componentId int, quoteId int, input *NewPriceHistory) (*PriceHistory, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateResourceId[Component](ctx, businessId, componentId); err != nil {
		return nil, err
	}

	isCurrent := utils.NewFalse()
	if input.IsCurrentPrice {
		isCurrent = utils.NewTrue()
	}

	entry := PriceHistory{
		BusinessId:      businessId,
		ComponentId:     componentId,
		QuoteId:         quoteId,
		UnitPriceNis:    input.UnitPriceNis,
		UnitPriceUsd:    input.UnitPriceUsd,
		UnitPriceEur:    input.UnitPriceEur,
		Currency:        input.Currency,
		QuoteDate:       input.QuoteDate,
		SupplierName:    input.SupplierName,
		ConfidenceScore: input.ConfidenceScore,
		IsCurrentPrice:  isCurrent,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IsCurrentPrice {
			if err := clearCurrentPriceFlagTx(tx, businessId, componentId); err != nil {
				return err
			}
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func clearCurrentPriceFlagTx(tx *gorm.DB, businessId string, componentId int) error {
	return tx.Model(&PriceHistory{}).
		Where("business_id = ? AND component_id = ? AND is_current_price = 1", businessId, componentId).
		Update("is_current_price", false).Error
}

// ClearCurrentPriceFlag clears the current flag on every history row for the
// component.
func ClearCurrentPriceFlag(ctx context.Context, componentId int) error {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}

	db := config.GetDB()
	return clearCurrentPriceFlagTx(db.WithContext(ctx), businessId, componentId)
}

func GetCurrentPrice(ctx context.Context, componentId int) (*PriceHistory, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var entry PriceHistory
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("business_id = ? AND component_id = ? AND is_current_price = 1", businessId, componentId).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func ListPriceHistory(ctx context.Context, componentId int) ([]PriceHistory, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var entries []PriceHistory
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("business_id = ? AND component_id = ?", businessId, componentId).
		Order("quote_date DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
