package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/utils"
)

// Quote is the persisted record of one imported supplier document.
type Quote struct {
	ID              int          `gorm:"primary_key" json:"id"`
	BusinessId      string       `gorm:"index;not null" json:"business_id" binding:"required"`
	SupplierName    string       `gorm:"size:100" json:"supplier_name"`
	QuoteDate       time.Time    `json:"quote_date"`
	DocumentType    DocumentType `gorm:"size:20" json:"document_type"`
	SourceObjectKey string       `gorm:"size:255" json:"source_object_key"`
	Currency        CurrencyCode `gorm:"size:3" json:"currency"`
	Confidence      float64      `json:"confidence"`
	Status          QuoteStatus  `gorm:"size:20;not null;default:'draft'" json:"status"`
	CreatedAt       time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewQuote struct {
	SupplierName    string       `json:"supplier_name"`
	QuoteDate       time.Time    `json:"quote_date"`
	DocumentType    DocumentType `json:"document_type"`
	SourceObjectKey string       `json:"source_object_key"`
	Currency        CurrencyCode `json:"currency"`
	Confidence      float64      `json:"confidence"`
}

func CreateQuoteRecord(ctx context.Context, input *NewQuote) (*Quote, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	quoteDate := input.QuoteDate
	if quoteDate.IsZero() {
		quoteDate = time.Now().UTC()
	}

	quote := Quote{
		BusinessId:      businessId,
		SupplierName:    input.SupplierName,
		QuoteDate:       quoteDate,
		DocumentType:    input.DocumentType,
		SourceObjectKey: input.SourceObjectKey,
		Currency:        input.Currency,
		Confidence:      input.Confidence,
		Status:          QuoteStatusImported,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}
