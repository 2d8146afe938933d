package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

type CurrencyCode string

const (
	CurrencyNIS CurrencyCode = "NIS"
	CurrencyUSD CurrencyCode = "USD"
	CurrencyEUR CurrencyCode = "EUR"
)

func (c CurrencyCode) IsValid() bool {
	switch c {
	case CurrencyNIS, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

func (c CurrencyCode) Value() (driver.Value, error) {
	if c == "" {
		return nil, nil
	}
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid currency code %q", string(c))
	}
	return string(c), nil
}

func (c *CurrencyCode) Scan(value interface{}) error {
	if value == nil {
		*c = ""
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*c = CurrencyCode(v)
	case string:
		*c = CurrencyCode(v)
	default:
		return errors.New("currency code must be string")
	}
	return nil
}

type ComponentType string

const (
	ComponentTypeHardware ComponentType = "hardware"
	ComponentTypeSoftware ComponentType = "software"
	ComponentTypeLabor    ComponentType = "labor"
)

func (t ComponentType) IsValid() bool {
	switch t {
	case ComponentTypeHardware, ComponentTypeSoftware, ComponentTypeLabor:
		return true
	}
	return false
}

type DocumentType string

const (
	DocumentTypeSpreadsheet DocumentType = "spreadsheet"
	DocumentTypePdf         DocumentType = "pdf"
	DocumentTypeImage       DocumentType = "image"
)

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusImported QuoteStatus = "imported"
)

// DefaultCategoryName is the sentinel bucket for candidates imported
// without an explicit category.
const DefaultCategoryName = "Other"
