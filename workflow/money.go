package workflow

import (
	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/shopspring/decimal"
)

// Money is a tagged price value: an amount in one stated currency.
type Money struct {
	Currency models.CurrencyCode `json:"currency"`
	Amount   decimal.Decimal     `json:"amount"`
}

// PriceSet is the three-currency record. A nil field means "not computed,
// do not trust stale values" - distinct from an explicit zero.
type PriceSet struct {
	Nis *decimal.Decimal `json:"nis,omitempty"`
	Usd *decimal.Decimal `json:"usd,omitempty"`
	Eur *decimal.Decimal `json:"eur,omitempty"`
}

func (p PriceSet) Get(c models.CurrencyCode) *decimal.Decimal {
	switch c {
	case models.CurrencyNIS:
		return p.Nis
	case models.CurrencyUSD:
		return p.Usd
	case models.CurrencyEUR:
		return p.Eur
	}
	return nil
}

func (p *PriceSet) Set(c models.CurrencyCode, v decimal.Decimal) {
	switch c {
	case models.CurrencyNIS:
		p.Nis = &v
	case models.CurrencyUSD:
		p.Usd = &v
	case models.CurrencyEUR:
		p.Eur = &v
	}
}

// FirstNonEmpty returns the authoritative value in NIS, USD, EUR priority
// order.
func (p PriceSet) FirstNonEmpty() (Money, bool) {
	if p.Nis != nil {
		return Money{Currency: models.CurrencyNIS, Amount: *p.Nis}, true
	}
	if p.Usd != nil {
		return Money{Currency: models.CurrencyUSD, Amount: *p.Usd}, true
	}
	if p.Eur != nil {
		return Money{Currency: models.CurrencyEUR, Amount: *p.Eur}, true
	}
	return Money{}, false
}

func (p PriceSet) IsEmpty() bool {
	return p.Nis == nil && p.Usd == nil && p.Eur == nil
}
