package workflow

import (
	"errors"

	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/shopspring/decimal"
)

// NormalizedPrices is the fully populated three-currency record persisted
// downstream. OriginalCost always equals the value in Currency.
type NormalizedPrices struct {
	Nis          decimal.Decimal     `json:"nis"`
	Usd          decimal.Decimal     `json:"usd"`
	Eur          decimal.Decimal     `json:"eur"`
	Currency     models.CurrencyCode `json:"currency"`
	OriginalCost decimal.Decimal     `json:"original_cost"`
}

var ErrorNoPrice = errors.New("no price supplied in any currency")

var oneHundred = decimal.NewFromInt(100)

// NormalizePrices converts a partially populated price set into a fully
// populated three-currency record using the given exchange factors
// (units per USD). Currencies already supplied by the caller are kept
// untouched; only missing fields are converted. The authoritative value is
// the one in the stated currency, or the first non-empty of NIS/USD/EUR in
// that priority order when currency is blank.
func NormalizePrices(prices PriceSet, currency models.CurrencyCode, rates models.ExchangeRates) (NormalizedPrices, error) {

	authoritative, ok := Money{}, false
	if currency != "" {
		if v := prices.Get(currency); v != nil {
			authoritative, ok = Money{Currency: currency, Amount: *v}, true
		}
	}
	if !ok {
		authoritative, ok = prices.FirstNonEmpty()
	}
	if !ok {
		return NormalizedPrices{}, ErrorNoPrice
	}

	factor := func(c models.CurrencyCode) decimal.Decimal {
		switch c {
		case models.CurrencyNIS:
			return rates.Nis
		case models.CurrencyEUR:
			return rates.Eur
		default:
			return rates.Usd
		}
	}

	authFactor := factor(authoritative.Currency)
	if authFactor.IsZero() {
		return NormalizedPrices{}, errors.New("exchange factor is zero for " + string(authoritative.Currency))
	}
	inUsd := authoritative.Amount.Div(authFactor)

	valueIn := func(c models.CurrencyCode) decimal.Decimal {
		if supplied := prices.Get(c); supplied != nil {
			return *supplied
		}
		return inUsd.Mul(factor(c)).Round(4)
	}

	return NormalizedPrices{
		Nis:          valueIn(models.CurrencyNIS),
		Usd:          valueIn(models.CurrencyUSD),
		Eur:          valueIn(models.CurrencyEUR),
		Currency:     authoritative.Currency,
		OriginalCost: authoritative.Amount,
	}, nil
}

// ComputePartnerFromMSRP derives the partner (cost) price from a list price:
// partner = msrp x (1 - margin/100). Only the field matching msrpCurrency is
// populated in the returned set; the other two are left nil, signaling "not
// computed, do not trust stale values".
//
// The margin is deliberately not clamped to [0,100]: a negative margin is a
// markup and a margin above 100 inverts the sign of the partner price.
// Clamping, where wanted, is a presentation concern.
func ComputePartnerFromMSRP(msrpPrice decimal.Decimal, msrpCurrency models.CurrencyCode, marginPercent decimal.Decimal) PriceSet {

	partner := msrpPrice.Mul(decimal.NewFromInt(1).Sub(marginPercent.Div(oneHundred))).Round(4)

	var out PriceSet
	out.Set(msrpCurrency, partner)
	return out
}

// ComputeDiscountFromPrices reports the discount percent implied by an
// MSRP/partner price pair, rounded to 2 decimal places. The second return is
// false when msrp is zero or negative: the discount is undefined then, not
// zero.
func ComputeDiscountFromPrices(msrpPrice decimal.Decimal, partnerPrice decimal.Decimal) (decimal.Decimal, bool) {

	if msrpPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, false
	}
	discount := msrpPrice.Sub(partnerPrice).Div(msrpPrice).Mul(oneHundred).Round(2)
	return discount, true
}
