package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/shopspring/decimal"
)

// ExchangeRate stores one fetched rate: units of Currency per one USD.
type ExchangeRate struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Currency  CurrencyCode    `gorm:"size:3;not null;index" json:"currency"`
	Rate      decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"rate"`
	FetchedAt time.Time       `gorm:"index" json:"fetched_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// ExchangeRates is the factor set consumed by the price normalizer:
// units of each currency per one USD.
type ExchangeRates struct {
	Nis decimal.Decimal `json:"nis"`
	Usd decimal.Decimal `json:"usd"`
	Eur decimal.Decimal `json:"eur"`
}

const exchangeRatesCacheKey = "exchange_rates:latest"
const exchangeRatesCacheTTL = time.Hour

// DefaultExchangeRates is the fallback factor set when no rates were ever
// stored or the rate source is unreachable.
func DefaultExchangeRates() ExchangeRates {
	return ExchangeRates{
		Nis: decimal.NewFromFloat(3.7),
		Usd: decimal.NewFromInt(1),
		Eur: decimal.NewFromFloat(0.92),
	}
}

// GetLatestExchangeRates returns the freshest stored rate per currency,
// through a redis cache. Consumed only by the price normalizer.
func GetLatestExchangeRates(ctx context.Context) (ExchangeRates, error) {

	var cached ExchangeRates
	if ok, err := config.GetRedisObject(exchangeRatesCacheKey, &cached); err == nil && ok {
		return cached, nil
	}

	rates := DefaultExchangeRates()

	db := config.GetDB()
	if db == nil {
		return rates, nil
	}

	var rows []ExchangeRate
	err := db.WithContext(ctx).Raw(`
		SELECT er.*
		FROM exchange_rates er
		JOIN (
			SELECT currency, MAX(fetched_at) AS fetched_at
			FROM exchange_rates
			GROUP BY currency
		) latest ON latest.currency = er.currency AND latest.fetched_at = er.fetched_at
	`).Scan(&rows).Error
	if err != nil {
		return rates, err
	}

	for _, row := range rows {
		switch row.Currency {
		case CurrencyNIS:
			rates.Nis = row.Rate
		case CurrencyUSD:
			rates.Usd = row.Rate
		case CurrencyEUR:
			rates.Eur = row.Rate
		}
	}

	_ = config.SetRedisObject(exchangeRatesCacheKey, rates, exchangeRatesCacheTTL)
	return rates, nil
}

// StoreExchangeRates persists a fetched factor set and invalidates the cache.
func StoreExchangeRates(ctx context.Context, rates ExchangeRates) error {

	db := config.GetDB()
	if db == nil {
		return errors.New("database not initialized")
	}

	now := time.Now().UTC()
	rows := []ExchangeRate{
		{Currency: CurrencyNIS, Rate: rates.Nis, FetchedAt: now},
		{Currency: CurrencyUSD, Rate: rates.Usd, FetchedAt: now},
		{Currency: CurrencyEUR, Rate: rates.Eur, FetchedAt: now},
	}
	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}

	return config.RemoveRedisKey(exchangeRatesCacheKey)
}
