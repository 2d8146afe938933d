package workflow

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/shopspring/decimal"
)

func testRates() models.ExchangeRates {
	return models.ExchangeRates{
		Nis: decimal.RequireFromString("3.7"),
		Usd: decimal.NewFromInt(1),
		Eur: decimal.RequireFromString("0.92"),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalizePrices_ConvertsMissingCurrencies(t *testing.T) {
	var prices PriceSet
	prices.Set(models.CurrencyNIS, dec("370"))

	got, err := NormalizePrices(prices, models.CurrencyNIS, testRates())
	if err != nil {
		t.Fatalf("NormalizePrices: %v", err)
	}

	if !got.Nis.Equal(dec("370")) {
		t.Errorf("Nis = %s, want 370 (supplied value untouched)", got.Nis)
	}
	if !got.Usd.Equal(dec("100")) {
		t.Errorf("Usd = %s, want 100", got.Usd)
	}
	if !got.Eur.Equal(dec("92")) {
		t.Errorf("Eur = %s, want 92", got.Eur)
	}
	if got.Currency != models.CurrencyNIS {
		t.Errorf("Currency = %s, want NIS", got.Currency)
	}
	if !got.OriginalCost.Equal(dec("370")) {
		t.Errorf("OriginalCost = %s, want 370", got.OriginalCost)
	}
}

func TestNormalizePrices_KeepsAllSuppliedValues(t *testing.T) {
	// Supplied values win even when they disagree with the exchange factors.
	var prices PriceSet
	prices.Set(models.CurrencyNIS, dec("400"))
	prices.Set(models.CurrencyUSD, dec("100"))

	got, err := NormalizePrices(prices, models.CurrencyUSD, testRates())
	if err != nil {
		t.Fatalf("NormalizePrices: %v", err)
	}
	if !got.Nis.Equal(dec("400")) {
		t.Errorf("Nis = %s, want supplied 400, not converted", got.Nis)
	}
	if !got.Eur.Equal(dec("92")) {
		t.Errorf("Eur = %s, want 92 converted from the USD value", got.Eur)
	}
}

func TestNormalizePrices_BlankCurrencyUsesPriorityOrder(t *testing.T) {
	var prices PriceSet
	prices.Set(models.CurrencyEUR, dec("92"))

	got, err := NormalizePrices(prices, "", testRates())
	if err != nil {
		t.Fatalf("NormalizePrices: %v", err)
	}
	if got.Currency != models.CurrencyEUR {
		t.Errorf("Currency = %s, want EUR (only non-empty field)", got.Currency)
	}
	if !got.Usd.Equal(dec("100")) {
		t.Errorf("Usd = %s, want 100", got.Usd)
	}
}

func TestNormalizePrices_EmptySet(t *testing.T) {
	_, err := NormalizePrices(PriceSet{}, models.CurrencyUSD, testRates())
	if !errors.Is(err, ErrorNoPrice) {
		t.Fatalf("err = %v, want ErrorNoPrice", err)
	}
}

func TestNormalizePrices_ZeroFactor(t *testing.T) {
	var prices PriceSet
	prices.Set(models.CurrencyNIS, dec("370"))

	_, err := NormalizePrices(prices, models.CurrencyNIS, models.ExchangeRates{})
	if err == nil {
		t.Fatal("expected error for zero exchange factor")
	}
}

func TestComputePartnerFromMSRP(t *testing.T) {
	got := ComputePartnerFromMSRP(dec("100"), models.CurrencyUSD, dec("25"))

	if got.Usd == nil || !got.Usd.Equal(dec("75")) {
		t.Errorf("Usd = %v, want 75", got.Usd)
	}
	if got.Nis != nil || got.Eur != nil {
		t.Errorf("Nis/Eur = %v/%v, want nil (other currencies not computed)", got.Nis, got.Eur)
	}
}

func TestComputePartnerFromMSRP_MarginNotClamped(t *testing.T) {
	// Negative margin is a markup.
	got := ComputePartnerFromMSRP(dec("100"), models.CurrencyUSD, dec("-10"))
	if got.Usd == nil || !got.Usd.Equal(dec("110")) {
		t.Errorf("margin -10: Usd = %v, want 110", got.Usd)
	}

	// Margin above 100 inverts the sign.
	got = ComputePartnerFromMSRP(dec("100"), models.CurrencyUSD, dec("150"))
	if got.Usd == nil || !got.Usd.Equal(dec("-50")) {
		t.Errorf("margin 150: Usd = %v, want -50", got.Usd)
	}
}

func TestComputeDiscountFromPrices(t *testing.T) {
	discount, ok := ComputeDiscountFromPrices(dec("120"), dec("90"))
	if !ok {
		t.Fatal("expected a defined discount")
	}
	if !discount.Equal(dec("25")) {
		t.Errorf("discount = %s, want 25", discount)
	}
}

func TestComputeDiscountFromPrices_UndefinedForNonPositiveMSRP(t *testing.T) {
	if _, ok := ComputeDiscountFromPrices(decimal.Zero, dec("90")); ok {
		t.Error("msrp 0: discount must be undefined, not zero")
	}
	if _, ok := ComputeDiscountFromPrices(dec("-5"), dec("90")); ok {
		t.Error("negative msrp: discount must be undefined")
	}
}

func TestMarginDiscountRoundTrip(t *testing.T) {
	for _, margin := range []string{"0", "12.5", "25", "40", "99"} {
		msrp := dec("200")
		partner := ComputePartnerFromMSRP(msrp, models.CurrencyNIS, dec(margin))
		discount, ok := ComputeDiscountFromPrices(msrp, *partner.Get(models.CurrencyNIS))
		if !ok {
			t.Fatalf("margin %s: discount undefined", margin)
		}
		if !discount.Equal(dec(margin)) {
			t.Errorf("margin %s: round-tripped discount = %s", margin, discount)
		}
	}
}
