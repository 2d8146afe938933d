package extract

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/mmdatafocus/quoting_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// SpreadsheetExtractor parses supplier quote sheets (xlsx). Column layout is
// discovered from a header row; supported layouts carry either a single
// price column or an MSRP/partner dual column pair.
type SpreadsheetExtractor struct{}

const headerScanRows = 10

type columnMap struct {
	name         int
	manufacturer int
	pn           int
	price        int
	msrp         int
	partner      int
	notes        int
	headerRow    int
	currency     models.CurrencyCode
}

// header synonyms, lowercased. Hebrew synonyms cover the common supplier
// sheets that arrive in RTL documents.
var headerSynonyms = map[string][]string{
	"name":         {"name", "description", "item", "product", "component", "תיאור", "פריט"},
	"manufacturer": {"manufacturer", "mfr", "brand", "vendor", "יצרן"},
	"pn":           {"part number", "part no", "p/n", "pn", "mpn", "sku", "catalog", "מקט", `מק"ט`},
	"price":        {"price", "unit price", "cost", "unit cost", "מחיר"},
	"msrp":         {"msrp", "list price", "list", "retail", "מחיר מחירון", "מחירון"},
	"partner":      {"partner price", "partner", "net price", "dealer price", "מחיר שותף"},
	"notes":        {"notes", "remarks", "comment", "הערות"},
}

func (SpreadsheetExtractor) Parse(ctx context.Context, filename string, data []byte) (*Result, error) {

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	result := &Result{
		Metadata: Metadata{DocumentType: models.DocumentTypeSpreadsheet},
	}

	cols, ok := detectColumns(rows)
	if !ok {
		result.Warnings = append(result.Warnings, Warning{
			Type:    "no_header",
			Message: "could not locate a header row with recognizable columns",
		})
		return result, nil
	}
	result.Metadata.Currency = cols.currency

	rtl := sheetHasHebrew(rows)

	var confidenceSum float64
	for i := cols.headerRow + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate, conf, ok := parseRow(rows[i], cols, rtl)
		if !ok {
			continue
		}
		confidenceSum += conf
		result.Components = append(result.Components, candidate)
	}

	if len(result.Components) == 0 {
		result.Warnings = append(result.Warnings, Warning{
			Type:    "empty",
			Message: "no data rows found below the header",
		})
		return result, nil
	}

	result.Success = true
	result.Confidence = confidenceSum / float64(len(result.Components))
	return result, nil
}

func detectColumns(rows [][]string) (columnMap, bool) {
	for r := 0; r < len(rows) && r < headerScanRows; r++ {
		cols := columnMap{name: -1, manufacturer: -1, pn: -1, price: -1, msrp: -1, partner: -1, notes: -1, headerRow: r}
		hits := 0
		for c, cell := range rows[r] {
			key, currency := classifyHeader(cell)
			if currency != "" && cols.currency == "" {
				cols.currency = currency
			}
			switch key {
			case "name":
				if cols.name < 0 {
					cols.name = c
					hits++
				}
			case "manufacturer":
				if cols.manufacturer < 0 {
					cols.manufacturer = c
					hits++
				}
			case "pn":
				if cols.pn < 0 {
					cols.pn = c
					hits++
				}
			case "price":
				if cols.price < 0 {
					cols.price = c
					hits++
				}
			case "msrp":
				if cols.msrp < 0 {
					cols.msrp = c
					hits++
				}
			case "partner":
				if cols.partner < 0 {
					cols.partner = c
					hits++
				}
			case "notes":
				if cols.notes < 0 {
					cols.notes = c
				}
			}
		}
		if cols.name >= 0 && hits >= 2 {
			return cols, true
		}
	}
	return columnMap{}, false
}

func classifyHeader(cell string) (string, models.CurrencyCode) {
	folded := strings.ToLower(strings.TrimSpace(cell))
	if folded == "" {
		return "", ""
	}
	currency := currencyHint(folded)
	// longest-synonym wins so "partner price" beats "price"
	best, bestLen := "", 0
	for key, synonyms := range headerSynonyms {
		for _, syn := range synonyms {
			if strings.Contains(folded, syn) && len(syn) > bestLen {
				best, bestLen = key, len(syn)
			}
		}
	}
	return best, currency
}

func currencyHint(s string) models.CurrencyCode {
	switch {
	case strings.Contains(s, "$") || strings.Contains(s, "usd"):
		return models.CurrencyUSD
	case strings.Contains(s, "₪") || strings.Contains(s, "nis") || strings.Contains(s, "ils") || strings.Contains(s, `ש"ח`):
		return models.CurrencyNIS
	case strings.Contains(s, "€") || strings.Contains(s, "eur"):
		return models.CurrencyEUR
	}
	return ""
}

func parseRow(row []string, cols columnMap, rtl bool) (workflow.CandidateComponent, float64, bool) {

	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	name := cell(cols.name)
	if name == "" {
		return workflow.CandidateComponent{}, 0, false
	}

	candidate := workflow.CandidateComponent{
		Name:          name,
		Manufacturer:  cell(cols.manufacturer),
		ComponentType: models.ComponentTypeHardware,
		Notes:         cell(cols.notes),
		Currency:      cols.currency,
	}

	pn := cell(cols.pn)
	if rtl && pn != "" {
		// Bidi extraction reverses the run order of embedded LTR part
		// numbers; the fix is involutory so a clean PN round-trips.
		pn = workflow.FixPartNumberDirection(pn)
	}
	candidate.ManufacturerPN = pn

	fieldsPresent := 1.0 // name
	fieldsTotal := 4.0

	if candidate.Manufacturer != "" {
		fieldsPresent++
	}
	if candidate.ManufacturerPN != "" {
		fieldsPresent++
	}

	priced := false
	if v, ok := parsePrice(cell(cols.price)); ok {
		candidate.Prices.Set(currencyOrUSD(cols.currency), v)
		priced = true
	}

	if msrp, ok := parsePrice(cell(cols.msrp)); ok {
		m := msrp
		candidate.MsrpPrice = &m
		candidate.MsrpCurrency = currencyOrUSD(cols.currency)
		if partner, ok := parsePrice(cell(cols.partner)); ok {
			candidate.Prices.Set(candidate.MsrpCurrency, partner)
			priced = true
			if discount, ok := workflow.ComputeDiscountFromPrices(msrp, partner); ok {
				candidate.PartnerDiscountPercent = &discount
			}
		}
	}

	if priced {
		fieldsPresent++
	}

	candidate.Confidence = fieldsPresent / fieldsTotal
	return candidate, candidate.Confidence, true
}

func parsePrice(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Decimal{}, false
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r == ',':
			return -1
		default:
			return -1
		}
	}, s)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return decimal.Decimal{}, false
	}
	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}

func currencyOrUSD(c models.CurrencyCode) models.CurrencyCode {
	if c == "" {
		return models.CurrencyUSD
	}
	return c
}

func sheetHasHebrew(rows [][]string) bool {
	for _, row := range rows {
		for _, cell := range row {
			for _, r := range cell {
				if r >= 0x0590 && r <= 0x05FF {
					return true
				}
			}
		}
	}
	return false
}
