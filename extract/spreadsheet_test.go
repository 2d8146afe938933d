package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write buffer: %v", err)
	}
	return buf.Bytes()
}

func TestParse_StandardQuoteSheet(t *testing.T) {
	data := buildSheet(t, [][]interface{}{
		{"ACME Controls - Quotation 2025-11"},
		{"Name", "Manufacturer", "Part Number", "Unit Price ($)", "Notes"},
		{"SIMATIC S7-1200 CPU", "Siemens", "6ES7214-1AG40", "512.50", "lead time 4w"},
		{"PowerFlex 525 Drive", "Allen-Bradley", "25B-D010N104", "1,204.00", ""},
		{"", "", "", "", ""},
	})

	var e SpreadsheetExtractor
	result, err := e.Parse(context.Background(), "quote.xlsx", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !result.Success {
		t.Fatalf("Success = false, warnings: %+v", result.Warnings)
	}
	if len(result.Components) != 2 {
		t.Fatalf("got %d components, want 2", len(result.Components))
	}
	if result.Metadata.Currency != models.CurrencyUSD {
		t.Errorf("Currency = %s, want USD from the header hint", result.Metadata.Currency)
	}

	first := result.Components[0]
	if first.Name != "SIMATIC S7-1200 CPU" || first.Manufacturer != "Siemens" || first.ManufacturerPN != "6ES7214-1AG40" {
		t.Errorf("first component = %+v", first)
	}
	if first.Prices.Usd == nil || !first.Prices.Usd.Equal(decimal.RequireFromString("512.5")) {
		t.Errorf("first price = %v, want 512.5", first.Prices.Usd)
	}
	if first.Notes != "lead time 4w" {
		t.Errorf("Notes = %q", first.Notes)
	}
	if first.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 with all four fields present", first.Confidence)
	}

	second := result.Components[1]
	if second.Prices.Usd == nil || !second.Prices.Usd.Equal(decimal.RequireFromString("1204")) {
		t.Errorf("second price = %v, want 1204 (thousands separator stripped)", second.Prices.Usd)
	}
}

func TestParse_MSRPAndPartnerColumns(t *testing.T) {
	data := buildSheet(t, [][]interface{}{
		{"Name", "Manufacturer", "MSRP ($)", "Partner Price"},
		{"HMI Panel 7\"", "Siemens", "120", "90"},
	})

	var e SpreadsheetExtractor
	result, err := e.Parse(context.Background(), "quote.xlsx", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !result.Success || len(result.Components) != 1 {
		t.Fatalf("components = %d, warnings: %+v", len(result.Components), result.Warnings)
	}

	c := result.Components[0]
	if c.MsrpPrice == nil || !c.MsrpPrice.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("MsrpPrice = %v, want 120", c.MsrpPrice)
	}
	if c.MsrpCurrency != models.CurrencyUSD {
		t.Errorf("MsrpCurrency = %s, want USD", c.MsrpCurrency)
	}
	if c.Prices.Usd == nil || !c.Prices.Usd.Equal(decimal.NewFromInt(90)) {
		t.Errorf("partner price = %v, want 90", c.Prices.Usd)
	}
	if c.PartnerDiscountPercent == nil || !c.PartnerDiscountPercent.Equal(decimal.NewFromInt(25)) {
		t.Errorf("PartnerDiscountPercent = %v, want 25", c.PartnerDiscountPercent)
	}
}

func TestParse_HebrewSheetFixesPartNumbers(t *testing.T) {
	data := buildSheet(t, [][]interface{}{
		{"תיאור", "יצרן", "מקט", "מחיר (₪)"},
		{"בקר SIMATIC", "Siemens", ".00KD2240.", "1850"},
	})

	var e SpreadsheetExtractor
	result, err := e.Parse(context.Background(), "quote.xlsx", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !result.Success || len(result.Components) != 1 {
		t.Fatalf("components = %d, warnings: %+v", len(result.Components), result.Warnings)
	}
	if result.Metadata.Currency != models.CurrencyNIS {
		t.Errorf("Currency = %s, want NIS", result.Metadata.Currency)
	}

	c := result.Components[0]
	// bidi extraction reversed the run order; the parser repairs it
	if c.ManufacturerPN != "2240.KD.00" {
		t.Errorf("ManufacturerPN = %q, want 2240.KD.00", c.ManufacturerPN)
	}
	if c.Prices.Nis == nil || !c.Prices.Nis.Equal(decimal.NewFromInt(1850)) {
		t.Errorf("price = %v, want 1850 NIS", c.Prices.Nis)
	}
}

func TestParse_NoRecognizableHeader(t *testing.T) {
	data := buildSheet(t, [][]interface{}{
		{"just", "some", "cells"},
		{"1", "2", "3"},
	})

	var e SpreadsheetExtractor
	result, err := e.Parse(context.Background(), "quote.xlsx", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.Success {
		t.Fatal("Success = true for a sheet without a header")
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Type != "no_header" {
		t.Errorf("Warnings = %+v, want one no_header warning", result.Warnings)
	}
}

func TestParse_HeaderButNoRows(t *testing.T) {
	data := buildSheet(t, [][]interface{}{
		{"Name", "Manufacturer", "Part Number", "Price"},
	})

	var e SpreadsheetExtractor
	result, err := e.Parse(context.Background(), "quote.xlsx", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.Success {
		t.Fatal("Success = true for a sheet with no data rows")
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Type != "empty" {
		t.Errorf("Warnings = %+v, want one empty warning", result.Warnings)
	}
}

func TestParse_NotASpreadsheet(t *testing.T) {
	var e SpreadsheetExtractor
	if _, err := e.Parse(context.Background(), "quote.xlsx", []byte("not an xlsx")); err == nil {
		t.Fatal("expected error for a non-xlsx payload")
	}
}

func TestParse_RowConfidenceReflectsMissingFields(t *testing.T) {
	data := buildSheet(t, [][]interface{}{
		{"Name", "Manufacturer", "Part Number", "Price"},
		{"Cable tray", "", "", ""},
	})

	var e SpreadsheetExtractor
	result, err := e.Parse(context.Background(), "quote.xlsx", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Components) != 1 {
		t.Fatalf("components = %d, want 1", len(result.Components))
	}
	if got := result.Components[0].Confidence; got != 0.25 {
		t.Errorf("Confidence = %v, want 0.25 (name only)", got)
	}
	if fmt.Sprintf("%.2f", result.Confidence) != "0.25" {
		t.Errorf("overall Confidence = %v, want 0.25", result.Confidence)
	}
}
