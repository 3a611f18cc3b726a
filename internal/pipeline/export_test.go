package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"quotescan/internal"
	"quotescan/internal/util"
)

func TestExportReportsToXLSX(t *testing.T) {
	reports := []internal.LineReport{
		{
			LineNo: 1, RawText: "Roma One-Way Switch 6A - 2", CleanedText: "roma one-way switch 6a",
			Qty: 2, Tier: internal.TierExact, Confidence: 1.0,
			ProductID: util.IntPtr(1), ProductName: util.StringPtr("Roma One-Way Switch 6A"),
			Alternatives: []internal.Suggestion{{ProductID: 1, ProductName: "Roma One-Way Switch 6A", Score: 1.0}},
		},
		{
			LineNo: 2, RawText: "xzqv blorp", CleanedText: "xzqv blorp",
			Qty: 1, Tier: internal.TierNone, RequiresReview: true,
			ReviewNote:   "no catalog match; enter manually or skip",
			Alternatives: []internal.Suggestion{},
		},
	}

	path := filepath.Join(t.TempDir(), "out", "review.xlsx")
	if err := ExportReportsToXLSX(reports, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d", len(rows))
	}
	if rows[0][0] != "line_no" || rows[0][4] != "tier" {
		t.Fatalf("header: %v", rows[0])
	}
	if rows[1][4] != "exact" || rows[1][7] != "Roma One-Way Switch 6A" {
		t.Fatalf("row 1: %v", rows[1])
	}
	if rows[2][4] != "none" {
		t.Fatalf("row 2: %v", rows[2])
	}
}

func TestExportQuotationToXLSX(t *testing.T) {
	q := internal.Quotation{
		Number: "QT-20260829-0001",
		Status: internal.StatusDraft,
		Items: []internal.QuotationLineItem{
			{Description: "Roma One-Way Switch 6A", Qty: 2, UnitPrice: 120, TaxPct: 18, NetPrice: 240, TaxAmount: 43.2, LineTotal: 283.2},
		},
		Subtotal:   240,
		TotalTax:   43.2,
		GrandTotal: 283.2,
	}

	path := filepath.Join(t.TempDir(), "quote.xlsx")
	if err := ExportQuotationToXLSX(q, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	number, _ := f.GetCellValue(sheet, "B1")
	if number != "QT-20260829-0001" {
		t.Fatalf("number=%q", number)
	}
	desc, _ := f.GetCellValue(sheet, "A5")
	if desc != "Roma One-Way Switch 6A" {
		t.Fatalf("desc=%q", desc)
	}
	grand, _ := f.GetCellValue(sheet, "B10")
	if grand != "283.2" {
		t.Fatalf("grand=%q", grand)
	}
}
