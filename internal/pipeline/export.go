package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"quotescan/internal"
)

// ExportReportsToXLSX writes one row per line report for the human
// review step.
func ExportReportsToXLSX(reports []internal.LineReport, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "raw_text", "cleaned_text", "qty",
		"tier", "confidence", "product_id", "product_name",
		"requires_review", "review_note", "alt1_name", "alt1_score", "alt2_name", "alt2_score",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, report := range reports {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, report.LineNo)
		set(2, report.RawText)
		set(3, report.CleanedText)
		set(4, report.Qty)
		set(5, string(report.Tier))
		set(6, report.Confidence)
		set(7, derefInt(report.ProductID))
		set(8, derefString(report.ProductName))
		set(9, report.RequiresReview)
		set(10, report.ReviewNote)
		if len(report.Alternatives) > 0 {
			set(11, report.Alternatives[0].ProductName)
			set(12, report.Alternatives[0].Score)
		}
		if len(report.Alternatives) > 1 {
			set(13, report.Alternatives[1].ProductName)
			set(14, report.Alternatives[1].Score)
		}
	}

	return saveWorkbook(f, outputPath)
}

// ExportQuotationToXLSX writes the quotation items and totals.
func ExportQuotationToXLSX(q internal.Quotation, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	_ = f.SetCellValue(sheet, "A1", "quotation")
	_ = f.SetCellValue(sheet, "B1", q.Number)
	_ = f.SetCellValue(sheet, "A2", "status")
	_ = f.SetCellValue(sheet, "B2", string(q.Status))

	headers := []string{"description", "qty", "unit_price", "discount_pct", "tax_pct", "net_price", "tax_amount", "line_total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 5
	for _, item := range q.Items {
		values := []any{item.Description, item.Qty, item.UnitPrice, item.DiscountPct, item.TaxPct, item.NetPrice, item.TaxAmount, item.LineTotal}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	row++
	totals := [][2]any{
		{"subtotal", q.Subtotal},
		{"total_discount", q.TotalDiscount},
		{"total_tax", q.TotalTax},
		{"grand_total", q.GrandTotal},
	}
	for _, t := range totals {
		cellA, _ := excelize.CoordinatesToCellName(1, row)
		cellB, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheet, cellA, t[0])
		_ = f.SetCellValue(sheet, cellB, t[1])
		row++
	}

	return saveWorkbook(f, outputPath)
}

func saveWorkbook(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
