package catalog

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"quotescan/internal"
)

type captureWriter struct {
	products []internal.CatalogProduct
}

func (w *captureWriter) UpsertProducts(products []internal.CatalogProduct) error {
	w.products = products
	return nil
}

func TestImportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	rows := [][]any{
		{"Name", "Code", "Description", "Categories", "Price", "Discount %", "GST %"},
		{"Modular Switch 6A", "SW6A", "one-way modular switch", "switches", 45, 0, 18},
		{"10 sq mm wire", "WR10", "copper wire 10 sq mm", "wires;cables", 2500, 5, 18},
		{"", "", "", "", "", "", ""},
		{"No price row", "XX", "", "", "", "", ""},
	}
	for i, row := range rows {
		for j, value := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	w := &captureWriter{}
	count, err := ImportXLSX(path, w)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count=%d", count)
	}

	first := w.products[0]
	if first.Name != "Modular Switch 6A" || first.Code == nil || *first.Code != "SW6A" {
		t.Fatalf("first=%+v", first)
	}
	if first.UnitPrice != 45 || first.TaxPct != 18 || !first.Active {
		t.Fatalf("first=%+v", first)
	}

	second := w.products[1]
	if len(second.Categories) != 2 || second.Categories[0] != "wires" || second.Categories[1] != "cables" {
		t.Fatalf("categories=%v", second.Categories)
	}
	if second.DiscountPct != 5 {
		t.Fatalf("discount=%v", second.DiscountPct)
	}
}

func TestImportXLSXEmptyWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	f := excelize.NewFile()
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	if _, err := ImportXLSX(path, &captureWriter{}); err == nil {
		t.Fatal("expected error for workbook without products")
	}
}
