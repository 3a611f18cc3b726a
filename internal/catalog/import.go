package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"quotescan/internal"
)

// ProductWriter is the catalog-management edge the importer writes to.
type ProductWriter interface {
	UpsertProducts(products []internal.CatalogProduct) error
}

// ImportXLSX reads a catalog workbook and upserts its products. Column
// positions are inferred from the header row; a catalog export with the
// usual name/code/price headings needs no fixed layout.
func ImportXLSX(path string, w ProductWriter) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	products := []internal.CatalogProduct{}
	nextID := 1

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		cols := inferColumns(rows[0])
		body := rows
		if cols.name >= 0 {
			body = rows[1:]
		} else {
			cols = columnLayout{name: 0, code: 1, description: 2, categories: 3, price: 4, discount: 5, tax: 6}
		}

		for _, row := range body {
			p, ok := rowToProduct(row, cols, nextID)
			if !ok {
				continue
			}
			products = append(products, p)
			nextID++
		}
	}

	if len(products) == 0 {
		return 0, fmt.Errorf("no products found in %s", path)
	}
	if err := w.UpsertProducts(products); err != nil {
		return 0, err
	}
	return len(products), nil
}

type columnLayout struct {
	id          int
	name        int
	code        int
	description int
	categories  int
	price       int
	discount    int
	tax         int
}

func inferColumns(headers []string) columnLayout {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(strings.TrimSpace(h)))
	}
	return columnLayout{
		id:          findHeaderIndex(norm, []string{"id"}),
		name:        findHeaderIndex(norm, []string{"name", "product", "item"}),
		code:        findHeaderIndex(norm, []string{"code", "sku", "catalog"}),
		description: findHeaderIndex(norm, []string{"desc"}),
		categories:  findHeaderIndex(norm, []string{"categor", "tags"}),
		price:       findHeaderIndex(norm, []string{"price", "rate", "mrp"}),
		discount:    findHeaderIndex(norm, []string{"disc"}),
		tax:         findHeaderIndex(norm, []string{"tax", "gst"}),
	}
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func rowToProduct(row []string, cols columnLayout, fallbackID int) (internal.CatalogProduct, bool) {
	name := strings.TrimSpace(pickCell(row, cols.name))
	if name == "" {
		return internal.CatalogProduct{}, false
	}
	price, err := parseNumber(pickCell(row, cols.price))
	if err != nil || price <= 0 {
		return internal.CatalogProduct{}, false
	}

	p := internal.CatalogProduct{
		ID:          fallbackID,
		Name:        name,
		Description: strings.TrimSpace(pickCell(row, cols.description)),
		UnitPrice:   price,
		Active:      true,
	}
	if id, err := strconv.Atoi(strings.TrimSpace(pickCell(row, cols.id))); err == nil && id > 0 {
		p.ID = id
	}
	if code := strings.TrimSpace(pickCell(row, cols.code)); code != "" {
		p.Code = &code
	}
	if cats := strings.TrimSpace(pickCell(row, cols.categories)); cats != "" {
		for _, c := range strings.FieldsFunc(cats, func(r rune) bool { return r == ';' || r == ',' }) {
			c = strings.ToLower(strings.TrimSpace(c))
			if c != "" {
				p.Categories = append(p.Categories, c)
			}
		}
	}
	if v, err := parseNumber(pickCell(row, cols.discount)); err == nil {
		p.DiscountPct = v
	}
	if v, err := parseNumber(pickCell(row, cols.tax)); err == nil {
		p.TaxPct = v
	}

	return p, true
}

func pickCell(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

func parseNumber(cell string) (float64, error) {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if cell == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(cell, 64)
}
