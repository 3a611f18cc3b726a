package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"quotescan/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  code TEXT,
  description TEXT NOT NULL DEFAULT '',
  categories TEXT NOT NULL DEFAULT '[]',
  unitPrice REAL NOT NULL,
  discountPct REAL NOT NULL DEFAULT 0,
  taxPct REAL NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
CREATE INDEX IF NOT EXISTS idx_products_code ON products(code);

CREATE TABLE IF NOT EXISTS scans (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  inputType TEXT NOT NULL,
  rawText TEXT NOT NULL,
  ocrConfidence REAL,
  status TEXT NOT NULL DEFAULT 'reconciled',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scan_lines (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scanId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  rawText TEXT NOT NULL,
  cleanedText TEXT NOT NULL,
  qty INTEGER NOT NULL,
  tier TEXT NOT NULL,
  confidence REAL NOT NULL,
  productId INTEGER,
  productName TEXT,
  alternativesJson TEXT NOT NULL,
  requiresReview INTEGER NOT NULL,
  reviewNote TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(scanId) REFERENCES scans(id)
);

CREATE TABLE IF NOT EXISTS quotations (
  number TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  subtotal REAL NOT NULL,
  totalDiscount REAL NOT NULL,
  totalTax REAL NOT NULL,
  grandTotal REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS quotation_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  quotationNumber TEXT NOT NULL,
  position INTEGER NOT NULL,
  productId INTEGER,
  description TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unitPrice REAL NOT NULL,
  discountPct REAL NOT NULL,
  taxPct REAL NOT NULL,
  netPrice REAL NOT NULL,
  taxAmount REAL NOT NULL,
  lineTotal REAL NOT NULL,
  FOREIGN KEY(quotationNumber) REFERENCES quotations(number)
);

CREATE TABLE IF NOT EXISTS quote_sequences (
  day TEXT PRIMARY KEY,
  seq INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertProducts(products []internal.CatalogProduct) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (id, name, code, description, categories, unitPrice, discountPct, taxPct, active, updatedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  code=excluded.code,
  description=excluded.description,
  categories=excluded.categories,
  unitPrice=excluded.unitPrice,
  discountPct=excluded.discountPct,
  taxPct=excluded.taxPct,
  active=excluded.active,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		categoriesJSON, _ := json.Marshal(p.Categories)
		active := 0
		if p.Active {
			active = 1
		}
		if _, err := stmt.Exec(p.ID, p.Name, p.Code, p.Description, string(categoriesJSON), p.UnitPrice, p.DiscountPct, p.TaxPct, active); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadActiveProducts implements the catalog Source collaborator.
func (d *DB) LoadActiveProducts(ctx context.Context) ([]internal.CatalogProduct, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, name, code, description, categories, unitPrice, discountPct, taxPct
FROM products WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CatalogProduct
	for rows.Next() {
		var p internal.CatalogProduct
		var categoriesJSON string
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Description, &categoriesJSON, &p.UnitPrice, &p.DiscountPct, &p.TaxPct); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(categoriesJSON), &p.Categories)
		p.Active = true
		out = append(out, p)
	}

	return out, rows.Err()
}

func (d *DB) DeactivateProduct(id int) error {
	_, err := d.conn.Exec(`UPDATE products SET active = 0, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

func (d *DB) InsertScan(scan internal.ScanRow) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO scans (traceId, inputType, rawText, ocrConfidence, status)
VALUES (?, ?, ?, ?, ?)
`, scan.TraceID, scan.InputType, scan.RawText, scan.OCRConfidence, scan.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertScanLine(scanID int64, report internal.LineReport) error {
	alternativesJSON, _ := json.Marshal(report.Alternatives)
	requiresReview := 0
	if report.RequiresReview {
		requiresReview = 1
	}
	_, err := d.conn.Exec(`
INSERT INTO scan_lines (scanId, lineNo, rawText, cleanedText, qty, tier, confidence, productId, productName, alternativesJson, requiresReview, reviewNote)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, scanID, report.LineNo, report.RawText, report.CleanedText, report.Qty, string(report.Tier), report.Confidence,
		report.ProductID, report.ProductName, string(alternativesJSON), requiresReview, report.ReviewNote)
	return err
}

func (d *DB) GetScanReports(scanID int64) ([]internal.LineReport, error) {
	rows, err := d.conn.Query(`
SELECT lineNo, rawText, cleanedText, qty, tier, confidence, productId, productName, alternativesJson, requiresReview, reviewNote
FROM scan_lines WHERE scanId = ? ORDER BY lineNo ASC
`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.LineReport
	for rows.Next() {
		var report internal.LineReport
		var tier string
		var alternativesJSON string
		var requiresReview int
		if err := rows.Scan(&report.LineNo, &report.RawText, &report.CleanedText, &report.Qty, &tier, &report.Confidence,
			&report.ProductID, &report.ProductName, &alternativesJSON, &requiresReview, &report.ReviewNote); err != nil {
			return nil, err
		}
		report.Tier = internal.MatchTier(tier)
		report.RequiresReview = requiresReview == 1
		_ = json.Unmarshal([]byte(alternativesJSON), &report.Alternatives)
		out = append(out, report)
	}

	return out, rows.Err()
}

// NextSequenceForDate implements the atomic per-day counter behind the
// quotation number generator. The upsert-returning statement is the
// whole read-modify-write; there is no window for two callers to read
// the same value.
func (d *DB) NextSequenceForDate(ctx context.Context, date string) (int, error) {
	var seq int
	err := d.conn.QueryRowContext(ctx, `
INSERT INTO quote_sequences (day, seq) VALUES (?, 1)
ON CONFLICT(day) DO UPDATE SET seq = seq + 1
RETURNING seq
`, date).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// InsertQuotation stores a new quotation with its items. A number
// collision with identical content is treated as a retried save and
// succeeds without a second row; a collision with different content
// reports ErrDuplicateQuotationNumber.
func (d *DB) InsertQuotation(q internal.Quotation) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
INSERT INTO quotations (number, status, subtotal, totalDiscount, totalTax, grandTotal)
VALUES (?, ?, ?, ?, ?, ?)
`, q.Number, string(q.Status), q.Subtotal, q.TotalDiscount, q.TotalTax, q.GrandTotal)
	if err != nil {
		if isUniqueViolation(err) {
			return d.classifyCollision(q)
		}
		return err
	}

	if err := insertItems(tx, q); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) classifyCollision(q internal.Quotation) error {
	existing, err := d.GetQuotationByNumber(q.Number)
	if err != nil {
		return err
	}
	if existing != nil && len(existing.Items) == len(q.Items) && math.Abs(existing.GrandTotal-q.GrandTotal) < 1e-9 {
		// Same content under the same number: an idempotent retry.
		return nil
	}
	return fmt.Errorf("%w: %s", internal.ErrDuplicateQuotationNumber, q.Number)
}

// UpdateQuotation replaces the stored item list and totals for an
// existing number.
func (d *DB) UpdateQuotation(q internal.Quotation) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
UPDATE quotations SET status = ?, subtotal = ?, totalDiscount = ?, totalTax = ?, grandTotal = ?
WHERE number = ?
`, string(q.Status), q.Subtotal, q.TotalDiscount, q.TotalTax, q.GrandTotal, q.Number)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("quotation %s not found", q.Number)
	}

	if _, err := tx.Exec(`DELETE FROM quotation_items WHERE quotationNumber = ?`, q.Number); err != nil {
		return err
	}
	if err := insertItems(tx, q); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItems(tx *sql.Tx, q internal.Quotation) error {
	stmt, err := tx.Prepare(`
INSERT INTO quotation_items (quotationNumber, position, productId, description, qty, unitPrice, discountPct, taxPct, netPrice, taxAmount, lineTotal)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range q.Items {
		if _, err := stmt.Exec(q.Number, i, item.ProductID, item.Description, item.Qty, item.UnitPrice,
			item.DiscountPct, item.TaxPct, item.NetPrice, item.TaxAmount, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) GetQuotationByNumber(number string) (*internal.Quotation, error) {
	var q internal.Quotation
	var status string
	err := d.conn.QueryRow(`
SELECT number, status, subtotal, totalDiscount, totalTax, grandTotal, createdAt
FROM quotations WHERE number = ?
`, number).Scan(&q.Number, &status, &q.Subtotal, &q.TotalDiscount, &q.TotalTax, &q.GrandTotal, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q.Status = internal.QuotationStatus(status)

	rows, err := d.conn.Query(`
SELECT productId, description, qty, unitPrice, discountPct, taxPct, netPrice, taxAmount, lineTotal
FROM quotation_items WHERE quotationNumber = ? ORDER BY position ASC
`, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item internal.QuotationLineItem
		if err := rows.Scan(&item.ProductID, &item.Description, &item.Qty, &item.UnitPrice,
			&item.DiscountPct, &item.TaxPct, &item.NetPrice, &item.TaxAmount, &item.LineTotal); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &q, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
