package internal

import "errors"

// Sentinel errors shared across the pipeline. Callers check them with
// errors.Is; packages wrap them with call-site context.
var (
	ErrCatalogUnavailable       = errors.New("catalog unavailable")
	ErrInvalidQuantityOrPrice   = errors.New("invalid quantity or price")
	ErrDuplicateQuotationNumber = errors.New("duplicate quotation number")
	ErrProductNotFound          = errors.New("product not found")
)

type InputType string

const (
	InputText InputType = "text"
	InputPDF  InputType = "pdf"
	InputHTML InputType = "html"
)

// CatalogProduct is one active product in the catalog snapshot. TechTokens
// are extracted once when the snapshot is built, never per request.
type CatalogProduct struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Code        *string  `json:"code,omitempty"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	TechTokens  []string `json:"techTokens,omitempty"`
	UnitPrice   float64  `json:"unitPrice"`
	DiscountPct float64  `json:"discountPct"`
	TaxPct      float64  `json:"taxPct"`
	Active      bool     `json:"active"`
}

// ParsedItem is one candidate line item produced by the line parser.
// RawText keeps the original line for display; Text is the cleaned,
// lower-cased fragment used for matching. PatternConfident is false when
// no structural pattern matched and the line was emitted as a best-effort
// guess with quantity 1.
type ParsedItem struct {
	LineNo           int    `json:"lineNo"`
	RawText          string `json:"rawText"`
	Text             string `json:"text"`
	Qty              int    `json:"qty"`
	PatternConfident bool   `json:"patternConfident"`
}

type MatchTier string

const (
	TierExact    MatchTier = "exact"
	TierFuzzy    MatchTier = "fuzzy"
	TierCategory MatchTier = "category"
	TierKeyword  MatchTier = "keyword"
	TierNone     MatchTier = "none"
)

type Suggestion struct {
	ProductID   int     `json:"productId"`
	ProductName string  `json:"productName"`
	Score       float64 `json:"score"`
}

// MatchResult is the matcher's verdict for one ParsedItem. Immutable once
// created. Best is nil when no tier accepted a single product.
type MatchResult struct {
	Item           ParsedItem      `json:"item"`
	Tier           MatchTier       `json:"tier"`
	Confidence     float64         `json:"confidence"`
	Best           *CatalogProduct `json:"best,omitempty"`
	Alternatives   []Suggestion    `json:"alternatives"`
	RequiresReview bool            `json:"requiresReview"`
}

// LineReport is the pipeline output contract: one object per input line,
// consumed by the presentation layer and the human review step.
type LineReport struct {
	LineNo         int          `json:"lineNo"`
	RawText        string       `json:"rawText"`
	CleanedText    string       `json:"cleanedText"`
	Qty            int          `json:"qty"`
	Tier           MatchTier    `json:"tier"`
	Confidence     float64      `json:"confidence"`
	ProductID      *int         `json:"productId,omitempty"`
	ProductName    *string      `json:"productName,omitempty"`
	Alternatives   []Suggestion `json:"alternatives"`
	RequiresReview bool         `json:"requiresReview"`
	ReviewNote     string       `json:"reviewNote,omitempty"`
}

type QuotationStatus string

const (
	StatusDraft     QuotationStatus = "draft"
	StatusSent      QuotationStatus = "sent"
	StatusApproved  QuotationStatus = "approved"
	StatusRejected  QuotationStatus = "rejected"
	StatusCompleted QuotationStatus = "completed"
)

// QuotationLineItem carries both the caller-supplied pricing inputs and
// the derived amounts. ProductID is nil for manually entered lines.
// Invariants: NetPrice = UnitPrice*Qty*(1-DiscountPct/100),
// TaxAmount = NetPrice*TaxPct/100, LineTotal = NetPrice+TaxAmount.
type QuotationLineItem struct {
	ProductID   *int    `json:"productId,omitempty"`
	Description string  `json:"description"`
	Qty         int     `json:"qty"`
	UnitPrice   float64 `json:"unitPrice"`
	DiscountPct float64 `json:"discountPct"`
	TaxPct      float64 `json:"taxPct"`
	NetPrice    float64 `json:"netPrice"`
	TaxAmount   float64 `json:"taxAmount"`
	LineTotal   float64 `json:"lineTotal"`
}

// Quotation totals are functions of the item list and are recomputed on
// every item mutation; they are never set independently.
type Quotation struct {
	Number        string              `json:"number"`
	Status        QuotationStatus     `json:"status"`
	Items         []QuotationLineItem `json:"items"`
	Subtotal      float64             `json:"subtotal"`
	TotalDiscount float64             `json:"totalDiscount"`
	TotalTax      float64             `json:"totalTax"`
	GrandTotal    float64             `json:"grandTotal"`
	CreatedAt     string              `json:"createdAt,omitempty"`
}

// ScanRow is a persisted reconciliation run over one OCR text blob.
type ScanRow struct {
	ID            int
	TraceID       string
	InputType     string
	RawText       string
	OCRConfidence *float64
	Status        string
	CreatedAt     string
}
