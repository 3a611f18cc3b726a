package quote

import (
	"fmt"

	"quotescan/internal"
)

// InvalidLineError reports which line and field failed validation so the
// caller can correct and retry. It matches errors.Is against
// ErrInvalidQuantityOrPrice.
type InvalidLineError struct {
	Line   int
	Field  string
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("line %d: %s %s", e.Line, e.Field, e.Reason)
}

func (e *InvalidLineError) Unwrap() error {
	return internal.ErrInvalidQuantityOrPrice
}

// LineInput is one confirmed (product, quantity, pricing) tuple.
// DiscountPct/TaxPct of nil mean "use the catalog product's default";
// they are resolved before the calculator runs.
type LineInput struct {
	ProductID   *int
	Description string
	Qty         int
	UnitPrice   float64
	DiscountPct *float64
	TaxPct      *float64
}

// ValidateLines rejects non-positive quantity or price and out-of-range
// percentages before any computation. An empty list is rejected too: a
// quotation needs at least one item.
func ValidateLines(items []internal.QuotationLineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item required", internal.ErrInvalidQuantityOrPrice)
	}
	for i, item := range items {
		if item.Qty <= 0 {
			return &InvalidLineError{Line: i, Field: "qty", Reason: "must be positive"}
		}
		if item.UnitPrice <= 0 {
			return &InvalidLineError{Line: i, Field: "unitPrice", Reason: "must be positive"}
		}
		if item.DiscountPct < 0 || item.DiscountPct > 100 {
			return &InvalidLineError{Line: i, Field: "discountPct", Reason: "must be within [0,100]"}
		}
		if item.TaxPct < 0 {
			return &InvalidLineError{Line: i, Field: "taxPct", Reason: "must be >= 0"}
		}
	}
	return nil
}

// ComputeLine fills the derived fields. No rounding: the full-precision
// values are authoritative, presentation may round for display only.
func ComputeLine(item internal.QuotationLineItem) internal.QuotationLineItem {
	gross := item.UnitPrice * float64(item.Qty)
	item.NetPrice = gross * (1 - item.DiscountPct/100)
	item.TaxAmount = item.NetPrice * item.TaxPct / 100
	item.LineTotal = item.NetPrice + item.TaxAmount
	return item
}

// Recalculate validates the item list, recomputes every line and the
// aggregates. Totals are pure functions of the current item list, so
// every item mutation funnels through here; running it twice over the
// same list yields identical results.
func Recalculate(q *internal.Quotation) error {
	if err := ValidateLines(q.Items); err != nil {
		return err
	}

	q.Subtotal = 0
	q.TotalDiscount = 0
	q.TotalTax = 0
	q.GrandTotal = 0

	for i, item := range q.Items {
		computed := ComputeLine(item)
		q.Items[i] = computed

		gross := computed.UnitPrice * float64(computed.Qty)
		q.Subtotal += gross
		q.TotalDiscount += gross - computed.NetPrice
		q.TotalTax += computed.TaxAmount
	}
	q.GrandTotal = q.Subtotal - q.TotalDiscount + q.TotalTax
	return nil
}
