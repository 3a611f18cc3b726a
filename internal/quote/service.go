package quote

import (
	"context"
	"errors"
	"fmt"

	"quotescan/internal"
	"quotescan/internal/catalog"
)

// Store is the persistence collaborator for finished quotations.
// InsertQuotation reports ErrDuplicateQuotationNumber on a number
// collision; a retry with the same number and identical content must not
// create a second row.
type Store interface {
	InsertQuotation(q internal.Quotation) error
	GetQuotationByNumber(number string) (*internal.Quotation, error)
	UpdateQuotation(q internal.Quotation) error
}

// Service owns the quotation lifecycle: creation from confirmed line
// items, draft mutation, and status transitions.
type Service struct {
	store   Store
	gen     *NumberGenerator
	retries int
}

func NewService(store Store, gen *NumberGenerator, retries int) *Service {
	if retries < 1 {
		retries = 1
	}
	return &Service{store: store, gen: gen, retries: retries}
}

// Create builds a quotation from confirmed lines, re-validating every
// product reference against the current snapshot: a stale reference
// rejects the whole list, because dropping the line silently would make
// the totals wrong. A number collision triggers a bounded retry of
// generate-and-save before the error surfaces.
func (s *Service) Create(ctx context.Context, snap *catalog.Snapshot, lines []LineInput) (internal.Quotation, error) {
	items := make([]internal.QuotationLineItem, 0, len(lines))
	for i, line := range lines {
		item, err := resolveLine(snap, i, line)
		if err != nil {
			return internal.Quotation{}, err
		}
		items = append(items, item)
	}

	q := internal.Quotation{Status: internal.StatusDraft, Items: items}
	if err := Recalculate(&q); err != nil {
		return internal.Quotation{}, err
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		number, err := s.gen.Next(ctx)
		if err != nil {
			return internal.Quotation{}, err
		}
		q.Number = number

		err = s.store.InsertQuotation(q)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, internal.ErrDuplicateQuotationNumber) {
			return internal.Quotation{}, err
		}
		lastErr = err
	}
	return internal.Quotation{}, fmt.Errorf("quotation save retries exhausted: %w", lastErr)
}

// resolveLine turns a confirmed input into a line item, defaulting
// price, discount, and tax from the referenced catalog product.
func resolveLine(snap *catalog.Snapshot, index int, line LineInput) (internal.QuotationLineItem, error) {
	item := internal.QuotationLineItem{
		ProductID:   line.ProductID,
		Description: line.Description,
		Qty:         line.Qty,
		UnitPrice:   line.UnitPrice,
	}

	if line.ProductID != nil {
		p, ok := snap.Index.Product(*line.ProductID)
		if !ok {
			return internal.QuotationLineItem{}, fmt.Errorf("%w: line %d references product %d", internal.ErrProductNotFound, index, *line.ProductID)
		}
		if item.Description == "" {
			item.Description = p.Name
		}
		if item.UnitPrice == 0 {
			item.UnitPrice = p.UnitPrice
		}
		item.DiscountPct = p.DiscountPct
		item.TaxPct = p.TaxPct
	}

	if line.DiscountPct != nil {
		item.DiscountPct = *line.DiscountPct
	}
	if line.TaxPct != nil {
		item.TaxPct = *line.TaxPct
	}
	return item, nil
}

// AddItem appends a line to a draft quotation and recomputes totals.
func (s *Service) AddItem(snap *catalog.Snapshot, number string, line LineInput) (internal.Quotation, error) {
	q, err := s.mutableQuotation(number)
	if err != nil {
		return internal.Quotation{}, err
	}

	item, err := resolveLine(snap, len(q.Items), line)
	if err != nil {
		return internal.Quotation{}, err
	}
	q.Items = append(q.Items, item)
	return s.saveMutation(q)
}

// UpdateItem replaces the line at index on a draft quotation.
func (s *Service) UpdateItem(snap *catalog.Snapshot, number string, index int, line LineInput) (internal.Quotation, error) {
	q, err := s.mutableQuotation(number)
	if err != nil {
		return internal.Quotation{}, err
	}
	if index < 0 || index >= len(q.Items) {
		return internal.Quotation{}, fmt.Errorf("item index %d out of range", index)
	}

	item, err := resolveLine(snap, index, line)
	if err != nil {
		return internal.Quotation{}, err
	}
	q.Items[index] = item
	return s.saveMutation(q)
}

// RemoveItem deletes the line at index on a draft quotation.
func (s *Service) RemoveItem(number string, index int) (internal.Quotation, error) {
	q, err := s.mutableQuotation(number)
	if err != nil {
		return internal.Quotation{}, err
	}
	if index < 0 || index >= len(q.Items) {
		return internal.Quotation{}, fmt.Errorf("item index %d out of range", index)
	}

	q.Items = append(q.Items[:index], q.Items[index+1:]...)
	return s.saveMutation(q)
}

func (s *Service) mutableQuotation(number string) (internal.Quotation, error) {
	q, err := s.store.GetQuotationByNumber(number)
	if err != nil {
		return internal.Quotation{}, err
	}
	if q == nil {
		return internal.Quotation{}, fmt.Errorf("quotation %s not found", number)
	}
	if q.Status != internal.StatusDraft {
		return internal.Quotation{}, fmt.Errorf("quotation %s is %s; items are only mutable while draft", number, q.Status)
	}
	return *q, nil
}

func (s *Service) saveMutation(q internal.Quotation) (internal.Quotation, error) {
	if err := Recalculate(&q); err != nil {
		return internal.Quotation{}, err
	}
	if err := s.store.UpdateQuotation(q); err != nil {
		return internal.Quotation{}, err
	}
	return q, nil
}

// Forward transitions are one-directional; anything else needs an
// explicit Revert from the caller.
var forwardTransitions = map[internal.QuotationStatus][]internal.QuotationStatus{
	internal.StatusDraft:    {internal.StatusSent},
	internal.StatusSent:     {internal.StatusApproved, internal.StatusRejected},
	internal.StatusApproved: {internal.StatusCompleted},
}

var revertTransitions = map[internal.QuotationStatus]internal.QuotationStatus{
	internal.StatusSent:      internal.StatusDraft,
	internal.StatusApproved:  internal.StatusSent,
	internal.StatusRejected:  internal.StatusSent,
	internal.StatusCompleted: internal.StatusApproved,
}

func (s *Service) Transition(number string, to internal.QuotationStatus) (internal.Quotation, error) {
	q, err := s.store.GetQuotationByNumber(number)
	if err != nil {
		return internal.Quotation{}, err
	}
	if q == nil {
		return internal.Quotation{}, fmt.Errorf("quotation %s not found", number)
	}

	allowed := false
	for _, next := range forwardTransitions[q.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return internal.Quotation{}, fmt.Errorf("cannot transition quotation %s from %s to %s", number, q.Status, to)
	}

	q.Status = to
	if err := s.store.UpdateQuotation(*q); err != nil {
		return internal.Quotation{}, err
	}
	return *q, nil
}

// Revert steps one status back at the caller's explicit request.
func (s *Service) Revert(number string) (internal.Quotation, error) {
	q, err := s.store.GetQuotationByNumber(number)
	if err != nil {
		return internal.Quotation{}, err
	}
	if q == nil {
		return internal.Quotation{}, fmt.Errorf("quotation %s not found", number)
	}

	prev, ok := revertTransitions[q.Status]
	if !ok {
		return internal.Quotation{}, fmt.Errorf("quotation %s is %s; nothing to revert", number, q.Status)
	}

	q.Status = prev
	if err := s.store.UpdateQuotation(*q); err != nil {
		return internal.Quotation{}, err
	}
	return *q, nil
}
