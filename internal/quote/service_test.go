package quote

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quotescan/internal"
	"quotescan/internal/catalog"
	"quotescan/internal/util"
)

// fakeStore keeps quotations in memory and can simulate number
// collisions for the retry path.
type fakeStore struct {
	quotes   map[string]internal.Quotation
	failNext int
	inserts  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{quotes: map[string]internal.Quotation{}}
}

func (f *fakeStore) InsertQuotation(q internal.Quotation) error {
	f.inserts++
	if f.failNext > 0 {
		f.failNext--
		return internal.ErrDuplicateQuotationNumber
	}
	if _, exists := f.quotes[q.Number]; exists {
		return internal.ErrDuplicateQuotationNumber
	}
	f.quotes[q.Number] = q
	return nil
}

func (f *fakeStore) GetQuotationByNumber(number string) (*internal.Quotation, error) {
	q, ok := f.quotes[number]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (f *fakeStore) UpdateQuotation(q internal.Quotation) error {
	if _, ok := f.quotes[q.Number]; !ok {
		return errors.New("not found")
	}
	f.quotes[q.Number] = q
	return nil
}

func testSnapshot() *catalog.Snapshot {
	vocab := catalog.DefaultVocabulary()
	products := []internal.CatalogProduct{
		{ID: 1, Name: "Roma One-Way Switch 6A", UnitPrice: 120, DiscountPct: 5, TaxPct: 18, Active: true},
		{ID: 2, Name: "10 sq mm wire", UnitPrice: 500, TaxPct: 18, Active: true},
	}
	return &catalog.Snapshot{
		Products: products,
		Index:    catalog.BuildIndex(products, vocab),
		Vocab:    vocab,
	}
}

func newTestService(store Store) *Service {
	return NewService(store, NewNumberGenerator(newMemorySequence()), 3)
}

func TestCreateDefaultsPricingFromCatalog(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	q, err := svc.Create(context.Background(), testSnapshot(), []LineInput{
		{ProductID: util.IntPtr(1), Qty: 10},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !strings.HasPrefix(q.Number, "QT-") {
		t.Fatalf("number=%q", q.Number)
	}
	if q.Status != internal.StatusDraft {
		t.Fatalf("status=%s", q.Status)
	}
	item := q.Items[0]
	if item.Description != "Roma One-Way Switch 6A" || item.UnitPrice != 120 || item.DiscountPct != 5 || item.TaxPct != 18 {
		t.Fatalf("item=%+v", item)
	}
	if !almostEqual(item.NetPrice, 1140) || !almostEqual(item.LineTotal, 1345.2) {
		t.Fatalf("item=%+v", item)
	}
	if _, ok := store.quotes[q.Number]; !ok {
		t.Fatal("quotation was not persisted")
	}
}

func TestCreateCallerOverridesWin(t *testing.T) {
	svc := newTestService(newFakeStore())

	q, err := svc.Create(context.Background(), testSnapshot(), []LineInput{
		{ProductID: util.IntPtr(2), Description: "wire, special run", Qty: 25, DiscountPct: util.FloatPtr(5)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	item := q.Items[0]
	if item.Description != "wire, special run" || item.DiscountPct != 5 || item.TaxPct != 18 {
		t.Fatalf("item=%+v", item)
	}
	if !almostEqual(item.NetPrice, 11875) || !almostEqual(item.TaxAmount, 2137.5) || !almostEqual(item.LineTotal, 14012.5) {
		t.Fatalf("item=%+v", item)
	}
}

func TestCreateManualLineWithoutProduct(t *testing.T) {
	svc := newTestService(newFakeStore())

	q, err := svc.Create(context.Background(), testSnapshot(), []LineInput{
		{Description: "custom cut panel", Qty: 1, UnitPrice: 950, TaxPct: util.FloatPtr(18)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.Items[0].ProductID != nil || !almostEqual(q.Items[0].LineTotal, 1121) {
		t.Fatalf("item=%+v", q.Items[0])
	}
}

func TestCreateRejectsStaleProductReference(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Create(context.Background(), testSnapshot(), []LineInput{
		{ProductID: util.IntPtr(1), Qty: 1},
		{ProductID: util.IntPtr(99), Qty: 2},
	})
	if !errors.Is(err, internal.ErrProductNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestCreateRejectsEmptyLineList(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Create(context.Background(), testSnapshot(), nil)
	if !errors.Is(err, internal.ErrInvalidQuantityOrPrice) {
		t.Fatalf("err=%v", err)
	}
}

func TestCreateRetriesOnNumberCollision(t *testing.T) {
	store := newFakeStore()
	store.failNext = 2
	svc := newTestService(store)

	q, err := svc.Create(context.Background(), testSnapshot(), []LineInput{
		{ProductID: util.IntPtr(1), Qty: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.inserts != 3 {
		t.Fatalf("inserts=%d", store.inserts)
	}
	if !strings.HasSuffix(q.Number, "-0003") {
		t.Fatalf("number=%q, each retry must draw a fresh number", q.Number)
	}
}

func TestCreateRetriesAreBounded(t *testing.T) {
	store := newFakeStore()
	store.failNext = 100
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), testSnapshot(), []LineInput{
		{ProductID: util.IntPtr(1), Qty: 1},
	})
	if !errors.Is(err, internal.ErrDuplicateQuotationNumber) {
		t.Fatalf("err=%v", err)
	}
	if store.inserts != 3 {
		t.Fatalf("inserts=%d, retries must stop at the configured bound", store.inserts)
	}
}

func createDraft(t *testing.T, svc *Service) internal.Quotation {
	t.Helper()
	q, err := svc.Create(context.Background(), testSnapshot(), []LineInput{
		{ProductID: util.IntPtr(1), Qty: 2},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return q
}

func TestAddItemRecomputesTotals(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	q := createDraft(t, svc)

	updated, err := svc.AddItem(testSnapshot(), q.Number, LineInput{ProductID: util.IntPtr(2), Qty: 5})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("items=%d", len(updated.Items))
	}
	sum := 0.0
	for _, item := range updated.Items {
		sum += item.LineTotal
	}
	if !almostEqual(updated.GrandTotal, sum) {
		t.Fatalf("grand=%v sum=%v", updated.GrandTotal, sum)
	}

	stored, _ := store.GetQuotationByNumber(q.Number)
	if !almostEqual(stored.GrandTotal, updated.GrandTotal) {
		t.Fatalf("stored=%v updated=%v", stored.GrandTotal, updated.GrandTotal)
	}
}

func TestUpdateItemReplacesLine(t *testing.T) {
	svc := newTestService(newFakeStore())
	q := createDraft(t, svc)

	updated, err := svc.UpdateItem(testSnapshot(), q.Number, 0, LineInput{ProductID: util.IntPtr(1), Qty: 7})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Items[0].Qty != 7 {
		t.Fatalf("item=%+v", updated.Items[0])
	}
	if almostEqual(updated.GrandTotal, q.GrandTotal) {
		t.Fatal("totals did not change with the quantity")
	}
}

func TestRemoveLastItemIsRejected(t *testing.T) {
	svc := newTestService(newFakeStore())
	q := createDraft(t, svc)

	_, err := svc.RemoveItem(q.Number, 0)
	if !errors.Is(err, internal.ErrInvalidQuantityOrPrice) {
		t.Fatalf("removing the only line must fail validation, err=%v", err)
	}
}

func TestItemMutationRequiresDraftStatus(t *testing.T) {
	svc := newTestService(newFakeStore())
	q := createDraft(t, svc)

	if _, err := svc.Transition(q.Number, internal.StatusSent); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if _, err := svc.AddItem(testSnapshot(), q.Number, LineInput{ProductID: util.IntPtr(2), Qty: 1}); err == nil {
		t.Fatal("mutating a sent quotation must fail")
	}
}

func TestStatusTransitions(t *testing.T) {
	svc := newTestService(newFakeStore())
	q := createDraft(t, svc)

	steps := []internal.QuotationStatus{internal.StatusSent, internal.StatusApproved, internal.StatusCompleted}
	for _, to := range steps {
		updated, err := svc.Transition(q.Number, to)
		if err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
		if updated.Status != to {
			t.Fatalf("status=%s want %s", updated.Status, to)
		}
	}

	if _, err := svc.Transition(q.Number, internal.StatusDraft); err == nil {
		t.Fatal("completed quotation must not transition forward to draft")
	}
}

func TestTransitionSkippingStatesIsRejected(t *testing.T) {
	svc := newTestService(newFakeStore())
	q := createDraft(t, svc)

	if _, err := svc.Transition(q.Number, internal.StatusApproved); err == nil {
		t.Fatal("draft cannot jump straight to approved")
	}
}

func TestRevertStepsOneStatusBack(t *testing.T) {
	svc := newTestService(newFakeStore())
	q := createDraft(t, svc)

	if _, err := svc.Transition(q.Number, internal.StatusSent); err != nil {
		t.Fatalf("transition: %v", err)
	}
	reverted, err := svc.Revert(q.Number)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Status != internal.StatusDraft {
		t.Fatalf("status=%s", reverted.Status)
	}

	if _, err := svc.Revert(q.Number); err == nil {
		t.Fatal("draft has nothing to revert to")
	}
}
