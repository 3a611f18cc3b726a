package catalog

import (
	"context"
	"fmt"
	"time"

	"quotescan/internal"
)

// Source is the catalog collaborator. The pipeline only reads from it;
// catalog management lives elsewhere.
type Source interface {
	LoadActiveProducts(ctx context.Context) ([]internal.CatalogProduct, error)
}

// Snapshot is an immutable view of the active catalog. Matchers hold one
// snapshot for a whole reconciliation run; Reload produces a new value
// instead of mutating in place, so an in-flight match never sees a mix
// of old and new products.
type Snapshot struct {
	Products []internal.CatalogProduct
	Index    *Index
	Vocab    Vocabulary
	LoadedAt time.Time
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Index.ProductsByID)
}

type Loader struct {
	source Source
	vocab  Vocabulary
}

func NewLoader(source Source, vocab Vocabulary) *Loader {
	return &Loader{source: source, vocab: vocab}
}

// Load fetches all active products and builds the snapshot. A source
// failure wraps ErrCatalogUnavailable; callers must not run the pipeline
// against a stale or partial snapshot silently.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	products, err := l.source.LoadActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrCatalogUnavailable, err)
	}
	return &Snapshot{
		Products: products,
		Index:    BuildIndex(products, l.vocab),
		Vocab:    l.vocab,
		LoadedAt: time.Now().UTC(),
	}, nil
}

// Reload is Load under its refresh-on-demand name: catalog changes are
// not observed automatically, callers pick the cadence.
func (l *Loader) Reload(ctx context.Context) (*Snapshot, error) {
	return l.Load(ctx)
}
