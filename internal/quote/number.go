package quote

import (
	"context"
	"fmt"
	"time"
)

// SequenceSource hands out the next per-day sequence value. The
// implementation must make "read last sequence, compute next" one atomic
// unit; the SQLite store does it in a single upsert-returning statement.
// A find-max-then-add-one implementation is not acceptable here: it
// hands two concurrent callers the same number.
type SequenceSource interface {
	NextSequenceForDate(ctx context.Context, date string) (int, error)
}

// NumberGenerator produces quotation numbers of the shape
// QT-YYYYMMDD-NNNN: date-scoped, strictly increasing in creation order
// within a day.
type NumberGenerator struct {
	seq SequenceSource
	now func() time.Time
}

func NewNumberGenerator(seq SequenceSource) *NumberGenerator {
	return &NumberGenerator{seq: seq, now: time.Now}
}

func (g *NumberGenerator) Next(ctx context.Context) (string, error) {
	date := g.now().UTC().Format("20060102")
	n, err := g.seq.NextSequenceForDate(ctx, date)
	if err != nil {
		return "", fmt.Errorf("next quotation sequence: %w", err)
	}
	return fmt.Sprintf("QT-%s-%04d", date, n), nil
}
