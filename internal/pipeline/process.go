package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quotescan/internal"
	"quotescan/internal/catalog"
	"quotescan/internal/config"
	"quotescan/internal/storage"
)

// Input is one OCR hand-off: the blob (or a path to it) plus whatever
// scalar confidence the OCR step reported. The pipeline carries the
// confidence through; it never computes one itself.
type Input struct {
	Type          internal.InputType
	Value         string
	OCRConfidence *float64
}

type ReconcileResult struct {
	ScanID  int64
	TraceID string
	Reports []internal.LineReport
	Matched int
	Review  int
	NoMatch int
}

// ReconcileService runs the whole reconciliation pass for one input:
// snapshot load, line parsing, tiered matching, report building,
// persistence. Parsing and matching are pure; the snapshot is read-only
// for the life of the run.
type ReconcileService struct {
	db     *storage.DB
	loader *catalog.Loader
	cfg    config.Config
	opts   []MatcherOption
}

func NewReconcileService(db *storage.DB, loader *catalog.Loader, cfg config.Config, opts ...MatcherOption) *ReconcileService {
	return &ReconcileService{db: db, loader: loader, cfg: cfg, opts: opts}
}

func (s *ReconcileService) Run(ctx context.Context, input Input) (ReconcileResult, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	text, err := ExtractText(input.Type, input.Value)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("extract input: %w", err)
	}

	items := ParseText(text)
	matcher := NewMatcher(s.cfg, snap, s.opts...)

	result := ReconcileResult{TraceID: uuid.NewString()}
	reports := make([]internal.LineReport, 0, len(items))
	for _, item := range items {
		match := matcher.Match(item)
		reports = append(reports, BuildReport(match))

		switch {
		case match.Best != nil && !match.RequiresReview:
			result.Matched++
		case match.Best != nil || len(match.Alternatives) > 0:
			result.Review++
		default:
			result.NoMatch++
		}
	}
	result.Reports = reports

	scanID, err := s.db.InsertScan(internal.ScanRow{
		TraceID:       result.TraceID,
		InputType:     string(input.Type),
		RawText:       text,
		OCRConfidence: input.OCRConfidence,
		Status:        "reconciled",
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	result.ScanID = scanID

	for _, report := range reports {
		if err := s.db.InsertScanLine(scanID, report); err != nil {
			return ReconcileResult{}, err
		}
	}

	return result, nil
}
