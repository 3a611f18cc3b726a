package pipeline

import (
	"fmt"

	"quotescan/internal"
)

// BuildReport turns a MatchResult into the reviewer-facing line report:
// the pipeline output contract plus a short note telling the reviewer
// what kind of attention the line needs.
func BuildReport(result internal.MatchResult) internal.LineReport {
	report := internal.LineReport{
		LineNo:         result.Item.LineNo,
		RawText:        result.Item.RawText,
		CleanedText:    result.Item.Text,
		Qty:            result.Item.Qty,
		Tier:           result.Tier,
		Confidence:     result.Confidence,
		Alternatives:   result.Alternatives,
		RequiresReview: result.RequiresReview,
	}
	if result.Best != nil {
		id := result.Best.ID
		name := result.Best.Name
		report.ProductID = &id
		report.ProductName = &name
	}
	report.ReviewNote = reviewNote(result)
	return report
}

func BuildReports(results []internal.MatchResult) []internal.LineReport {
	out := make([]internal.LineReport, 0, len(results))
	for _, r := range results {
		out = append(out, BuildReport(r))
	}
	return out
}

func reviewNote(result internal.MatchResult) string {
	if !result.RequiresReview {
		return ""
	}

	note := ""
	switch result.Tier {
	case internal.TierExact, internal.TierFuzzy:
		if result.Best != nil {
			note = fmt.Sprintf("verify match %q (confidence %.2f)", result.Best.Name, result.Confidence)
		} else if len(result.Alternatives) > 0 {
			note = fmt.Sprintf("no confident match; %d similar product(s) suggested", len(result.Alternatives))
		} else {
			note = "no confident match"
		}
	case internal.TierCategory:
		note = fmt.Sprintf("%d product(s) from matching categories suggested", len(result.Alternatives))
	case internal.TierKeyword:
		note = fmt.Sprintf("%d product(s) sharing technical attributes suggested", len(result.Alternatives))
	case internal.TierNone:
		note = "no catalog match; enter manually or skip"
	}

	if !result.Item.PatternConfident {
		note += "; quantity was guessed from an unstructured line"
	}
	return note
}
