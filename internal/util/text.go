package util

import (
	"regexp"
	"strings"
)

var (
	reQuotes     = regexp.MustCompile("[\"'`]")
	reNonAllowed = regexp.MustCompile(`[^a-z0-9\-/\s.]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Clean lower-cases a line fragment for matching: punctuation other than
// hyphens (and the dots/slashes that appear inside gauge and code tokens)
// is stripped, whitespace is collapsed. The original text is kept
// elsewhere for display.
func Clean(input string) string {
	s := strings.ToLower(input)
	repl := strings.NewReplacer("×", "x", "*", "x", "mm²", "mm2")
	s = repl.Replace(s)
	s = reQuotes.ReplaceAllString(s, " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeCode compacts a catalog code for lookup: upper-case, no
// spaces, only code-safe characters kept.
func NormalizeCode(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, " ", "")
	out := strings.Builder{}
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '/' || r == '.' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func Tokenize(input string) []string {
	parts := strings.Split(Clean(input), " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// LooksLikeCode reports whether a fragment resembles a catalog code:
// letters and digits mixed, no interior spaces.
func LooksLikeCode(input string) bool {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < 3 || strings.ContainsAny(trimmed, " \t") {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, r := range trimmed {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			hasLetter = true
		}
		if r >= '0' && r <= '9' {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// DiceCoefficient over character bigrams, 0..1.
func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}

// Similarity blends the bigram Dice score with query-token coverage.
// Token coverage keeps word-order noise from OCR from dominating the
// bigram score.
func Similarity(query, candidate string) float64 {
	dice := DiceCoefficient(query, candidate)
	queryTokens := Tokenize(query)
	candidateTokens := Tokenize(candidate)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return dice
	}

	set := map[string]struct{}{}
	for _, t := range candidateTokens {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	tokenScore := float64(overlap) / float64(len(queryTokens))
	return 0.65*dice + 0.35*tokenScore
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
