package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"quotescan/internal"
	"quotescan/internal/util"
)

// Noise lines that OCR output of an order photo typically carries:
// separators, page furniture, column headings. A line whose tokens are
// all header words is dropped as well.
var (
	rePureNumber = regexp.MustCompile(`^\d+[.)]?$`)
	reSeparator  = regexp.MustCompile(`^[-_=*.•~\s]+$`)
)

var headerWords = map[string]struct{}{
	"total": {}, "subtotal": {}, "qty": {}, "quantity": {}, "page": {},
	"date": {}, "amount": {}, "rate": {}, "price": {}, "sno": {}, "s.no": {},
	"sr": {}, "no": {}, "item": {}, "items": {}, "order": {}, "list": {},
	"particulars": {}, "description": {},
}

// Structural line patterns, tried in order; the first match wins. Each
// captures a (product-text, quantity) pair. A line with several numbers
// is resolved by pattern order, never by picking the largest or smallest
// number.
var (
	reNameDashQty = regexp.MustCompile(`^(.+?)\s*[-–—]\s*(\d+)$`)
	reQtyXName    = regexp.MustCompile(`^(\d+)\s*[xX×]\s+(.+)$`)
	reNameTailQty = regexp.MustCompile(`^(.+?)\s+(\d+)$`)
	reCodeDesc    = regexp.MustCompile(`^(\S+)\s*[-:]\s+(.+)$`)
)

// ParseText splits one OCR text blob into ordered candidate line items.
// Every non-noise line yields exactly one ParsedItem; lines no pattern
// understands are still emitted, flagged as best-effort, so the parser
// never drops a meaningful line silently. LineNo is the 1-based position
// in the original blob, blank lines included, so a reviewer can find the
// line on the scanned page.
func ParseText(text string) []internal.ParsedItem {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]internal.ParsedItem, 0, len(lines))
	for i, raw := range lines {
		item, ok := parseLine(i+1, raw)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseLine(lineNo int, raw string) (internal.ParsedItem, bool) {
	compact := normalizeSpaces(raw)
	if compact == "" || isNoise(compact) {
		return internal.ParsedItem{}, false
	}

	if m := reNameDashQty.FindStringSubmatch(compact); m != nil {
		return confidentItem(lineNo, compact, m[1], m[2]), true
	}
	if m := reQtyXName.FindStringSubmatch(compact); m != nil {
		return confidentItem(lineNo, compact, m[2], m[1]), true
	}
	if m := reCodeDesc.FindStringSubmatch(compact); m != nil && util.LooksLikeCode(m[1]) {
		// Code-led form: the code is the lookup text, quantity may
		// still trail the description.
		qty := "1"
		if qm := reNameTailQty.FindStringSubmatch(m[2]); qm != nil {
			qty = qm[2]
		}
		return confidentItem(lineNo, compact, m[1], qty), true
	}
	if m := reNameTailQty.FindStringSubmatch(compact); m != nil {
		return confidentItem(lineNo, compact, m[1], m[2]), true
	}

	if meaningfulRunes(compact) <= 2 {
		return internal.ParsedItem{}, false
	}

	// Best-effort fallback: no structural pattern matched, downstream
	// consumers see the whole cleaned line with quantity 1.
	return internal.ParsedItem{
		LineNo:           lineNo,
		RawText:          compact,
		Text:             util.Clean(compact),
		Qty:              1,
		PatternConfident: false,
	}, true
}

func confidentItem(lineNo int, raw, name, qtyToken string) internal.ParsedItem {
	qty, err := strconv.Atoi(qtyToken)
	if err != nil || qty < 1 {
		qty = 1
	}
	return internal.ParsedItem{
		LineNo:           lineNo,
		RawText:          raw,
		Text:             util.Clean(name),
		Qty:              qty,
		PatternConfident: true,
	}
}

func isNoise(line string) bool {
	if rePureNumber.MatchString(line) || reSeparator.MatchString(line) {
		return true
	}
	tokens := strings.Fields(util.Clean(line))
	if len(tokens) == 0 {
		return true
	}
	for _, t := range tokens {
		if _, ok := headerWords[t]; ok {
			continue
		}
		if rePureNumber.MatchString(t) {
			continue
		}
		return false
	}
	return true
}

func meaningfulRunes(line string) int {
	count := 0
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			count++
		}
	}
	return count
}

var reRunsOfSpace = regexp.MustCompile(`\s+`)

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reRunsOfSpace.ReplaceAllString(input, " "))
}
