package pipeline

import (
	"sort"

	"quotescan/internal"
	"quotescan/internal/catalog"
	"quotescan/internal/config"
	"quotescan/internal/util"
)

// query is the pre-computed view of one ParsedItem's cleaned text shared
// by all strategies.
type query struct {
	text   string
	code   string
	tokens []string
}

// tierAttempt is one strategy's contribution. accepted means the
// strategy selected a single best product and later tiers are skipped
// (suggestion-only tiers never set it). final means the tier's verdict
// stands even without a best: later tiers may add suggestions but not
// accept.
type tierAttempt struct {
	tier         internal.MatchTier
	confidence   float64
	best         *internal.CatalogProduct
	alternatives []internal.Suggestion
	accepted     bool
	final        bool
}

type strategy interface {
	attempt(q query, snap *catalog.Snapshot) (tierAttempt, bool)
}

// Matcher runs the tier strategies in their fixed escalation order:
// exact, fuzzy, category, keyword. Confidence from an earlier tier
// always dominates a later tier's contribution.
type Matcher struct {
	cfg             config.Config
	snap            *catalog.Snapshot
	strategies      []strategy
	allAlternatives bool
}

type MatcherOption func(*Matcher)

// WithAllAlternatives keeps collecting suggestion-tier candidates even
// after an earlier tier accepted a match, for callers that always want
// alternatives shown.
func WithAllAlternatives() MatcherOption {
	return func(m *Matcher) { m.allAlternatives = true }
}

func NewMatcher(cfg config.Config, snap *catalog.Snapshot, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		cfg:  cfg,
		snap: snap,
		strategies: []strategy{
			exactStrategy{},
			fuzzyStrategy{accept: cfg.FuzzyAcceptThreshold, gap: cfg.GapThreshold},
			categoryStrategy{confidence: cfg.CategoryConfidence},
			keywordStrategy{confidence: cfg.KeywordConfidence},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Matcher) Match(item internal.ParsedItem) internal.MatchResult {
	q := query{
		text:   item.Text,
		code:   util.NormalizeCode(item.Text),
		tokens: util.Tokenize(item.Text),
	}

	result := internal.MatchResult{
		Item:         item,
		Tier:         internal.TierNone,
		Confidence:   0,
		Alternatives: []internal.Suggestion{},
	}
	settled := false

	for _, s := range m.strategies {
		att, ok := s.attempt(q, m.snap)
		if !ok {
			continue
		}
		if att.accepted {
			if settled {
				// An earlier tier already accepted; keep its tier and
				// confidence, only collect the extra suggestions.
				result.Alternatives = mergeSuggestions(result.Alternatives, att.alternatives)
				continue
			}
			result.Tier = att.tier
			result.Confidence = att.confidence
			result.Best = att.best
			result.Alternatives = mergeSuggestions(result.Alternatives, att.alternatives)
			if !m.allAlternatives {
				break
			}
			settled = true
			continue
		}
		if settled || result.Best != nil {
			// Accepted earlier; only append suggestions.
			result.Alternatives = mergeSuggestions(result.Alternatives, att.alternatives)
			continue
		}
		if result.Tier == internal.TierNone {
			result.Tier = att.tier
			result.Confidence = att.confidence
		}
		if att.final {
			settled = true
		}
		result.Alternatives = mergeSuggestions(result.Alternatives, att.alternatives)
	}

	result.RequiresReview = result.Confidence < m.cfg.ReviewCutoff || result.Best == nil
	return result
}

// mergeSuggestions appends later-tier suggestions without duplicating a
// product already offered by an earlier tier.
func mergeSuggestions(base, extra []internal.Suggestion) []internal.Suggestion {
	seen := map[int]struct{}{}
	for _, s := range base {
		seen[s.ProductID] = struct{}{}
	}
	for _, s := range extra {
		if _, dup := seen[s.ProductID]; dup {
			continue
		}
		seen[s.ProductID] = struct{}{}
		base = append(base, s)
	}
	return base
}

// exactStrategy: case-insensitive equality against product name or
// catalog code. A single hit is accepted with confidence exactly 1.0; a
// name shared by several active products cannot pick a winner, so all
// hits come back as suggestions for the reviewer.
type exactStrategy struct{}

func (exactStrategy) attempt(q query, snap *catalog.Snapshot) (tierAttempt, bool) {
	idx := snap.Index
	ids := idx.ByName[q.text]
	if len(ids) == 0 && q.code != "" {
		ids = idx.ByCode[q.code]
	}
	if len(ids) == 0 {
		return tierAttempt{}, false
	}

	att := tierAttempt{tier: internal.TierExact, confidence: 1.0}
	for _, id := range ids {
		p, _ := idx.Product(id)
		att.alternatives = append(att.alternatives, internal.Suggestion{ProductID: p.ID, ProductName: p.Name, Score: 1.0})
	}
	if len(ids) == 1 {
		best, _ := idx.Product(ids[0])
		att.best = &best
		att.accepted = true
	} else {
		// Below the review cutoff: equality hit, but not on one product.
		att.confidence = 0.78
		att.final = true
	}
	return att, true
}

// fuzzyStrategy: similarity search over name/description/code/category
// tokens. The top candidate is accepted as best only when its score
// clears the acceptance threshold and leads the runner-up by the gap
// margin; the top candidates are retained as alternatives either way.
type fuzzyStrategy struct {
	accept float64
	gap    float64
}

func (s fuzzyStrategy) attempt(q query, snap *catalog.Snapshot) (tierAttempt, bool) {
	candidates := rankCandidates(q, snap.Index)
	if len(candidates) == 0 {
		return tierAttempt{}, false
	}

	top := candidates[0]
	gap := top.Score
	if len(candidates) > 1 {
		gap = top.Score - candidates[1].Score
	}

	att := tierAttempt{
		tier:         internal.TierFuzzy,
		confidence:   top.Score,
		alternatives: candidates,
	}
	if top.Score >= s.accept && gap >= s.gap {
		best, _ := snap.Index.Product(top.ProductID)
		att.best = &best
		att.accepted = true
	}
	return att, true
}

// fallbackScanLimit bounds the exhaustive scan when no query token hits
// the posting lists: OCR typos often mangle every token of a short line,
// and those are exactly the lines that need fuzzy suggestions most.
// minSuggestionScore keeps that scan from surfacing unrelated products as
// alternatives.
const (
	fallbackScanLimit  = 1500
	minSuggestionScore = 0.2
)

func rankCandidates(q query, idx *catalog.Index) []internal.Suggestion {
	ids := map[int]struct{}{}
	for _, token := range q.tokens {
		for id := range idx.TokenToProductIDs[token] {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		for id := range idx.ProductsByID {
			ids[id] = struct{}{}
			if len(ids) >= fallbackScanLimit {
				break
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	out := make([]internal.Suggestion, 0, len(ids))
	for id := range ids {
		score := util.Similarity(q.text, idx.NormalizedNameByID[id])
		if score < minSuggestionScore {
			continue
		}
		p, _ := idx.Product(id)
		out = append(out, internal.Suggestion{ProductID: p.ID, ProductName: p.Name, Score: score})
	}
	if len(out) == 0 {
		return nil
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// categoryStrategy: domain category keywords in the text map to catalog
// category tags; tagged products come back as low-confidence suggestions
// only, never a single best.
type categoryStrategy struct {
	confidence float64
}

func (s categoryStrategy) attempt(q query, snap *catalog.Snapshot) (tierAttempt, bool) {
	tags := snap.Vocab.CategoriesFor(q.text)
	if len(tags) == 0 {
		return tierAttempt{}, false
	}

	att := tierAttempt{tier: internal.TierCategory, confidence: s.confidence}
	seen := map[int]struct{}{}
	for _, tag := range tags {
		for _, id := range snap.Index.ByCategory[tag] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			p, _ := snap.Index.Product(id)
			att.alternatives = append(att.alternatives, internal.Suggestion{ProductID: p.ID, ProductName: p.Name, Score: s.confidence})
		}
	}
	if len(att.alternatives) == 0 {
		return tierAttempt{}, false
	}
	return att, true
}

// keywordStrategy: technical attribute tokens (amperage, module count,
// voltage, switching ways) shared with a product's extracted tokens.
// Suggestions only.
type keywordStrategy struct {
	confidence float64
}

func (s keywordStrategy) attempt(q query, snap *catalog.Snapshot) (tierAttempt, bool) {
	tokens := snap.Vocab.TechTokens(q.text)
	if len(tokens) == 0 {
		return tierAttempt{}, false
	}
	want := map[string]struct{}{}
	for _, t := range tokens {
		want[t] = struct{}{}
	}

	att := tierAttempt{tier: internal.TierKeyword, confidence: s.confidence}
	for id, productTokens := range snap.Index.TechTokensByID {
		hit := false
		for _, t := range productTokens {
			if _, ok := want[t]; ok {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		p, _ := snap.Index.Product(id)
		att.alternatives = append(att.alternatives, internal.Suggestion{ProductID: p.ID, ProductName: p.Name, Score: s.confidence})
	}
	if len(att.alternatives) == 0 {
		return tierAttempt{}, false
	}
	sort.Slice(att.alternatives, func(i, j int) bool {
		return att.alternatives[i].ProductID < att.alternatives[j].ProductID
	})
	return att, true
}
