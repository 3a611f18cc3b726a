package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Vocabulary is the matching vocabulary: data, not code. Categories maps
// a keyword that may appear in OCR text to the catalog category tags it
// implies. Attributes maps a literal technical token to its attribute
// type. Numeric attribute shapes (amperage, voltage, module count, wire
// gauge) are recognized by fixed patterns and normalized to canonical
// tokens like "6a", "220v", "2 module", "4 sq mm".
type Vocabulary struct {
	Categories map[string][]string `json:"categories"`
	Attributes map[string]string   `json:"attributes"`
}

var (
	reAmperage = regexp.MustCompile(`\b(\d{1,3})\s*a(?:mp)?\b`)
	reVoltage  = regexp.MustCompile(`\b(\d{2,4})\s*v(?:olt)?\b`)
	reModule   = regexp.MustCompile(`\b(\d{1,2})\s*module(?:s)?\b`)
	reGauge    = regexp.MustCompile(`\b(\d{1,3}(?:\.\d+)?)\s*sq\.?\s*mm\b`)
	reWay      = regexp.MustCompile(`\b(one|two|1|2)[\s-]*way\b`)
)

// DefaultVocabulary covers the modular-switch catalog the pipeline was
// built for. Deployments with a different product range override it with
// a JSON file (see LoadVocabulary).
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Categories: map[string][]string{
			"switch":    {"switches"},
			"socket":    {"sockets"},
			"plug":      {"sockets"},
			"light":     {"lighting"},
			"lamp":      {"lighting"},
			"led":       {"lighting"},
			"fan":       {"fans"},
			"regulator": {"fans"},
			"dimmer":    {"dimmers"},
			"usb":       {"usb"},
			"data":      {"data"},
			"rj45":      {"data"},
			"tv":        {"tv"},
			"audio":     {"audio"},
			"wire":      {"wires"},
			"cable":     {"wires"},
			"mcb":       {"protection"},
			"bell":      {"bells"},
			"plate":     {"plates"},
		},
		Attributes: map[string]string{
			"one-way": "switching",
			"two-way": "switching",
		},
	}
}

// LoadVocabulary reads a JSON vocabulary file. An empty path returns the
// default vocabulary unchanged.
func LoadVocabulary(path string) (Vocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultVocabulary(), nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	var v Vocabulary
	if err := json.Unmarshal(blob, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	if v.Categories == nil {
		v.Categories = map[string][]string{}
	}
	if v.Attributes == nil {
		v.Attributes = map[string]string{}
	}
	return v, nil
}

// CategoriesFor returns the catalog category tags implied by keywords in
// cleaned text, deduplicated, in stable order.
func (v Vocabulary) CategoriesFor(cleaned string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, token := range strings.Fields(cleaned) {
		tags, ok := v.Categories[token]
		if !ok {
			continue
		}
		for _, tag := range tags {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// TechTokens extracts normalized technical attribute tokens from cleaned
// text: amperage, voltage, module counts, wire gauge, switching ways,
// plus any literal tokens from the Attributes table.
func (v Vocabulary) TechTokens(cleaned string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(token string) {
		if token == "" {
			return
		}
		if _, dup := seen[token]; dup {
			return
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}

	for _, m := range reAmperage.FindAllStringSubmatch(cleaned, -1) {
		add(m[1] + "a")
	}
	for _, m := range reVoltage.FindAllStringSubmatch(cleaned, -1) {
		add(m[1] + "v")
	}
	for _, m := range reModule.FindAllStringSubmatch(cleaned, -1) {
		add(m[1] + " module")
	}
	for _, m := range reGauge.FindAllStringSubmatch(cleaned, -1) {
		add(m[1] + " sq mm")
	}
	for _, m := range reWay.FindAllStringSubmatch(cleaned, -1) {
		way := m[1]
		if way == "1" {
			way = "one"
		}
		if way == "2" {
			way = "two"
		}
		add(way + "-way")
	}
	for token := range v.Attributes {
		if strings.Contains(cleaned, token) {
			add(token)
		}
	}
	return out
}
