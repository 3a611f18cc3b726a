package catalog

import (
	"quotescan/internal"
	"quotescan/internal/util"
)

// Index is the in-memory lookup structure built once per snapshot. It is
// read-only after BuildIndex returns.
type Index struct {
	ProductsByID       map[int]internal.CatalogProduct
	ByName             map[string][]int
	ByCode             map[string][]int
	ByCategory         map[string][]int
	TokenToProductIDs  map[string]map[int]struct{}
	NormalizedNameByID map[int]string
	TechTokensByID     map[int][]string
}

// BuildIndex indexes active products by normalized name, code, category
// tag, and the tokens of name/description/code/category. Technical
// attribute tokens are extracted here, once, so tier-four matching never
// re-scans product text per request.
func BuildIndex(products []internal.CatalogProduct, vocab Vocabulary) *Index {
	idx := &Index{
		ProductsByID:       map[int]internal.CatalogProduct{},
		ByName:             map[string][]int{},
		ByCode:             map[string][]int{},
		ByCategory:         map[string][]int{},
		TokenToProductIDs:  map[string]map[int]struct{}{},
		NormalizedNameByID: map[int]string{},
		TechTokensByID:     map[int][]string{},
	}

	for _, p := range products {
		if !p.Active {
			continue
		}
		cleanedName := util.Clean(p.Name)
		p.TechTokens = vocab.TechTokens(cleanedName + " " + util.Clean(p.Description))

		idx.ProductsByID[p.ID] = p
		idx.NormalizedNameByID[p.ID] = cleanedName
		idx.ByName[cleanedName] = append(idx.ByName[cleanedName], p.ID)
		idx.TechTokensByID[p.ID] = p.TechTokens

		if p.Code != nil {
			if norm := util.NormalizeCode(*p.Code); norm != "" {
				idx.ByCode[norm] = append(idx.ByCode[norm], p.ID)
			}
		}

		for _, tag := range p.Categories {
			idx.ByCategory[tag] = append(idx.ByCategory[tag], p.ID)
		}

		searchable := p.Name + " " + p.Description
		if p.Code != nil {
			searchable += " " + *p.Code
		}
		for _, tag := range p.Categories {
			searchable += " " + tag
		}
		for _, token := range util.Tokenize(searchable) {
			if _, ok := idx.TokenToProductIDs[token]; !ok {
				idx.TokenToProductIDs[token] = map[int]struct{}{}
			}
			idx.TokenToProductIDs[token][p.ID] = struct{}{}
		}
	}

	return idx
}

// Product returns the indexed product by id.
func (idx *Index) Product(id int) (internal.CatalogProduct, bool) {
	p, ok := idx.ProductsByID[id]
	return p, ok
}
