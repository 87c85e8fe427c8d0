// Package refine turns a free-text search query into the set of sub-queries
// fanned out by multi-search: distinct word stems plus the raw query itself.
package refine

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Segment tokenizes on non-alphanumeric boundaries, lowercases, drops
// English stop words, and stems what remains. Stems are deduplicated in
// first-seen order; the raw query is always appended last so exact phrasing
// still competes in retrieval.
func Segment(query string) []string {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	segments := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		word := strings.ToLower(token)
		if _, stop := stopWords[word]; stop {
			continue
		}
		stem := english.Stem(word, false)
		if stem == "" {
			continue
		}
		if _, dup := seen[stem]; dup {
			continue
		}
		seen[stem] = struct{}{}
		segments = append(segments, stem)
	}

	return append(segments, query)
}
