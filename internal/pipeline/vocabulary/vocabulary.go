// Package vocabulary builds the shared term set used as matrix columns and
// restricts documents to it.
package vocabulary

import (
	"sort"
	"strings"
)

// Vocabulary is an immutable set of terms with a fixed lexicographic column
// order.
type Vocabulary struct {
	terms []string
	index map[string]int
}

// New builds a Vocabulary from terms, dropping duplicates and empty strings.
func New(terms []string) *Vocabulary {
	seen := make(map[string]struct{}, len(terms))
	sorted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)
	index := make(map[string]int, len(sorted))
	for i, t := range sorted {
		index[t] = i
	}
	return &Vocabulary{terms: sorted, index: index}
}

// CountTerms splits each document on whitespace and sums token occurrences
// across all of them.
func CountTerms(docs []string) map[string]int {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, tok := range strings.Fields(doc) {
			counts[tok]++
		}
	}
	return counts
}

// Build keeps every token whose total count is at least cutoff and which is
// not a stopword. Documents are expected to be normalized already. A cutoff
// of zero or less keeps every token.
func Build(docs []string, cutoff int, stopwords Stopwords) *Vocabulary {
	counts := CountTerms(docs)
	kept := make([]string, 0, len(counts))
	for term, n := range counts {
		if n < cutoff {
			continue
		}
		if stopwords.Contains(term) {
			continue
		}
		kept = append(kept, term)
	}
	return New(kept)
}

// Terms returns the terms in column order. The slice must not be modified.
func (v *Vocabulary) Terms() []string {
	return v.terms
}

func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Index returns the column of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Columns returns a copy of the term -> column map.
func (v *Vocabulary) Columns() map[string]int {
	out := make(map[string]int, len(v.index))
	for t, i := range v.index {
		out[t] = i
	}
	return out
}

func (v *Vocabulary) Contains(term string) bool {
	_, ok := v.index[term]
	return ok
}
