// Package normalizer lower-cases forum text and strips punctuation and digits
// so that whitespace splitting yields comparable word tokens.
package normalizer

import "strings"

// removed lists every rune deleted by Normalize. '&' is deliberately absent.
const removed = "!\"#%'()*+,-./:;<=>?@[\\]^_`{|}~$1234567890"

var removeSet = func() map[rune]struct{} {
	m := make(map[rune]struct{}, len(removed))
	for _, r := range removed {
		m[r] = struct{}{}
	}
	return m
}()

// Normalize lower-cases text, deletes punctuation and digits and turns each
// newline into a single space. Every other rune passes through unchanged.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return ' '
		}
		if _, ok := removeSet[r]; ok {
			return -1
		}
		return r
	}, strings.ToLower(text))
}

// NormalizeNullable treats a nil text as empty.
func NormalizeNullable(text *string) string {
	if text == nil {
		return ""
	}
	return Normalize(*text)
}

// NormalizeAll normalizes every document, keeping index alignment.
func NormalizeAll(docs []string) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = Normalize(d)
	}
	return out
}
