package vocabulary

import "strings"

// Filter keeps the tokens of text that are in v, in their original order,
// joined by single spaces. Text with no retained token becomes "".
func Filter(text string, v *Vocabulary) string {
	tokens := strings.Fields(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if v.Contains(tok) {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// FilterAll filters every document, keeping index alignment.
func FilterAll(docs []string, v *Vocabulary) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = Filter(d, v)
	}
	return out
}
