// Package anonymizer replaces raw identifiers (usernames, submission ids)
// with dense zero-based integer codes through a fixed bijection.
package anonymizer

import (
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
)

// MissingIdentifierError reports a value absent from the identifier universe.
type MissingIdentifierError struct {
	Value    string
	Position int
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("identifier %q at position %d is not in the index", e.Value, e.Position)
}

func (e *MissingIdentifierError) Unwrap() error {
	return apperrors.ErrMissingIdentifier
}

// Index maps each identifier to its position in the ordered list it was built
// from.
type Index struct {
	values []string
	lookup map[string]int
}

// NewIndex builds the bijection. Duplicate or empty identifiers are rejected
// since either would break decoding.
func NewIndex(orderedUnique []string) (*Index, error) {
	lookup := make(map[string]int, len(orderedUnique))
	for i, v := range orderedUnique {
		if v == "" {
			return nil, apperrors.Newf(apperrors.ErrMalformedRecord, "empty identifier at position %d", i)
		}
		if prev, ok := lookup[v]; ok {
			return nil, fmt.Errorf("identifier %q repeated at positions %d and %d", v, prev, i)
		}
		lookup[v] = i
	}
	values := make([]string, len(orderedUnique))
	copy(values, orderedUnique)
	return &Index{values: values, lookup: lookup}, nil
}

func (ix *Index) Len() int {
	return len(ix.values)
}

// Values returns the identifiers in code order. The slice must not be
// modified.
func (ix *Index) Values() []string {
	return ix.values
}

// Code returns the integer assigned to value.
func (ix *Index) Code(value string) (int, bool) {
	c, ok := ix.lookup[value]
	return c, ok
}

// Encode maps every value to its code. Output length equals input length.
func (ix *Index) Encode(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		c, ok := ix.lookup[v]
		if !ok {
			return nil, &MissingIdentifierError{Value: v, Position: i}
		}
		out[i] = c
	}
	return out, nil
}

// Decode maps codes back to identifiers.
func (ix *Index) Decode(codes []int) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(ix.values) {
			return nil, fmt.Errorf("code %d at position %d out of range [0,%d)", c, i, len(ix.values))
		}
		out[i] = ix.values[c]
	}
	return out, nil
}

// Anonymize encodes values against orderedUnique in one step.
func Anonymize(values []string, orderedUnique []string) ([]int, error) {
	ix, err := NewIndex(orderedUnique)
	if err != nil {
		return nil, err
	}
	return ix.Encode(values)
}

// CanonicalOrder returns the distinct values of all lists sorted
// lexicographically. Sorting makes codes independent of the order rows come
// back from storage.
func CanonicalOrder(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
