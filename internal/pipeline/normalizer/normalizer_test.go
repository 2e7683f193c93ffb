package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"sentence", "The cat sat.", "the cat sat"},
		{"exclamation", "The cat ran!", "the cat ran"},
		{"digits removed", "AMA 2014, round 2", "ama  round "},
		{"newline becomes space", "first line\nsecond", "first line second"},
		{"carriage return kept", "a\r\nb", "a\r b"},
		{"apostrophe removed", "Don't stop", "dont stop"},
		{"ampersand kept", "Q&A", "q&a"},
		{"dollar removed", "$100 bill", " bill"},
		{"non-ascii passes through", "Café Ünïcode — ok", "café ünïcode — ok"},
		{"brackets and backslash", `[link](http://x.y/z\w)`, "linkhttpxyzw"},
		{"underscore and backtick", "snake_case `code`", "snakecase code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"The cat sat.",
		"Hello, World!!! 123\nNEW line",
		"Ünïcode, émoji 🙂 & symbols {|}~",
		strings.Repeat("I'm  here -- #42 ", 20),
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeNullable(t *testing.T) {
	assert.Equal(t, "", NormalizeNullable(nil))
	s := "Hi!"
	assert.Equal(t, "hi", NormalizeNullable(&s))
}

func TestNormalizeAllKeepsAlignment(t *testing.T) {
	got := NormalizeAll([]string{"A.", "", "B!"})
	assert.Equal(t, []string{"a", "", "b"}, got)
}
