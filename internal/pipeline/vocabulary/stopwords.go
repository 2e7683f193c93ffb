package vocabulary

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/normalizer"
)

// english is the NLTK English stop-word list.
var english = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
	"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he",
	"him", "his", "himself", "she", "she's", "her", "hers", "herself", "it", "it's",
	"its", "itself", "they", "them", "their", "theirs", "themselves", "what", "which",
	"who", "whom", "this", "that", "that'll", "these", "those", "am", "is", "are",
	"was", "were", "be", "been", "being", "have", "has", "had", "having", "do",
	"does", "did", "doing", "a", "an", "the", "and", "but", "if", "or", "because",
	"as", "until", "while", "of", "at", "by", "for", "with", "about", "against",
	"between", "into", "through", "during", "before", "after", "above", "below", "to",
	"from", "up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how", "all",
	"any", "both", "each", "few", "more", "most", "other", "some", "such", "no",
	"nor", "not", "only", "own", "same", "so", "than", "too", "very", "s", "t",
	"can", "will", "just", "don", "don't", "should", "should've", "now", "d", "ll",
	"m", "o", "re", "ve", "y", "ain", "aren", "aren't", "couldn", "couldn't",
	"didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn", "hasn't",
	"haven", "haven't", "isn", "isn't", "ma", "mightn", "mightn't", "mustn",
	"mustn't", "needn", "needn't", "shan", "shan't", "shouldn", "shouldn't", "wasn",
	"wasn't", "weren", "weren't", "won", "won't", "wouldn", "wouldn't",
}

// Stopwords is a set of normalized tokens excluded from the vocabulary.
type Stopwords map[string]struct{}

// NewStopwords normalizes every word so it compares equal to normalized
// corpus tokens ("don't" becomes "dont"). Words that normalize to nothing
// are dropped.
func NewStopwords(words ...string) Stopwords {
	s := make(Stopwords, len(words))
	for _, w := range words {
		for _, tok := range strings.Fields(normalizer.Normalize(w)) {
			s[tok] = struct{}{}
		}
	}
	return s
}

// English returns the built-in English list.
func English() Stopwords {
	return NewStopwords(english...)
}

// Contains reports whether tok is a stopword.
func (s Stopwords) Contains(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Add merges other into s.
func (s Stopwords) Add(other Stopwords) {
	for w := range other {
		s[w] = struct{}{}
	}
}

// LoadStopwords resolves a named list ("english" or "none"), an optional
// newline-separated file and extra words into one set.
func LoadStopwords(name string, file string, extra []string) (Stopwords, error) {
	var s Stopwords
	switch name {
	case "", "none":
		s = NewStopwords()
	case "english":
		s = English()
	default:
		return nil, fmt.Errorf("unknown stopword list %q", name)
	}
	if file != "" {
		words, err := readWordFile(file)
		if err != nil {
			return nil, err
		}
		s.Add(NewStopwords(words...))
	}
	s.Add(NewStopwords(extra...))
	return s, nil
}

func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stopwords file: %w", err)
	}
	defer f.Close()
	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stopwords file: %w", err)
	}
	return words, nil
}
