package mem

import (
	"strings"
	"unicode"
)

// minTokenLength drops single-character fragments left by splitting.
const minTokenLength = 2

// defaultStopwords is the built-in stopword set, collapsed at
// tokenization time. Callers can replace it via NewIndex.
var defaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
	"from", "has", "have", "if", "in", "is", "it", "its", "not", "of",
	"on", "or", "that", "the", "this", "to", "was", "were", "will",
	"with",
}

// Tokenize lowercases text, splits on non-alphanumeric boundaries,
// drops tokens shorter than two characters and collapses stopwords.
// Indexing and querying must use the same tokenization, so this is the
// single implementation for both.
func (idx *Index) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTokenLength {
			continue
		}
		if _, stop := idx.stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
