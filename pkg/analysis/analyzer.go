// Package analysis provides the tokenizer shared by the index write path and
// the query engine. Both sides must tokenize identically or query terms will
// never line up with indexed terms.
package analysis

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it on non-alphanumeric boundaries,
// dropping empty tokens. It is deterministic and allocation-light; no
// stemming or stop-word removal is applied.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	lowered := strings.ToLower(text)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TermFrequencies tokenizes text and counts occurrences per term.
func TermFrequencies(text string) map[string]int {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	freqs := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freqs[t]++
	}
	return freqs
}
