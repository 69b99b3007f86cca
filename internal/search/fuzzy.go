package search

import (
	"unicode/utf8"

	"github.com/anshulj/papershelf/internal/index"
)

// fuzzyDistance picks the allowed edit distance for a query term: short
// strings tolerate a single edit, terms of five or more runes tolerate two.
func fuzzyDistance(term string) int {
	if utf8.RuneCountInString(term) >= 5 {
		return 2
	}
	return 1
}

// expandFuzzy returns term plus every indexed term within the allowed edit
// distance in any of the searched fields. The exact term is always first so
// exact matches are never lost to the expansion.
func expandFuzzy(snap *index.Snapshot, fields []index.Field, term string) []string {
	maxDist := fuzzyDistance(term)

	seen := map[string]struct{}{term: {}}
	variants := []string{term}

	for _, f := range fields {
		snap.EachTerm(f, func(candidate string) {
			if _, dup := seen[candidate]; dup {
				return
			}
			if withinDistance(term, candidate, maxDist) {
				seen[candidate] = struct{}{}
				variants = append(variants, candidate)
			}
		})
	}
	return variants
}

// withinDistance reports whether the Levenshtein distance between a and b is
// at most max, with a cheap length-difference cutoff first.
func withinDistance(a, b string, max int) bool {
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > max {
		return false
	}
	return levenshtein(ra, rb) <= max
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
