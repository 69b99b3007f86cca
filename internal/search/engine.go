// Package search evaluates user queries against an index snapshot: shared
// tokenization, conjunctive matching, optional fuzzy term expansion, and
// TF-IDF ranking with deterministic ordering.
package search

import (
	"math"
	"sort"
	"strings"

	"github.com/anshulj/papershelf/internal/index"
	"github.com/anshulj/papershelf/pkg/analysis"
)

// DefaultLimit bounds the returned page when the caller gives none.
const DefaultLimit = 5

// Request describes one search. Fields defaults to the schema's searchable
// fields; Limit defaults to DefaultLimit.
type Request struct {
	Query  string
	Fields []index.Field
	Limit  int
	Fuzzy  bool
}

// Hit is one ranked result.
type Hit struct {
	DocID string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Result is the ranked page plus the total match count, which may exceed the
// page length.
type Result struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
}

// Engine runs queries against snapshots of one index.
type Engine struct {
	schema *index.Schema
}

func NewEngine(schema *index.Schema) *Engine {
	return &Engine{schema: schema}
}

// ParseFields resolves comma-separated field names into typed handles,
// falling back to the default searchable fields when the list is empty or
// names nothing known.
func (e *Engine) ParseFields(spec string) []index.Field {
	var fields []index.Field
	for _, name := range strings.Split(spec, ",") {
		if f, ok := e.schema.Lookup(strings.TrimSpace(name)); ok {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return e.schema.DefaultFields()
	}
	return fields
}

// Search evaluates req against snap. Every query term must match in at least
// one of the requested fields (conjunctive default); with Fuzzy set, a term
// also matches indexed terms within a length-scaled edit distance. An empty
// or whitespace query returns an empty result, not an error.
func (e *Engine) Search(snap *index.Snapshot, req Request) Result {
	terms := analysis.Tokenize(req.Query)
	if len(terms) == 0 {
		return Result{Hits: []Hit{}}
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = e.schema.DefaultFields()
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	totalDocs := snap.DocCount()
	if totalDocs == 0 {
		return Result{Hits: []Hit{}}
	}

	// scores accumulates TF-IDF per candidate; matched counts how many of
	// the conjunctive terms each candidate satisfied.
	scores := make(map[string]float64)
	matched := make(map[string]int)

	for _, term := range terms {
		variants := []string{term}
		if req.Fuzzy {
			variants = expandFuzzy(snap, fields, term)
		}

		termDocs := make(map[string]struct{})
		for _, variant := range variants {
			for _, f := range fields {
				df := snap.DocFreq(f, variant)
				if df == 0 {
					continue
				}
				idf := math.Log(1 + float64(totalDocs)/float64(df))
				for _, p := range snap.Postings(f, variant) {
					scores[p.DocID] += float64(p.Freq) * idf
					termDocs[p.DocID] = struct{}{}
				}
			}
		}
		// A term with no matches anywhere (including a degraded fuzzy term)
		// simply contributes no candidates; evaluation continues and the
		// conjunction filter below does the rest.
		for id := range termDocs {
			matched[id]++
		}
	}

	var hits []Hit
	for id, n := range matched {
		if n != len(terms) {
			continue
		}
		stored, ok := snap.Stored(id)
		if !ok {
			continue
		}
		hits = append(hits, Hit{DocID: id, Title: stored.Title, Score: scores[id]})
	}

	// Rank by score, ties broken by id so ordering is reproducible.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})

	total := len(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []Hit{}
	}
	return Result{Hits: hits, Total: total}
}
