package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anshulj/papershelf/internal/index"
)

type testDoc struct {
	id, title, body string
}

func buildSnapshot(t *testing.T, docs []testDoc) (*index.Index, *index.Snapshot) {
	t.Helper()
	ix, err := index.Open(t.TempDir())
	require.NoError(t, err)

	w := ix.Writer()
	for _, d := range docs {
		w.AddDocument(d.id, d.title, d.body)
	}
	_, err = w.Commit()
	require.NoError(t, err)
	return ix, ix.Snapshot()
}

func hitIDs(res Result) []string {
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.DocID)
	}
	return ids
}

func TestSearchEmptyQuery(t *testing.T) {
	ix, snap := buildSnapshot(t, []testDoc{{"a", "doc.pdf", "content"}})
	eng := NewEngine(ix.Schema())

	for _, q := range []string{"", "   ", "\t\n", "---"} {
		res := eng.Search(snap, Request{Query: q})
		assert.Empty(t, res.Hits, "query %q", q)
		assert.Zero(t, res.Total)
	}
}

func TestSearchConjunctiveDefault(t *testing.T) {
	ix, snap := buildSnapshot(t, []testDoc{
		{"a", "a.pdf", "alpha only here"},
		{"b", "b.pdf", "alpha beta together"},
	})
	eng := NewEngine(ix.Schema())

	res := eng.Search(snap, Request{Query: "alpha beta"})
	assert.Equal(t, []string{"b"}, hitIDs(res))
	assert.Equal(t, 1, res.Total)

	// A single term matches both.
	res = eng.Search(snap, Request{Query: "alpha"})
	assert.Len(t, res.Hits, 2)
}

func TestSearchMatchesAcrossFields(t *testing.T) {
	ix, snap := buildSnapshot(t, []testDoc{
		{"a", "quarterly report.pdf", "revenue figures"},
	})
	eng := NewEngine(ix.Schema())

	// One term hits the title, the other the body; conjunction still holds.
	res := eng.Search(snap, Request{Query: "quarterly revenue"})
	assert.Equal(t, []string{"a"}, hitIDs(res))
}

func TestSearchFieldRestriction(t *testing.T) {
	ix, snap := buildSnapshot(t, []testDoc{
		{"a", "budget.pdf", "nothing relevant"},
		{"b", "misc.pdf", "the annual budget discussion"},
	})
	eng := NewEngine(ix.Schema())

	res := eng.Search(snap, Request{Query: "budget", Fields: []index.Field{index.FieldTitle}})
	assert.Equal(t, []string{"a"}, hitIDs(res))

	res = eng.Search(snap, Request{Query: "budget", Fields: []index.Field{index.FieldBody}})
	assert.Equal(t, []string{"b"}, hitIDs(res))
}

func TestSearchExactTitleRanksFirst(t *testing.T) {
	docs := []testDoc{
		{"target", "annual report.pdf", "annual report full text"},
	}
	for i := 0; i < 8; i++ {
		docs = append(docs, testDoc{
			fmt.Sprintf("filler-%d", i), fmt.Sprintf("misc-%d.pdf", i),
			"mentions annual report once among much other unrelated text body filler words",
		})
	}
	ix, snap := buildSnapshot(t, docs)
	eng := NewEngine(ix.Schema())

	res := eng.Search(snap, Request{Query: "annual report", Limit: 3})
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "target", res.Hits[0].DocID)
}

func TestSearchLimitAndTotal(t *testing.T) {
	var docs []testDoc
	for i := 0; i < 9; i++ {
		docs = append(docs, testDoc{fmt.Sprintf("doc-%d", i), "x.pdf", "common term"})
	}
	ix, snap := buildSnapshot(t, docs)
	eng := NewEngine(ix.Schema())

	res := eng.Search(snap, Request{Query: "common"})
	assert.Len(t, res.Hits, DefaultLimit)
	assert.Equal(t, 9, res.Total)

	res = eng.Search(snap, Request{Query: "common", Limit: 100})
	assert.Len(t, res.Hits, 9)
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	ix, snap := buildSnapshot(t, []testDoc{
		{"b", "same.pdf", "tied term"},
		{"a", "same.pdf", "tied term"},
		{"c", "same.pdf", "tied term"},
	})
	eng := NewEngine(ix.Schema())

	res := eng.Search(snap, Request{Query: "tied"})
	assert.Equal(t, []string{"a", "b", "c"}, hitIDs(res))
}

func TestSearchFuzzy(t *testing.T) {
	ix, snap := buildSnapshot(t, []testDoc{
		{"a", "fruit.pdf", "the apple orchard"},
	})
	eng := NewEngine(ix.Schema())

	// "aple" is one edit from "apple": matches only with fuzzy enabled.
	res := eng.Search(snap, Request{Query: "aple"})
	assert.Empty(t, res.Hits)

	res = eng.Search(snap, Request{Query: "aple", Fuzzy: true})
	assert.Equal(t, []string{"a"}, hitIDs(res))
}

func TestSearchFuzzyDistanceByLength(t *testing.T) {
	ix, snap := buildSnapshot(t, []testDoc{
		{"a", "terms.pdf", "cat elephant"},
	})
	eng := NewEngine(ix.Schema())

	// Short terms only tolerate one edit: "ct" matches "cat", "cxy" does not.
	res := eng.Search(snap, Request{Query: "ct", Fuzzy: true})
	assert.Equal(t, []string{"a"}, hitIDs(res))
	res = eng.Search(snap, Request{Query: "cxy", Fuzzy: true})
	assert.Empty(t, res.Hits)

	// Long terms tolerate two edits.
	res = eng.Search(snap, Request{Query: "elephnt", Fuzzy: true})
	assert.Equal(t, []string{"a"}, hitIDs(res))
}

func TestSearchFuzzyTermDegradesNotFails(t *testing.T) {
	ix, snap := buildSnapshot(t, []testDoc{
		{"a", "doc.pdf", "alpha beta"},
	})
	eng := NewEngine(ix.Schema())

	// A hopeless term yields an empty match set for itself; the request
	// still evaluates and returns a result rather than an error.
	res := eng.Search(snap, Request{Query: "alpha zzzzzzzzzzzz", Fuzzy: true})
	assert.Empty(t, res.Hits)
	assert.Zero(t, res.Total)
}

func TestSearchDeletedDocsExcluded(t *testing.T) {
	ix, err := index.Open(t.TempDir())
	require.NoError(t, err)
	w := ix.Writer()
	w.AddDocument("a", "gone.pdf", "unique terms here")
	_, err = w.Commit()
	require.NoError(t, err)
	w.DeleteByID("a")
	_, err = w.Commit()
	require.NoError(t, err)

	eng := NewEngine(ix.Schema())
	res := eng.Search(ix.Snapshot(), Request{Query: "unique"})
	assert.Empty(t, res.Hits)
}

func TestParseFields(t *testing.T) {
	ix, _ := buildSnapshot(t, nil)
	eng := NewEngine(ix.Schema())

	assert.Equal(t, []index.Field{index.FieldTitle}, eng.ParseFields("title"))
	assert.Equal(t, []index.Field{index.FieldBody, index.FieldTitle}, eng.ParseFields("body, title"))
	// Unknown or empty specs fall back to the defaults.
	assert.Equal(t, ix.Schema().DefaultFields(), eng.ParseFields(""))
	assert.Equal(t, ix.Schema().DefaultFields(), eng.ParseFields("bogus"))
}

func TestWithinDistance(t *testing.T) {
	assert.True(t, withinDistance("apple", "aple", 1))
	assert.True(t, withinDistance("apple", "apple", 0))
	assert.False(t, withinDistance("apple", "apply", 0))
	assert.True(t, withinDistance("elephant", "elephnt", 2))
	assert.False(t, withinDistance("cat", "dog", 2))
	assert.False(t, withinDistance("a", "abcd", 2))
}
