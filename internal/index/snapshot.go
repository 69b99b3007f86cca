package index

import "sort"

// Snapshot is an immutable read view pinned to one committed generation.
// Later commits never show through an open snapshot.
type Snapshot struct {
	view *view
}

// Generation returns the committed generation this snapshot observes.
func (s *Snapshot) Generation() uint64 {
	return s.view.generation
}

// DocCount returns the number of live (non-deleted) documents.
func (s *Snapshot) DocCount() int {
	return s.view.liveDocs
}

func (s *Snapshot) live(id string) bool {
	_, dead := s.view.deleted[id]
	return !dead
}

// Postings returns the live posting list for term in field, ordered by
// document id. Only the newest segment holding an id contributes its
// postings, so a document re-added after deletion matches on its current
// content alone, never on terms from before the delete.
func (s *Snapshot) Postings(f Field, term string) []Posting {
	var out []Posting
	for i, seg := range s.view.segments {
		for _, p := range seg.Postings[f][term] {
			if s.live(p.DocID) && s.view.docSeg[p.DocID] == i {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}

// DocFreq returns the number of live documents containing term in field.
func (s *Snapshot) DocFreq(f Field, term string) int {
	n := 0
	for i, seg := range s.view.segments {
		for _, p := range seg.Postings[f][term] {
			if s.live(p.DocID) && s.view.docSeg[p.DocID] == i {
				n++
			}
		}
	}
	return n
}

// EachTerm calls fn once per distinct term indexed under field. Terms from
// fully deleted documents may still appear; their posting lists are empty.
func (s *Snapshot) EachTerm(f Field, fn func(term string)) {
	seen := make(map[string]struct{})
	for _, seg := range s.view.segments {
		for term := range seg.Postings[f] {
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			fn(term)
		}
	}
}

// Stored resolves the stored fields for a live document id from the newest
// segment holding it.
func (s *Snapshot) Stored(id string) (Stored, bool) {
	if !s.live(id) {
		return Stored{}, false
	}
	i, ok := s.view.docSeg[id]
	if !ok {
		return Stored{}, false
	}
	return s.view.segments[i].Docs[id], true
}

// Contains reports whether id is live in this snapshot.
func (s *Snapshot) Contains(id string) bool {
	if !s.live(id) {
		return false
	}
	_, ok := s.view.docSeg[id]
	return ok
}

// IDs returns every live document id, sorted. Used by the reconciliation
// sweep to diff index contents against the metadata store.
func (s *Snapshot) IDs() []string {
	out := make([]string, 0, len(s.view.docSeg))
	for id := range s.view.docSeg {
		if s.live(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
