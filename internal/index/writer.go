package index

import (
	"fmt"
	"sync"

	"github.com/anshulj/papershelf/pkg/analysis"
)

// pendingDoc is an added document tokenized at write time but not yet
// committed.
type pendingDoc struct {
	stored Stored
	terms  map[Field]map[string]int
}

// Writer is the index's only mutation path. One logical writer exists per
// index; its mutex serializes AddDocument, DeleteByID and Commit across all
// concurrent ingestions and deletions, so commits are totally ordered and a
// batch is never published half-built.
type Writer struct {
	ix *Index

	mu             sync.Mutex
	pendingAdds    []pendingDoc
	pendingDeletes map[string]struct{}
}

// AddDocument tokenizes title and body and stages the document in the
// pending batch. Readers see nothing until Commit. Staging an id that is
// already pending replaces the earlier entry, so a retried or re-driven add
// never publishes the same document twice in one segment.
func (w *Writer) AddDocument(id, title, body string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := pendingDoc{
		stored: Stored{ID: id, Title: title},
		terms: map[Field]map[string]int{
			FieldTitle: analysis.TermFrequencies(title),
			FieldBody:  analysis.TermFrequencies(body),
		},
	}

	replaced := false
	for i, pending := range w.pendingAdds {
		if pending.stored.ID == id {
			w.pendingAdds[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		w.pendingAdds = append(w.pendingAdds, doc)
	}
	// A re-added id is live again.
	delete(w.pendingDeletes, id)
}

// DeleteByID stages removal of every posting and stored field for id. The
// next Commit guarantees the id resolves nowhere.
func (w *Writer) DeleteByID(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pendingDeletes[id] = struct{}{}
	// Drop uncommitted adds for the same id so the tombstone wins.
	kept := w.pendingAdds[:0]
	for _, doc := range w.pendingAdds {
		if doc.stored.ID != id {
			kept = append(kept, doc)
		}
	}
	w.pendingAdds = kept
}

// Commit atomically publishes the pending batch as a new generation and
// returns its number. On error nothing is published and the pending batch is
// retained for a retry.
func (w *Writer) Commit() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ix.mu.RLock()
	prev := w.ix.current
	w.ix.mu.RUnlock()

	gen := prev.generation + 1

	next := &view{
		generation: gen,
		segments:   prev.segments,
		deleted:    prev.deleted,
	}

	if len(w.pendingAdds) > 0 {
		seg := newSegment(gen, w.pendingAdds)
		if err := writeSegment(w.ix.dir, seg); err != nil {
			return 0, fmt.Errorf("persist segment: %w", err)
		}
		next.segments = append(append([]*segment(nil), prev.segments...), seg)
	}

	if len(w.pendingDeletes) > 0 || len(w.pendingAdds) > 0 {
		next.deleted = make(map[string]struct{}, len(prev.deleted)+len(w.pendingDeletes))
		for id := range prev.deleted {
			next.deleted[id] = struct{}{}
		}
		for id := range w.pendingDeletes {
			next.deleted[id] = struct{}{}
		}
		// Re-added documents shed their tombstones.
		for _, doc := range w.pendingAdds {
			delete(next.deleted, doc.stored.ID)
		}
	}

	m := &manifest{Generation: gen, Segments: make([]uint64, 0, len(next.segments))}
	for _, seg := range next.segments {
		m.Segments = append(m.Segments, seg.ID)
	}
	for id := range next.deleted {
		m.Deleted = append(m.Deleted, id)
	}

	// The rename inside writeManifest is the durability point: before it the
	// commit is invisible, after it the commit is fully visible.
	if err := writeManifest(w.ix.dir, m); err != nil {
		return 0, err
	}

	next.refresh()
	w.ix.publish(next)

	w.pendingAdds = nil
	w.pendingDeletes = make(map[string]struct{})

	return gen, nil
}
