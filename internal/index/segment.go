package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Posting records one document's occurrences of a term within a field.
type Posting struct {
	DocID string `json:"doc_id"`
	Freq  int    `json:"freq"`
}

// Stored holds the fields retrievable by document id without touching the
// metadata store.
type Stored struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// segment is an immutable batch of documents committed together. Posting
// lists are sorted by document id so merged iteration stays deterministic.
type segment struct {
	ID       uint64                        `json:"id"`
	Postings map[Field]map[string][]Posting `json:"postings"`
	Docs     map[string]Stored             `json:"docs"`
}

func newSegment(id uint64, docs []pendingDoc) *segment {
	seg := &segment{
		ID:       id,
		Postings: make(map[Field]map[string][]Posting, numFields),
		Docs:     make(map[string]Stored, len(docs)),
	}
	for f := Field(0); f < numFields; f++ {
		seg.Postings[f] = make(map[string][]Posting)
	}

	// Stable doc order keeps posting lists sorted by id.
	sorted := append([]pendingDoc(nil), docs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].stored.ID < sorted[j].stored.ID })

	for _, doc := range sorted {
		seg.Docs[doc.stored.ID] = doc.stored
		for f, freqs := range doc.terms {
			for term, freq := range freqs {
				seg.Postings[f][term] = append(seg.Postings[f][term], Posting{DocID: doc.stored.ID, Freq: freq})
			}
		}
	}
	return seg
}

func segmentFileName(id uint64) string {
	return fmt.Sprintf("seg-%012d.json", id)
}

// writeSegment persists the segment and fsyncs it before the manifest may
// reference it.
func writeSegment(dir string, seg *segment) error {
	data, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("marshal segment %d: %w", seg.ID, err)
	}

	path := filepath.Join(dir, segmentFileName(seg.ID))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create segment file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write segment file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close segment file: %w", err)
	}
	return nil
}

func loadSegment(dir string, id uint64) (*segment, error) {
	data, err := os.ReadFile(filepath.Join(dir, segmentFileName(id)))
	if err != nil {
		return nil, fmt.Errorf("read segment %d: %w", id, err)
	}
	var seg segment
	if err := json.Unmarshal(data, &seg); err != nil {
		return nil, fmt.Errorf("parse segment %d: %w", id, err)
	}
	for f := Field(0); f < numFields; f++ {
		if seg.Postings[f] == nil {
			seg.Postings[f] = make(map[string][]Posting)
		}
	}
	return &seg, nil
}
