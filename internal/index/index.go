package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const manifestName = "MANIFEST.json"

// manifest is the durable commit record. A generation is visible iff the
// manifest referencing it has been renamed into place, so a crash mid-commit
// leaves at worst an unreferenced segment file behind.
type manifest struct {
	Generation uint64   `json:"generation"`
	Segments   []uint64 `json:"segments"`
	Deleted    []string `json:"deleted"`
}

// view is one fully committed generation. Views are immutable once published;
// commits swap in a fresh view rather than mutating the current one.
type view struct {
	generation uint64
	segments   []*segment
	deleted    map[string]struct{}
	// docSeg maps each id to the newest segment holding it. Only that
	// segment's postings count for the id, so a re-add supersedes every
	// older segment's content instead of stacking with it.
	docSeg   map[string]int
	liveDocs int
}

func (v *view) refresh() {
	v.docSeg = make(map[string]int)
	for i, seg := range v.segments {
		for id := range seg.Docs {
			v.docSeg[id] = i
		}
	}
	v.liveDocs = 0
	for id := range v.docSeg {
		if _, dead := v.deleted[id]; !dead {
			v.liveDocs++
		}
	}
}

// Index is the generational inverted index. All mutations go through the
// single Writer; readers take snapshots and never block the write path.
type Index struct {
	dir    string
	schema *Schema

	mu      sync.RWMutex // guards current
	current *view

	writer     *Writer
	writerOnce sync.Once
}

// Open loads the index at dir, creating an empty generation-zero index when
// the directory holds none.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	ix := &Index{dir: dir, schema: NewSchema()}

	m, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		empty := &view{generation: 0, deleted: make(map[string]struct{})}
		empty.refresh()
		ix.current = empty
		return ix, nil
	}

	v := &view{
		generation: m.Generation,
		segments:   make([]*segment, 0, len(m.Segments)),
		deleted:    make(map[string]struct{}, len(m.Deleted)),
	}
	for _, segID := range m.Segments {
		seg, err := loadSegment(dir, segID)
		if err != nil {
			return nil, err
		}
		v.segments = append(v.segments, seg)
	}
	for _, id := range m.Deleted {
		v.deleted[id] = struct{}{}
	}
	v.refresh()

	ix.current = v
	return ix, nil
}

// Schema returns the typed field descriptor resolved at open time.
func (ix *Index) Schema() *Schema {
	return ix.schema
}

// Writer returns the index's single logical writer session. Every call
// returns the same session; its methods serialize concurrent mutators.
func (ix *Index) Writer() *Writer {
	ix.writerOnce.Do(func() {
		ix.writer = &Writer{ix: ix, pendingDeletes: make(map[string]struct{})}
	})
	return ix.writer
}

// Snapshot pins the current committed generation. Commits that complete
// after this call do not affect the returned snapshot.
func (ix *Index) Snapshot() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return &Snapshot{view: ix.current}
}

// publish makes v the current committed view.
func (ix *Index) publish(v *view) {
	ix.mu.Lock()
	ix.current = v
	ix.mu.Unlock()
}

func readManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// writeManifest persists m atomically: write a temp file, fsync, rename over
// the live manifest.
func writeManifest(dir string, m *manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp := filepath.Join(dir, manifestName+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create manifest temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync manifest temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, manifestName)); err != nil {
		return fmt.Errorf("swap manifest: %w", err)
	}
	return nil
}
