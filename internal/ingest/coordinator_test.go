package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anshulj/papershelf/internal/blob"
	"github.com/anshulj/papershelf/internal/index"
	"github.com/anshulj/papershelf/internal/models"
)

type fakeMeta struct {
	mu         sync.Mutex
	docs       map[string]models.Document
	failNext   bool
	failDelete bool
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{docs: make(map[string]models.Document)}
}

func (m *fakeMeta) Insert(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		return errors.New("metadata down")
	}
	doc.CreatedAt = time.Now()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *fakeMeta) Get(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	return &doc, nil
}

func (m *fakeMeta) ListAll(_ context.Context) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *fakeMeta) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errors.New("metadata down")
	}
	delete(m.docs, id)
	return nil
}

// memBlob is an in-memory blob.Store with failure injection.
type memBlob struct {
	mu         sync.Mutex
	objects    map[string][]byte
	types      map[string]string
	failPut    bool
	failDelete bool
	signed     int
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (b *memBlob) EnsureBucket(context.Context) error { return nil }

func (b *memBlob) Put(_ context.Context, key, contentType string, data io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPut {
		return errors.New("blob store down")
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.objects[key] = buf
	b.types[key] = contentType
	return nil
}

func (b *memBlob) Get(_ context.Context, key string) (*blob.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return &blob.Object{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   b.types[key],
		ContentLength: int64(len(data)),
	}, nil
}

func (b *memBlob) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete {
		return errors.New("blob store down")
	}
	delete(b.objects, key)
	delete(b.types, key)
	return nil
}

func (b *memBlob) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signed++
	return "https://blobs.test/sign/" + key, nil
}

func (b *memBlob) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

func (b *memBlob) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for k := range b.objects {
		out = append(out, k)
	}
	return out
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) ExtractText(context.Context, string) (string, error) {
	return e.text, e.err
}

type fakeRenderer struct {
	png []byte
	err error
}

func (r *fakeRenderer) RenderThumbnail(context.Context, string) ([]byte, error) {
	return r.png, r.err
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	calls int
}

func (e *fakeEnqueuer) EnqueueReconcile(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return nil
}

func (e *fakeEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// coordinatorUnderTest bundles the coordinator with its fakes for assertions.
type coordinatorUnderTest struct {
	*Coordinator
	meta     *fakeMeta
	blobs    *memBlob
	idx      *index.Index
	enqueuer *fakeEnqueuer
	indexDir string
}

func newTestCoordinator(t *testing.T, opts ...func(*testDeps)) *coordinatorUnderTest {
	t.Helper()

	deps := &testDeps{
		extractor: &fakeExtractor{text: "quarterly revenue grew strongly"},
		renderer:  &fakeRenderer{png: []byte("png-bytes")},
	}
	for _, o := range opts {
		o(deps)
	}

	dir := t.TempDir()
	ix, err := index.Open(dir)
	require.NoError(t, err)

	meta := newFakeMeta()
	blobs := newMemBlob()
	enq := &fakeEnqueuer{}

	coord := NewCoordinator(meta, blobs, ix, deps.extractor, deps.renderer,
		WithReconcileEnqueuer(enq))

	return &coordinatorUnderTest{
		Coordinator: coord,
		meta:        meta,
		blobs:       blobs,
		idx:         ix,
		enqueuer:    enq,
		indexDir:    dir,
	}
}

type testDeps struct {
	extractor *fakeExtractor
	renderer  *fakeRenderer
}

func TestIngestSuccess(t *testing.T) {
	c := newTestCoordinator(t)

	doc, err := c.Ingest(context.Background(), "report.pdf", strings.NewReader("%PDF fake bytes"))
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "report.pdf", doc.Title)
	assert.NotEmpty(t, doc.ID)
	assert.True(t, doc.HasThumbnail())

	// All three stores agree.
	_, err = c.meta.Get(context.Background(), doc.ID)
	assert.NoError(t, err)
	assert.True(t, c.blobs.has(blob.ObjectKey(doc.ID, blob.DocumentObject)))
	assert.True(t, c.blobs.has(blob.ObjectKey(doc.ID, blob.ThumbnailObject)))

	snap := c.idx.Snapshot()
	assert.True(t, snap.Contains(doc.ID))
	require.Len(t, snap.Postings(index.FieldBody, "quarterly"), 1)
}

func TestIngestValidation(t *testing.T) {
	c := newTestCoordinator(t)

	var vErr *ValidationError

	_, err := c.Ingest(context.Background(), "  ", strings.NewReader("data"))
	require.ErrorAs(t, err, &vErr)

	_, err = c.Ingest(context.Background(), "empty.pdf", strings.NewReader(""))
	require.ErrorAs(t, err, &vErr)

	// No durable side effects.
	assert.Empty(t, c.blobs.keys())
	assert.Equal(t, 0, c.idx.Snapshot().DocCount())
}

func TestIngestTextExtractionFatal(t *testing.T) {
	c := newTestCoordinator(t, func(d *testDeps) {
		d.extractor = &fakeExtractor{err: errors.New("not a pdf")}
	})

	_, err := c.Ingest(context.Background(), "broken.pdf", strings.NewReader("junk"))

	var xErr *ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, "text", xErr.Artifact)

	assert.Empty(t, c.blobs.keys())
	docs, _ := c.meta.ListAll(context.Background())
	assert.Empty(t, docs)
	assert.Equal(t, 0, c.idx.Snapshot().DocCount())
}

func TestIngestThumbnailFailureNonFatal(t *testing.T) {
	c := newTestCoordinator(t, func(d *testDeps) {
		d.renderer = &fakeRenderer{err: errors.New("render crashed")}
	})

	doc, err := c.Ingest(context.Background(), "noimg.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	assert.False(t, doc.HasThumbnail())
	assert.True(t, c.blobs.has(blob.ObjectKey(doc.ID, blob.DocumentObject)))
	assert.False(t, c.blobs.has(blob.ObjectKey(doc.ID, blob.ThumbnailObject)))

	// Still fully searchable.
	assert.True(t, c.idx.Snapshot().Contains(doc.ID))
}

func TestIngestBlobFailureAborts(t *testing.T) {
	c := newTestCoordinator(t)
	c.blobs.failPut = true

	_, err := c.Ingest(context.Background(), "doc.pdf", strings.NewReader("%PDF"))

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)

	docs, _ := c.meta.ListAll(context.Background())
	assert.Empty(t, docs)
	assert.Equal(t, 0, c.idx.Snapshot().DocCount())
}

func TestIngestMetadataFailureLeavesOrphanOnly(t *testing.T) {
	c := newTestCoordinator(t)
	c.meta.failNext = true

	_, err := c.Ingest(context.Background(), "doc.pdf", strings.NewReader("%PDF"))

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)

	// Orphaned blobs are acceptable: nothing references them and nothing is
	// searchable.
	assert.NotEmpty(t, c.blobs.keys())
	assert.Equal(t, 0, c.idx.Snapshot().DocCount())
}

func TestIngestCommitFailureEnqueuesReconcile(t *testing.T) {
	c := newTestCoordinator(t)

	// Destroying the index directory makes every commit attempt fail.
	require.NoError(t, os.RemoveAll(c.indexDir))

	_, err := c.Ingest(context.Background(), "doc.pdf", strings.NewReader("%PDF"))

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "commit index", sErr.Op)

	// Blobs and metadata are durable, the document is just not searchable;
	// the sweep was asked to re-drive the commit.
	docs, _ := c.meta.ListAll(context.Background())
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, c.enqueuer.count())
}

func TestDeleteSuccess(t *testing.T) {
	c := newTestCoordinator(t)

	doc, err := c.Ingest(context.Background(), "doomed.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	require.NoError(t, c.Delete(context.Background(), doc.ID))

	assert.False(t, c.idx.Snapshot().Contains(doc.ID))
	assert.Empty(t, c.blobs.keys())
	docs, _ := c.meta.ListAll(context.Background())
	assert.Empty(t, docs)
}

func TestDeleteBlobFailureAfterIndexRemoval(t *testing.T) {
	c := newTestCoordinator(t)

	doc, err := c.Ingest(context.Background(), "sticky.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	c.blobs.failDelete = true
	err = c.Delete(context.Background(), doc.ID)
	require.Error(t, err)

	// Unsearchable immediately, still listed: the reconcile case.
	assert.False(t, c.idx.Snapshot().Contains(doc.ID))
	docs, _ := c.meta.ListAll(context.Background())
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, c.enqueuer.count())
}

func TestDeleteMetadataFailureAfterIndexRemoval(t *testing.T) {
	c := newTestCoordinator(t)

	doc, err := c.Ingest(context.Background(), "half.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	c.meta.failDelete = true
	err = c.Delete(context.Background(), doc.ID)
	require.Error(t, err)

	assert.False(t, c.idx.Snapshot().Contains(doc.ID))
	assert.Equal(t, 1, c.enqueuer.count())
}

func TestListResolvesThumbnailURLs(t *testing.T) {
	c := newTestCoordinator(t)

	doc, err := c.Ingest(context.Background(), "pretty.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	docs, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
	assert.Contains(t, docs[0].ThumbnailURL, doc.ThumbnailKey)
	assert.Equal(t, 1, c.blobs.signed)
}

func TestListURLCache(t *testing.T) {
	c := newTestCoordinator(t)
	urls := &memURLCache{entries: make(map[string]string)}
	c.urls = urls

	_, err := c.Ingest(context.Background(), "cached.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	_, err = c.List(context.Background())
	require.NoError(t, err)
	_, err = c.List(context.Background())
	require.NoError(t, err)

	// Second listing is served from the cache.
	assert.Equal(t, 1, c.blobs.signed)
}

func TestOpenStreamsDocument(t *testing.T) {
	c := newTestCoordinator(t)

	doc, err := c.Ingest(context.Background(), "dl.pdf", strings.NewReader("%PDF payload"))
	require.NoError(t, err)

	obj, got, err := c.Open(context.Background(), doc.ID)
	require.NoError(t, err)
	defer obj.Body.Close()

	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "application/pdf", obj.ContentType)

	data := make([]byte, obj.ContentLength)
	_, _ = obj.Body.Read(data)
	assert.Equal(t, "%PDF payload", string(data))
}

type memURLCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (m *memURLCache) GetURL(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url, ok := m.entries[key]
	return url, ok
}

func (m *memURLCache) SetURL(_ context.Context, key, url string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = url
}
