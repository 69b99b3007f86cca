// Package ingest owns the cross-store write and delete protocol. A document
// becomes searchable only after its blob artifacts and metadata row are
// durable and the index commit — the publish point — has succeeded. Deletion
// runs the mirror protocol with the index first, so a document stops being
// searchable before its artifacts disappear.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/anshulj/papershelf/internal/blob"
	"github.com/anshulj/papershelf/internal/extract"
	"github.com/anshulj/papershelf/internal/index"
	"github.com/anshulj/papershelf/internal/models"
)

// commitRetries bounds index-commit retries before the failure surfaces and the
// reconcile sweep takes over.
const commitRetries = 3

// thumbnailURLTTL is the signed thumbnail URL lifetime.
const thumbnailURLTTL = time.Hour

// MetadataStore is the relational store contract the coordinator drives.
type MetadataStore interface {
	Insert(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	ListAll(ctx context.Context) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
}

// ReconcileEnqueuer schedules a reconciliation sweep after a commit failure
// left the stores disagreeing.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context) error
}

// URLCache caches signed thumbnail URLs across List calls.
type URLCache interface {
	GetURL(ctx context.Context, key string) (string, bool)
	SetURL(ctx context.Context, key, url string, ttl time.Duration)
}

// Coordinator orchestrates ingestion, deletion and listing across the blob
// store, the metadata store and the index. The index writer it holds is the
// single mutation path for search visibility.
type Coordinator struct {
	meta      MetadataStore
	blobs     blob.Store
	idx       *index.Index
	writer    *index.Writer
	extractor extract.TextExtractor
	renderer  extract.ThumbnailRenderer
	reconcile ReconcileEnqueuer
	urls      URLCache
	logger    *slog.Logger
}

func NewCoordinator(meta MetadataStore, blobs blob.Store, idx *index.Index, extractor extract.TextExtractor, renderer extract.ThumbnailRenderer, opts ...Option) *Coordinator {
	c := &Coordinator{
		meta:      meta,
		blobs:     blobs,
		idx:       idx,
		writer:    idx.Writer(),
		extractor: extractor,
		renderer:  renderer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures optional coordinator collaborators.
type Option func(*Coordinator)

func WithReconcileEnqueuer(e ReconcileEnqueuer) Option {
	return func(c *Coordinator) { c.reconcile = e }
}

func WithURLCache(u URLCache) Option {
	return func(c *Coordinator) { c.urls = u }
}

// Ingest runs the upload pipeline: stage the bytes, derive text and
// thumbnail, persist blobs, insert the metadata row, then commit the index
// mutation last. On success the document is searchable; on failure the
// caller sees a single error and nothing is searchable.
func (c *Coordinator) Ingest(ctx context.Context, filename string, data io.Reader) (*models.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, &ValidationError{Reason: "filename required"}
	}

	// Received: stage the upload in a temp file, removed on every exit path.
	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return nil, &StorageError{Op: "stage upload", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, data)
	if cerr := tmp.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, &StorageError{Op: "stage upload", Err: err}
	}
	if size == 0 {
		return nil, &ValidationError{Reason: "empty file"}
	}

	id := uuid.NewString()
	log := c.logger.With("document_id", id, "title", filename)

	// Extracted: body text is required; a missing thumbnail only degrades
	// the listing, never the searchability.
	text, err := c.extractor.ExtractText(ctx, tmpPath)
	if err != nil {
		return nil, &ExtractionError{Artifact: "text", Err: err}
	}

	var thumbnail []byte
	if c.renderer != nil {
		thumbnail, err = c.renderer.RenderThumbnail(ctx, tmpPath)
		if err != nil {
			log.Warn("thumbnail rendering failed, continuing without", "error", err)
			thumbnail = nil
		}
	}

	doc := &models.Document{
		ID:          id,
		Title:       filename,
		Body:        text,
		ContentType: "application/pdf",
		SizeBytes:   size,
	}
	if thumbnail != nil {
		doc.ThumbnailKey = blob.ObjectKey(id, blob.ThumbnailObject)
	}

	// BlobPersisted: both artifacts upload as a unit; a failure here leaves
	// at worst an orphaned blob keyed by an id nothing references.
	if err := c.persistBlobs(ctx, id, tmpPath, thumbnail); err != nil {
		return nil, err
	}

	// MetadataPersisted.
	if err := c.meta.Insert(ctx, doc); err != nil {
		log.Error("metadata insert failed after blob upload", "error", err)
		return nil, &StorageError{Op: "insert metadata", Err: err}
	}

	// Visible: the commit publishes the document. Everything upstream being
	// durable does not make it discoverable until this succeeds.
	c.writer.AddDocument(doc.ID, doc.Title, doc.Body)
	gen, err := c.commitWithRetry(ctx)
	if err != nil {
		log.Error("index commit failed, document stored but not searchable", "error", err)
		c.requestReconcile(ctx)
		return nil, &StorageError{Op: "commit index", Err: err}
	}

	log.Info("document ingested", "generation", gen, "size_bytes", size, "thumbnail", doc.HasThumbnail())
	return doc, nil
}

func (c *Coordinator) persistBlobs(ctx context.Context, id, pdfPath string, thumbnail []byte) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := os.Open(pdfPath)
		if err != nil {
			return fmt.Errorf("reopen staged upload: %w", err)
		}
		defer f.Close()
		return c.blobs.Put(gctx, blob.ObjectKey(id, blob.DocumentObject), "application/pdf", f)
	})

	if thumbnail != nil {
		g.Go(func() error {
			return c.blobs.Put(gctx, blob.ObjectKey(id, blob.ThumbnailObject), "image/png", bytes.NewReader(thumbnail))
		})
	}

	if err := g.Wait(); err != nil {
		return &StorageError{Op: "upload blobs", Err: err}
	}
	return nil
}

func (c *Coordinator) commitWithRetry(ctx context.Context) (uint64, error) {
	var lastErr error
	for attempt := 1; attempt <= commitRetries; attempt++ {
		gen, err := c.writer.Commit()
		if err == nil {
			return gen, nil
		}
		lastErr = err
		c.logger.Warn("index commit attempt failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return 0, lastErr
}

// Delete removes a document everywhere, index first so it immediately stops
// being searchable. Blob or metadata failures afterwards leave an
// unsearchable-but-listed document for the reconcile sweep, not a crash.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	doc, err := c.meta.Get(ctx, id)
	if err != nil {
		return &StorageError{Op: "get metadata", Err: err}
	}

	c.writer.DeleteByID(id)
	if _, err := c.commitWithRetry(ctx); err != nil {
		return &StorageError{Op: "commit index delete", Err: err}
	}

	log := c.logger.With("document_id", id)

	if err := c.blobs.Delete(ctx, blob.ObjectKey(id, blob.DocumentObject)); err != nil {
		log.Error("blob delete failed after index removal", "error", err)
		c.requestReconcile(ctx)
		return &StorageError{Op: "delete blob", Err: err}
	}
	if doc.HasThumbnail() {
		if err := c.blobs.Delete(ctx, doc.ThumbnailKey); err != nil {
			log.Warn("thumbnail delete failed", "error", err)
		}
	}

	if err := c.meta.Delete(ctx, id); err != nil {
		log.Error("metadata delete failed after index removal", "error", err)
		c.requestReconcile(ctx)
		return &StorageError{Op: "delete metadata", Err: err}
	}

	log.Info("document deleted")
	return nil
}

// List returns all known documents with signed thumbnail URLs resolved.
func (c *Coordinator) List(ctx context.Context) ([]models.Document, error) {
	docs, err := c.meta.ListAll(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list metadata", Err: err}
	}

	for i := range docs {
		if !docs[i].HasThumbnail() {
			continue
		}
		url, err := c.thumbnailURL(ctx, docs[i].ThumbnailKey)
		if err != nil {
			c.logger.Warn("thumbnail URL resolution failed", "document_id", docs[i].ID, "error", err)
			continue
		}
		docs[i].ThumbnailURL = url
	}
	return docs, nil
}

func (c *Coordinator) thumbnailURL(ctx context.Context, key string) (string, error) {
	if c.urls != nil {
		if url, ok := c.urls.GetURL(ctx, key); ok {
			return url, nil
		}
	}

	url, err := c.blobs.SignedURL(ctx, key, thumbnailURLTTL)
	if err != nil {
		return "", err
	}

	if c.urls != nil {
		// Expire the cached entry well before the signature does.
		c.urls.SetURL(ctx, key, url, thumbnailURLTTL-10*time.Minute)
	}
	return url, nil
}

// Open streams the stored primary artifact for download.
func (c *Coordinator) Open(ctx context.Context, id string) (*blob.Object, *models.Document, error) {
	doc, err := c.meta.Get(ctx, id)
	if err != nil {
		return nil, nil, &StorageError{Op: "get metadata", Err: err}
	}
	obj, err := c.blobs.Get(ctx, blob.ObjectKey(id, blob.DocumentObject))
	if err != nil {
		return nil, nil, &StorageError{Op: "download blob", Err: err}
	}
	return obj, doc, nil
}

func (c *Coordinator) requestReconcile(ctx context.Context) {
	if c.reconcile == nil {
		return
	}
	if err := c.reconcile.EnqueueReconcile(ctx); err != nil {
		c.logger.Error("failed to enqueue reconcile sweep", "error", err)
	}
}
