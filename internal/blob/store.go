// Package blob provides the object storage client used for uploaded PDFs and
// their rendered thumbnails. Objects are keyed by document id plus a fixed
// artifact name, so every artifact of a document lives under one prefix.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Artifact names under a document's key prefix.
const (
	DocumentObject  = "document.pdf"
	ThumbnailObject = "thumbnail.png"
)

// ObjectKey builds the storage key for one of a document's artifacts.
func ObjectKey(docID, artifact string) string {
	return fmt.Sprintf("%s/%s", docID, artifact)
}

// Object is a downloaded blob stream with its content metadata.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Store is the narrow blob storage contract consumed by the ingestion
// pipeline. Implementations must be safe for concurrent use.
type Store interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key, contentType string, data io.Reader) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}
