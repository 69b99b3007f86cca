package models

import "time"

// Document is the metadata row for one ingested PDF. The row stores the
// extracted body text verbatim; the index derives its postings from it and
// the reconciliation sweep re-indexes from it without re-parsing the PDF.
type Document struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Body         string    `json:"-" db:"body"`
	ContentType  string    `json:"content_type" db:"content_type"`
	SizeBytes    int64     `json:"size_bytes" db:"size_bytes"`
	ThumbnailKey string    `json:"-" db:"thumbnail_key"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// HasThumbnail reports whether a thumbnail was rendered at ingestion time.
// Rendering failures are non-fatal, so the key may be empty.
func (d *Document) HasThumbnail() bool {
	return d.ThumbnailKey != ""
}
