// Package extract wraps the external text and thumbnail derivation tools
// behind the narrow interfaces the ingestion pipeline consumes.
package extract

import (
	"context"

	"github.com/anshulj/papershelf/pkg/textextract"
)

// TextExtractor derives the searchable body text from a staged upload.
type TextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// ThumbnailRenderer renders a preview image for the first page of a staged
// upload. Failures here are non-fatal to ingestion.
type ThumbnailRenderer interface {
	RenderThumbnail(ctx context.Context, filePath string) ([]byte, error)
}

// PDFTextExtractor extracts text in-process.
type PDFTextExtractor struct{}

func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

func (e *PDFTextExtractor) ExtractText(ctx context.Context, filePath string) (string, error) {
	_ = ctx // extraction is CPU-bound and local
	result, err := textextract.ExtractPDF(filePath)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}
