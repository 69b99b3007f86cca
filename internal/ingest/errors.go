package ingest

import "fmt"

// ValidationError rejects a malformed request before any side effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// ExtractionError reports a failed text or thumbnail derivation. Thumbnail
// failures are absorbed by the pipeline; text failures abort ingestion
// before any durable write.
type ExtractionError struct {
	Artifact string // "text" or "thumbnail"
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Artifact, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError reports an I/O failure against the blob store, metadata store
// or index.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConsistencyError reports a document found in one store but missing from
// another, surfaced by the reconciliation sweep.
type ConsistencyError struct {
	DocID  string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency %s: %s", e.DocID, e.Detail)
}
