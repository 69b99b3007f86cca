// Package index implements the generational inverted index behind document
// search: postings keyed by field and term, stored fields for result
// resolution, tombstone-based deletes, and crash-safe commits that publish
// immutable point-in-time snapshots to readers.
package index

// Field is a typed handle for an indexable field. Handles are resolved once
// from the schema instead of looking fields up by name on every call.
type Field uint8

const (
	// FieldTitle is indexed for search and stored for result resolution.
	FieldTitle Field = iota
	// FieldBody is indexed for search only; the metadata store is the source
	// of truth for the raw text.
	FieldBody

	numFields
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldBody:
		return "body"
	}
	return "unknown"
}

// Schema describes the fixed document layout. The document id is always
// stored; title and body are the searchable fields.
type Schema struct {
	byName map[string]Field
}

func NewSchema() *Schema {
	return &Schema{
		byName: map[string]Field{
			FieldTitle.String(): FieldTitle,
			FieldBody.String():  FieldBody,
		},
	}
}

// Lookup resolves a field name to its typed handle.
func (s *Schema) Lookup(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// DefaultFields returns the fields searched when a query names none.
func (s *Schema) DefaultFields() []Field {
	return []Field{FieldTitle, FieldBody}
}
