package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anshulj/papershelf/internal/models"
)

// ErrNotFound is returned when no row exists for the requested document id.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the relational metadata store, keyed by document id.
type DocumentStore struct {
	db *pgxpool.Pool
}

func NewDocumentStore(db *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = "id, title, body, content_type, size_bytes, thumbnail_key, created_at"

func (s *DocumentStore) Insert(ctx context.Context, doc *models.Document) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO documents (id, title, body, content_type, size_bytes, thumbnail_key)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		doc.ID, doc.Title, doc.Body, doc.ContentType, doc.SizeBytes, doc.ThumbnailKey,
	).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.Title, &doc.Body, &doc.ContentType, &doc.SizeBytes, &doc.ThumbnailKey, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStore) ListAll(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Body, &d.ContentType, &d.SizeBytes, &d.ThumbnailKey, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListIDs returns every document id known to the metadata store. The
// reconciliation sweep diffs this set against the index snapshot.
func (s *DocumentStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
