// Package reconcile closes the gap the ingestion protocol can leave behind:
// a document durable in blobs and metadata whose index commit failed, or
// index entries whose backing stores were torn down mid-delete. The sweep
// diffs the metadata store against an index snapshot and re-drives the index
// toward the metadata store, which is the source of truth for membership.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anshulj/papershelf/internal/index"
	"github.com/anshulj/papershelf/internal/ingest"
	"github.com/anshulj/papershelf/internal/models"
)

// MetadataSource is the slice of the metadata store the sweep needs.
type MetadataSource interface {
	ListIDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*models.Document, error)
}

// Report summarizes one sweep.
type Report struct {
	Reindexed  int
	Removed    int
	Generation uint64
}

// Sweeper re-drives missing index commits and evicts stray index entries.
type Sweeper struct {
	meta   MetadataSource
	idx    *index.Index
	logger *slog.Logger
}

func NewSweeper(meta MetadataSource, idx *index.Index) *Sweeper {
	return &Sweeper{meta: meta, idx: idx, logger: slog.Default()}
}

// Sweep compares the two stores and commits one corrective batch. It is safe
// to run concurrently with live ingestion: all mutations funnel through the
// index's single writer session.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	metaIDs, err := s.meta.ListIDs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list metadata ids: %w", err)
	}

	snap := s.idx.Snapshot()
	indexed := make(map[string]struct{})
	for _, id := range snap.IDs() {
		indexed[id] = struct{}{}
	}
	inMeta := make(map[string]struct{}, len(metaIDs))
	for _, id := range metaIDs {
		inMeta[id] = struct{}{}
	}

	w := s.idx.Writer()
	var report Report

	for _, id := range metaIDs {
		if _, ok := indexed[id]; ok {
			continue
		}
		doc, err := s.meta.Get(ctx, id)
		if err != nil {
			s.logger.Error("reconcile: metadata row vanished mid-sweep", "document_id", id, "error", err)
			continue
		}
		cerr := &ingest.ConsistencyError{DocID: id, Detail: "stored but missing from index"}
		s.logger.Warn("reconcile: re-driving index commit", "error", cerr)
		w.AddDocument(doc.ID, doc.Title, doc.Body)
		report.Reindexed++
	}

	for id := range indexed {
		if _, ok := inMeta[id]; ok {
			continue
		}
		cerr := &ingest.ConsistencyError{DocID: id, Detail: "indexed but missing from metadata store"}
		s.logger.Warn("reconcile: removing stray index entry", "error", cerr)
		w.DeleteByID(id)
		report.Removed++
	}

	if report.Reindexed == 0 && report.Removed == 0 {
		report.Generation = snap.Generation()
		return report, nil
	}

	gen, err := w.Commit()
	if err != nil {
		return report, fmt.Errorf("commit reconcile batch: %w", err)
	}
	report.Generation = gen

	s.logger.Info("reconcile sweep committed",
		"reindexed", report.Reindexed, "removed", report.Removed, "generation", gen)
	return report, nil
}
