package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
)

// Source lists every stored document. The Postgres repository implements it.
type Source interface {
	FindAll(ctx context.Context) ([]document.Document, error)
}

// BootstrapStats summarises a startup rebuild.
type BootstrapStats struct {
	Loaded   int
	Indexed  int
	Skipped  int
	Rejected int
	Duration time.Duration
}

// Bootstrap rebuilds e from scratch with every document in src whose
// status is not FAILED, so a retry never keeps what an earlier attempt
// indexed. Documents the engine rejects are logged and counted; only a
// failure to load from src stops the rebuild.
func Bootstrap(ctx context.Context, src Source, e *Engine) (BootstrapStats, error) {
	logger := slog.Default().With("component", "index-bootstrap")
	start := time.Now()

	docs, err := src.FindAll(ctx)
	if err != nil {
		return BootstrapStats{}, fmt.Errorf("loading documents for index bootstrap: %w", err)
	}

	e.Reset()
	stats := BootstrapStats{Loaded: len(docs)}
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("index bootstrap interrupted after %d documents: %w", i, err)
		}
		doc := &docs[i]
		if doc.Status == document.StatusFailed {
			stats.Skipped++
			continue
		}
		if err := e.Index(doc); err != nil {
			stats.Rejected++
			logger.Warn("document not indexed", "doc_id", doc.ID, "error", err)
			continue
		}
		stats.Indexed++
	}
	stats.Duration = time.Since(start)

	logger.Info("index bootstrap complete",
		"loaded", stats.Loaded,
		"indexed", stats.Indexed,
		"skipped_failed", stats.Skipped,
		"rejected", stats.Rejected,
		"duration", stats.Duration,
	)
	return stats, nil
}
