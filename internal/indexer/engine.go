// Package indexer owns the in-memory search index: it turns documents into
// postings, removes them again, and rebuilds the whole index from the
// document store at startup.
package indexer

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Engine is the single index instance shared by the document service and
// the query executor.
type Engine struct {
	idx        *index.MemoryIndex
	generation atomic.Uint64
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewEngine returns an empty engine. m may be nil.
func NewEngine(m *metrics.Metrics) *Engine {
	return &Engine{
		idx:     index.NewMemoryIndex(),
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// Index replaces whatever the index holds for doc.ID with postings built
// from doc's title and content. Nothing is changed when doc is rejected.
func (e *Engine) Index(doc *document.Document) error {
	if err := checkIndexable(doc); err != nil {
		if e.metrics != nil {
			e.metrics.DocsRejectedTotal.Inc()
		}
		return err
	}

	titleFreq := tokenizer.Frequencies(doc.Title)
	contentFreq := tokenizer.Frequencies(doc.Content)
	e.idx.Put(doc.ID, doc.OwnerID, titleFreq, contentFreq)
	e.generation.Add(1)

	e.logger.Debug("document indexed",
		"doc_id", doc.ID,
		"owner_id", doc.OwnerID,
		"title_terms", len(titleFreq),
		"content_terms", len(contentFreq),
	)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.updateGauges()
	}
	return nil
}

// Reset empties the index.
func (e *Engine) Reset() {
	e.idx.Reset()
	e.generation.Add(1)
	e.logger.Info("index reset")
	if e.metrics != nil {
		e.updateGauges()
	}
}

// Remove drops docID from the index. Unknown ids and 0 are ignored.
func (e *Engine) Remove(docID int64) {
	if docID == 0 {
		return
	}
	if !e.idx.Delete(docID) {
		return
	}
	e.generation.Add(1)
	e.logger.Debug("document removed", "doc_id", docID)
	if e.metrics != nil {
		e.metrics.DocsRemovedTotal.Inc()
		e.updateGauges()
	}
}

// Lookup returns the postings for term sorted by document id.
func (e *Engine) Lookup(term string) index.PostingList {
	return e.idx.Lookup(term)
}

func (e *Engine) DocFreq(term string) int {
	return e.idx.DocFreq(term)
}

// DocCount is the number of indexed documents across every owner.
func (e *Engine) DocCount() int {
	return e.idx.DocCount()
}

func (e *Engine) Owner(docID int64) (int64, bool) {
	return e.idx.Owner(docID)
}

// Generation changes after every successful Index or Remove. Scores depend
// on the whole index, so cached results are only valid for the generation
// they were computed at.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

func (e *Engine) Stats() index.Stats {
	return e.idx.Stats()
}

func (e *Engine) updateGauges() {
	stats := e.idx.Stats()
	e.metrics.IndexDocuments.Set(float64(stats.Documents))
	e.metrics.IndexTerms.Set(float64(stats.Terms))
}

func checkIndexable(doc *document.Document) error {
	switch {
	case doc == nil:
		return fmt.Errorf("%w: document is nil", apperrors.ErrInvalidDocument)
	case doc.ID == 0:
		return fmt.Errorf("%w: document has no id", apperrors.ErrInvalidDocument)
	case strings.TrimSpace(doc.Title) == "":
		return fmt.Errorf("%w: document %d has a blank title", apperrors.ErrInvalidDocument, doc.ID)
	case strings.TrimSpace(doc.Content) == "":
		return fmt.Errorf("%w: document %d has blank content", apperrors.ErrInvalidDocument, doc.ID)
	}
	return nil
}
