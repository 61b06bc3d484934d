// Package executor answers owner-scoped free-text queries against the
// in-memory index and assembles one page of ranked results.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/snippet"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// IndexReader is the read side of the index the executor needs.
type IndexReader interface {
	Lookup(term string) index.PostingList
	DocCount() int
	Owner(docID int64) (int64, bool)
}

// DocumentFinder resolves a ranked id to its stored document. A missing
// document is reported as (nil, nil).
type DocumentFinder interface {
	FindByIDAndOwnerID(ctx context.Context, id, ownerID int64) (*document.Document, error)
}

type Request struct {
	OwnerID int64
	Query   string
	Page    int
	Size    int
}

type Summary struct {
	DocumentID     int64                  `json:"documentId"`
	DocumentTitle  string                 `json:"documentTitle"`
	DocumentStatus document.Status        `json:"documentStatus"`
	RelevanceScore float64                `json:"relevanceScore"`
	WordSnippets   []snippet.WordSnippets `json:"wordSnippets"`
}

type SearchResult struct {
	OriginalQuery string    `json:"originalQuery"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
	TotalElements int       `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	HasPrevious   bool      `json:"hasPrevious"`
	HasNext       bool      `json:"hasNext"`
	Summaries     []Summary `json:"documentSummaries"`
	// Terms are the distinct query terms that were scored.
	Terms []string `json:"-"`
}

type Config struct {
	DefaultPageSize int
	AssembleWorkers int
}

type Executor struct {
	index   IndexReader
	docs    DocumentFinder
	cfg     Config
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
	logger  *slog.Logger
}

// New builds an executor. m and tracer may be nil.
func New(idx IndexReader, docs DocumentFinder, cfg Config, m *metrics.Metrics, tracer *tracing.Tracer) *Executor {
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	if cfg.AssembleWorkers < 1 {
		cfg.AssembleWorkers = 1
	}
	return &Executor{
		index:   idx,
		docs:    docs,
		cfg:     cfg,
		metrics: m,
		tracer:  tracer,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Execute runs req. A blank query is not an error: it yields an empty
// result without touching the index. Pages past the end are clamped to the
// last page.
func (e *Executor) Execute(ctx context.Context, req Request) (*SearchResult, error) {
	page, size := req.Page, req.Size
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = e.cfg.DefaultPageSize
	}
	result := &SearchResult{
		OriginalQuery: req.Query,
		Page:          page,
		Size:          size,
		Summaries:     []Summary{},
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		e.record("blank", 0)
		return result, nil
	}

	ctx, span := e.tracer.Start(ctx, "search", logger.RequestID(ctx))
	defer e.tracer.Finish(span)
	span.SetAttr("owner_id", req.OwnerID)

	terms := tokenizer.QueryTerms(query)
	result.Terms = terms
	ranked := e.rank(ctx, req.OwnerID, terms)

	total := len(ranked)
	result.TotalElements = total
	if total == 0 {
		e.record("zero_result", 0)
		return result, nil
	}

	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}
	effective := min(page, totalPages)
	from := (effective - 1) * size
	to := min(from+size, total)

	result.Page = effective
	result.TotalPages = totalPages
	result.HasPrevious = effective > 1
	result.HasNext = effective < totalPages

	summaries, err := e.assemble(ctx, req.OwnerID, ranked[from:to], terms)
	if err != nil {
		e.record("error", total)
		return nil, err
	}
	result.Summaries = summaries

	e.logger.Debug("query executed",
		"owner_id", req.OwnerID,
		"terms", terms,
		"total", total,
		"page", effective,
		"returned", len(summaries),
	)
	e.record("hit", total)
	return result, nil
}

func (e *Executor) rank(ctx context.Context, ownerID int64, terms []string) []ranker.ScoredDoc {
	_, span := tracing.StartChild(ctx, "score")
	defer span.End()

	postings := make([]ranker.TermPostings, 0, len(terms))
	for _, term := range terms {
		if pl := e.index.Lookup(term); len(pl) > 0 {
			postings = append(postings, ranker.TermPostings{Term: term, Postings: pl})
		}
	}
	allow := func(docID int64) bool {
		owner, ok := e.index.Owner(docID)
		return ok && owner == ownerID
	}
	ranked := ranker.Rank(postings, e.index.DocCount(), allow)
	span.SetAttr("matched_terms", len(postings))
	span.SetAttr("ranked", len(ranked))
	return ranked
}

// assemble resolves every document on the page and builds its summary.
// Any lookup failure fails the whole page.
func (e *Executor) assemble(ctx context.Context, ownerID int64, page []ranker.ScoredDoc, terms []string) ([]Summary, error) {
	ctx, span := tracing.StartChild(ctx, "assemble")
	defer span.End()

	summaries := make([]Summary, len(page))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.AssembleWorkers)
	for i, scored := range page {
		g.Go(func() error {
			doc, err := e.docs.FindByIDAndOwnerID(gctx, scored.DocID, ownerID)
			if err != nil {
				return fmt.Errorf("loading document %d: %w", scored.DocID, err)
			}
			if doc == nil {
				e.logger.Error("index references a document the store does not have",
					"doc_id", scored.DocID,
					"owner_id", ownerID,
				)
				return apperrors.DocumentNotFound(scored.DocID)
			}
			snippets := snippet.Build(doc.Content, terms)
			if snippets == nil {
				snippets = []snippet.WordSnippets{}
			}
			summaries[i] = Summary{
				DocumentID:     doc.ID,
				DocumentTitle:  doc.Title,
				DocumentStatus: doc.Status,
				RelevanceScore: scored.Score,
				WordSnippets:   snippets,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	span.SetAttr("documents", len(summaries))
	return summaries, nil
}

func (e *Executor) record(outcome string, total int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	if outcome != "blank" {
		e.metrics.SearchResultsCount.Observe(float64(total))
	}
}
