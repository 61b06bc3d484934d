// Package handler serves the owner-scoped search endpoint and the cache
// administration endpoints.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

type SearchExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
}

// ResultCache is implemented by *cache.QueryCache.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key cache.Key, compute func(ctx context.Context) (*executor.SearchResult, error)) (*executor.SearchResult, bool, error)
	Invalidate(ctx context.Context, ownerID int64) error
	Stats() (hits, misses int64)
	BreakerState() string
}

// Tracker receives one event per search. *analytics.Collector implements it.
type Tracker interface {
	Track(event analytics.SearchEvent)
}

type Options struct {
	Cache ResultCache
	// Generation reports the index generation used in cache keys.
	Generation  func() uint64
	Tracker     Tracker
	Metrics     *metrics.Metrics
	MaxPageSize int
}

type Handler struct {
	executor    SearchExecutor
	cache       ResultCache
	generation  func() uint64
	tracker     Tracker
	metrics     *metrics.Metrics
	maxPageSize int
	logger      *slog.Logger
}

func New(exec SearchExecutor, opts Options) *Handler {
	gen := opts.Generation
	if gen == nil {
		gen = func() uint64 { return 0 }
	}
	return &Handler{
		executor:    exec,
		cache:       opts.Cache,
		generation:  gen,
		tracker:     opts.Tracker,
		metrics:     opts.Metrics,
		maxPageSize: opts.MaxPageSize,
		logger:      slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /documents/search/all?query=&page=&size=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	ownerID, ok := middleware.OwnerFromContext(ctx)
	if !ok {
		apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "missing "+middleware.OwnerHeader+" header")
		return
	}

	params := r.URL.Query()
	if !params.Has("query") {
		apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "query parameter 'query' is required")
		return
	}
	query := params.Get("query")

	page, err := intParam(params.Get("page"), executor.DefaultPage)
	if err != nil {
		apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "page must be an integer")
		return
	}
	size, err := intParam(params.Get("size"), 0)
	if err != nil {
		apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "size must be an integer")
		return
	}
	if h.maxPageSize > 0 && size > h.maxPageSize {
		size = h.maxPageSize
	}

	req := executor.Request{OwnerID: ownerID, Query: query, Page: page, Size: size}

	var (
		result      *executor.SearchResult
		cacheHit    bool
		cacheStatus = "bypass"
	)
	if h.cache != nil {
		key := cache.Key{
			OwnerID:    ownerID,
			Generation: h.generation(),
			Query:      query,
			Page:       page,
			Size:       size,
		}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, req)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.executor.Execute(ctx, req)
	}

	latency := time.Since(start)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "search failed", "query", query, "error", err)
		h.track(analytics.NewSearchEvent(ownerID, query, nil, 0, 0, latency, false, middleware.GetRequestID(r), err))
		apperrors.Write(w, err)
		return
	}

	h.logger.InfoContext(ctx, "search completed",
		"query", query,
		"total_hits", result.TotalElements,
		"returned", len(result.Summaries),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(analytics.NewSearchEvent(ownerID, query, result.Terms, result.TotalElements, len(result.Summaries), latency, cacheHit, middleware.GetRequestID(r), nil))

	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState(),
	})
}

// CacheInvalidate serves DELETE /documents/search/cache and drops the
// caller's cached pages.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		apperrors.WriteJSON(w, http.StatusServiceUnavailable, apperrors.CodeUnavailable, "caching is disabled")
		return
	}
	ownerID, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "missing "+middleware.OwnerHeader+" header")
		return
	}

	if err := h.cache.Invalidate(r.Context(), ownerID); err != nil {
		h.logger.Error("cache invalidation failed", "owner_id", ownerID, "error", err)
		apperrors.Write(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) track(event analytics.SearchEvent) {
	if h.tracker != nil {
		h.tracker.Track(event)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// intParam parses an optional integer query parameter.
func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
