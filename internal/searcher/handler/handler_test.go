package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

type fakeExecutor struct {
	last   executor.Request
	calls  int
	result *executor.SearchResult
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, req executor.Request) (*executor.SearchResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &executor.SearchResult{OriginalQuery: req.Query, Page: 1, Size: req.Size, Summaries: []executor.Summary{}}, nil
}

type fakeCache struct {
	entries     map[string]*executor.SearchResult
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*executor.SearchResult)}
}

func (c *fakeCache) GetOrCompute(ctx context.Context, key cache.Key, compute func(context.Context) (*executor.SearchResult, error)) (*executor.SearchResult, bool, error) {
	if r, ok := c.entries[key.String()]; ok {
		return r, true, nil
	}
	r, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	c.entries[key.String()] = r
	return r, false, nil
}

func (c *fakeCache) Invalidate(_ context.Context, ownerID int64) error {
	c.invalidated = append(c.invalidated, ownerID)
	return nil
}

func (c *fakeCache) Stats() (int64, int64) { return 3, 1 }

func (c *fakeCache) BreakerState() string { return "half-open" }

type fakeTracker struct {
	mu     sync.Mutex
	events []analytics.SearchEvent
}

func (t *fakeTracker) Track(e analytics.SearchEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func search(h *Handler, ownerID int64, rawQuery string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/documents/search/all?"+rawQuery, nil)
	if ownerID != 0 {
		req = req.WithContext(middleware.WithOwner(req.Context(), ownerID))
	}
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	return rec
}

func TestSearchValidatesParameters(t *testing.T) {
	h := New(&fakeExecutor{}, Options{MaxPageSize: 100})
	cases := []struct {
		name  string
		owner int64
		query string
	}{
		{"missing owner", 0, "query=java"},
		{"missing query", 1, "page=1"},
		{"bad page", 1, "query=java&page=x"},
		{"bad size", 1, "query=java&size=1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := search(h, tc.owner, tc.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body apperrors.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, apperrors.CodeValidation, body.Code)
		})
	}
}

func TestSearchEmptyQueryIsAllowed(t *testing.T) {
	exec := &fakeExecutor{}
	rec := search(New(exec, Options{}), 1, "query=")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, "", exec.last.Query)
}

func TestSearchPassesPagingAndCapsSize(t *testing.T) {
	exec := &fakeExecutor{}
	rec := search(New(exec, Options{MaxPageSize: 50}), 9, "query=java+spring&page=3&size=500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, executor.Request{OwnerID: 9, Query: "java spring", Page: 3, Size: 50}, exec.last)
}

func TestSearchResponseShape(t *testing.T) {
	exec := &fakeExecutor{result: &executor.SearchResult{
		OriginalQuery: "java",
		Page:          1,
		Size:          20,
		TotalElements: 1,
		TotalPages:    1,
		Summaries: []executor.Summary{{
			DocumentID:     4,
			DocumentTitle:  "Doc A",
			DocumentStatus: document.StatusReady,
			RelevanceScore: 0.7,
		}},
	}}
	rec := search(New(exec, Options{}), 1, "query=java")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	for _, k := range []string{"originalQuery", "page", "size", "totalElements", "totalPages", "hasPrevious", "hasNext", "documentSummaries"} {
		assert.Contains(t, body, k)
	}
	summaries := body["documentSummaries"].([]any)
	require.Len(t, summaries, 1)
	first := summaries[0].(map[string]any)
	assert.EqualValues(t, 4, first["documentId"])
	assert.Equal(t, "READY", first["documentStatus"])
}

func TestSearchUsesCacheKeyedByGeneration(t *testing.T) {
	exec := &fakeExecutor{}
	c := newFakeCache()
	gen := uint64(1)
	tracker := &fakeTracker{}
	h := New(exec, Options{Cache: c, Generation: func() uint64 { return gen }, Tracker: tracker})

	search(h, 1, "query=java")
	search(h, 1, "query=java")
	assert.Equal(t, 1, exec.calls)

	gen = 2
	search(h, 1, "query=java")
	assert.Equal(t, 2, exec.calls)

	require.Len(t, tracker.events, 3)
	assert.False(t, tracker.events[0].CacheHit)
	assert.True(t, tracker.events[1].CacheHit)
	assert.Equal(t, analytics.EventZeroResult, tracker.events[0].Type)
}

func TestSearchErrorsAreMappedAndTracked(t *testing.T) {
	tracker := &fakeTracker{}
	exec := &fakeExecutor{err: apperrors.DocumentNotFound(12)}
	rec := search(New(exec, Options{Tracker: tracker}), 1, "query=java")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body apperrors.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeDocumentNotFound, body.Code)
	require.Len(t, tracker.events, 1)
	assert.Equal(t, analytics.EventError, tracker.events[0].Type)
}

func TestCacheEndpoints(t *testing.T) {
	c := newFakeCache()
	h := New(&fakeExecutor{}, Options{Cache: c})

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	var stats map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, "75.0%", stats["hit_rate"])
	assert.Equal(t, "half-open", stats["breaker"])
	assert.EqualValues(t, 3, stats["hits"])

	req := httptest.NewRequest(http.MethodDelete, "/documents/search/cache", nil)
	req = req.WithContext(middleware.WithOwner(req.Context(), 5))
	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{5}, c.invalidated)

	rec = httptest.NewRecorder()
	New(&fakeExecutor{}, Options{}).CacheInvalidate(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body apperrors.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeUnavailable, body.Code)
}
