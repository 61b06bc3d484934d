package main

import (
	"net/http"

	dochandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/document/handler"
	searchhandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
)

// routes mounts the API behind a readiness gate and the health endpoints
// outside it, so they answer while the index is still loading.
func routes(docH *dochandler.Handler, searchH *searchhandler.Handler, checker *health.Checker, ready func() bool) *http.ServeMux {
	api := http.NewServeMux()
	docH.Register(api)
	api.HandleFunc("GET /documents/search/all", searchH.Search)
	api.HandleFunc("DELETE /documents/search/cache", searchH.CacheInvalidate)
	api.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)

	mux := http.NewServeMux()
	mux.Handle("/", whenReady(ready, api))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	return mux
}

// whenReady answers 503 until ready reports true.
func whenReady(ready func() bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready() {
			w.Header().Set("Retry-After", "5")
			apperrors.WriteJSON(w, http.StatusServiceUnavailable, apperrors.CodeUnavailable, "search index is still loading")
			return
		}
		next.ServeHTTP(w, r)
	})
}
