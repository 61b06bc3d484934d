package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

const OwnerHeader = "X-User-Id"

type ownerKey struct{}

// Owner requires an integer X-User-Id header on every request under prefix
// and stores it in the context. Requests outside prefix pass through.
func Owner(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimSpace(r.Header.Get(OwnerHeader))
			if raw == "" {
				apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "missing "+OwnerHeader+" header")
				return
			}
			ownerID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, OwnerHeader+" must be an integer")
				return
			}
			ctx := context.WithValue(r.Context(), ownerKey{}, ownerID)
			ctx = logger.WithOwnerID(ctx, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerFromContext returns the owner id stored by Owner.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerKey{}).(int64)
	return id, ok
}

// WithOwner stores ownerID the way Owner does. Handlers tests use it to
// skip the middleware.
func WithOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// Chain applies middleware so the first one listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
