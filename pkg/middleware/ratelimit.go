package middleware

import (
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/ratelimit"
)

// RateLimit rejects requests of an owner that ran out of tokens with 429.
// Requests without an owner in the context pass through, so it must run
// after Owner.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, ok := OwnerFromContext(r.Context())
			if !ok || limiter.Allow(ownerID) {
				next.ServeHTTP(w, r)
				return
			}
			wait := limiter.RetryAfter(ownerID)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			apperrors.WriteJSON(w, http.StatusTooManyRequests, apperrors.CodeRateLimited, "rate limit exceeded")
		})
	}
}
