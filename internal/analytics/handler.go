package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// StatsSource is satisfied by *Aggregator.
type StatsSource interface {
	Snapshot(top int) AggregatedStats
}

type Handler struct {
	source StatsSource
	logger *slog.Logger
}

func NewHandler(source StatsSource) *Handler {
	return &Handler{
		source: source,
		logger: slog.Default().With("component", "analytics-handler"),
	}
}

// Stats serves GET /api/v1/analytics[?top=N]. N bounds the query lists and
// must be between 1 and 100.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := defaultTopQueries
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopQueries {
			apperrors.Write(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"top must be an integer between 1 and %d", maxTopQueries))
			return
		}
		top = n
	}

	body, err := json.Marshal(h.source.Snapshot(top))
	if err != nil {
		h.logger.Error("failed to encode analytics", "error", err)
		apperrors.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(body); err != nil {
		h.logger.Debug("client went away before analytics were written", "error", err)
	}
}
