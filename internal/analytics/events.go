// Package analytics records search activity. The search service tracks one
// SearchEvent per query through a buffered Collector that publishes to
// Kafka; the analytics service consumes those events, plus document
// lifecycle events, into an in-memory Aggregator.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventError      EventType = "search_error"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	OwnerID   int64     `json:"owner_id"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// NewSearchEvent derives the event type from the outcome.
func NewSearchEvent(ownerID int64, query string, terms []string, totalHits, returned int, latency time.Duration, cacheHit bool, requestID string, err error) SearchEvent {
	typ := EventSearch
	switch {
	case err != nil:
		typ = EventError
	case totalHits == 0:
		typ = EventZeroResult
	}
	return SearchEvent{
		Type:      typ,
		OwnerID:   ownerID,
		Query:     query,
		Terms:     terms,
		TotalHits: totalHits,
		Returned:  returned,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
