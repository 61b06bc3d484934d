package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	defaultTopQueries = 10
	maxTopQueries     = 100
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	SearchErrors      int64        `json:"search_errors"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	DocumentsIndexed  int64        `json:"documents_indexed"`
	DocumentsFailed   int64        `json:"documents_failed"`
	DocumentsRemoved  int64        `json:"documents_removed"`
	ActiveOwners      int          `json:"active_owners"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds events into running totals. Latencies are kept in a ring
// of the most recent maxLatencySamples searches.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	searchErrors      int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	docsIndexed       int64
	docsFailed        int64
	docsRemoved       int64
	owners            map[int64]struct{}
	latencies         []int64
	latencyNext       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		owners:            make(map[int64]struct{}),
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleSearchEvents decodes analytics-events messages. Undecodable messages
// are logged and committed so they are not redelivered forever.
func (a *Aggregator) HandleSearchEvents() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			a.logger.Error("failed to decode search event", "error", err)
			return nil
		}
		a.RecordSearch(event)
		return nil
	}
}

// HandleDocumentEvents decodes document-events messages.
func (a *Aggregator) HandleDocumentEvents() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[document.Event](value)
		if err != nil {
			a.logger.Error("failed to decode document event", "error", err)
			return nil
		}
		a.RecordDocument(event)
		return nil
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	a.owners[event.OwnerID] = struct{}{}
	if event.Type == EventError {
		a.searchErrors++
		return
	}
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
	}

	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
}

func (a *Aggregator) RecordDocument(event document.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch event.Type {
	case document.EventIndexed:
		a.docsIndexed++
	case document.EventFailed:
		a.docsFailed++
	case document.EventRemoved:
		a.docsRemoved++
	default:
		a.logger.Debug("ignoring document event", "type", event.Type)
	}
}

// Restore seeds the counters from a previously saved snapshot. Latency
// samples are not part of a snapshot and start empty.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches = s.TotalSearches
	a.searchErrors = s.SearchErrors
	a.cacheHits = s.CacheHits
	a.cacheMisses = s.CacheMisses
	a.zeroResults = s.ZeroResultCount
	a.docsIndexed = s.DocumentsIndexed
	a.docsFailed = s.DocumentsFailed
	a.docsRemoved = s.DocumentsRemoved
	for _, q := range s.TopQueries {
		a.queryCounts[q.Query] = q.Count
	}
	for _, q := range s.ZeroResultQueries {
		a.zeroResultQueries[q.Query] = q.Count
	}
}

// Stats reports the running totals with the default top-10 query lists.
func (a *Aggregator) Stats() AggregatedStats {
	return a.Snapshot(defaultTopQueries)
}

// Snapshot reports the running totals with up to top entries in each
// query list.
func (a *Aggregator) Snapshot(top int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		SearchErrors:     a.searchErrors,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		ZeroResultCount:  a.zeroResults,
		DocumentsIndexed: a.docsIndexed,
		DocumentsFailed:  a.docsFailed,
		DocumentsRemoved: a.docsRemoved,
		ActiveOwners:     len(a.owners),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, top)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, top)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
