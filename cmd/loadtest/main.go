// Command loadtest seeds documents for a set of owners and then drives
// concurrent searches against a running docsearch instance, printing
// latency percentiles and status codes.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -owners 5 -docs 200 -duration 30s
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var vocabulary = []string{
	"java", "spring", "boot", "kafka", "redis", "postgres", "index",
	"search", "token", "snippet", "owner", "query", "cache", "docker",
	"latency", "cluster", "replica", "stream", "schema", "metric",
}

type Config struct {
	BaseURL     string
	Owners      int
	DocsPer     int
	Concurrency int
	Duration    time.Duration
}

type Stats struct {
	total       atomic.Int64
	success     atomic.Int64
	failed      atomic.Int64
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) Record(d time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the docsearch service")
	owners := flag.Int("owners", 5, "number of owners to seed and query as")
	docs := flag.Int("docs", 100, "documents seeded per owner")
	concurrency := flag.Int("concurrency", 10, "number of concurrent search workers")
	duration := flag.Duration("duration", 30*time.Second, "search phase duration")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Owners:      *owners,
		DocsPer:     *docs,
		Concurrency: *concurrency,
		Duration:    *duration,
	}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Println("=== docsearch load test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Owners:      %d x %d documents\n", cfg.Owners, cfg.DocsPer)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n\n", cfg.Duration)

	if err := seed(context.Background(), client, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}

	stats := run(client, cfg)
	report(stats, cfg.Duration)
}

func seed(ctx context.Context, client *http.Client, cfg Config) error {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for owner := 1; owner <= cfg.Owners; owner++ {
		for i := range cfg.DocsPer {
			g.Go(func() error {
				body, _ := json.Marshal(map[string]string{
					"title":   fmt.Sprintf("doc %d of owner %d", i, owner),
					"content": sentence(rand.New(rand.NewPCG(uint64(owner), uint64(i))), 40),
				})
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/documents", bytes.NewReader(body))
				if err != nil {
					return err
				}
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-User-Id", strconv.Itoa(owner))
				resp, err := client.Do(req)
				if err != nil {
					return err
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusCreated {
					return fmt.Errorf("create returned %d", resp.StatusCode)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Printf("Seeded %d documents in %s\n\n", cfg.Owners*cfg.DocsPer, time.Since(start).Round(time.Millisecond))
	return nil
}

func run(client *http.Client, cfg Config) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), 42))
			for ctx.Err() == nil {
				owner := rng.IntN(cfg.Owners) + 1
				searchURL := fmt.Sprintf("%s/documents/search/all?query=%s&size=10",
					cfg.BaseURL, url.QueryEscape(sentence(rng, 2)))
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
				if err != nil {
					stats.Record(0, 0, err)
					continue
				}
				req.Header.Set("X-User-Id", strconv.Itoa(owner))

				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.Record(elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(elapsed, resp.StatusCode, nil)
			}
		}()
	}
	wg.Wait()
	return stats
}

func sentence(rng *rand.Rand, words int) string {
	var buf bytes.Buffer
	for i := range words {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(vocabulary[rng.IntN(len(vocabulary))])
	}
	return buf.String()
}

func report(stats *Stats, duration time.Duration) {
	total := stats.total.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", stats.success.Load())
	fmt.Printf("Failed:          %d\n", stats.failed.Load())
	if total == 0 {
		fmt.Println("\nWARNING: no requests completed. Is the service running?")
		os.Exit(1)
	}
	fmt.Printf("Error Rate:      %.2f%%\n", float64(stats.failed.Load())/float64(total)*100)
	fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())

	stats.mu.Lock()
	defer stats.mu.Unlock()

	if len(stats.latencies) > 0 {
		sort.Slice(stats.latencies, func(i, j int) bool { return stats.latencies[i] < stats.latencies[j] })
		fmt.Println("\n=== Latency ===")
		fmt.Printf("Min:    %s\n", stats.latencies[0])
		fmt.Printf("P50:    %s\n", percentile(stats.latencies, 50))
		fmt.Printf("P95:    %s\n", percentile(stats.latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(stats.latencies, 99))
		fmt.Printf("Max:    %s\n", stats.latencies[len(stats.latencies)-1])
	}

	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	fmt.Println("\n=== Status Codes ===")
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code])
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
