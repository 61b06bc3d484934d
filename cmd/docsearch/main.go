// Command docsearch runs the document and search service.
//
// On startup it loads every stored document from PostgreSQL into the
// in-memory index, then serves the document lifecycle and search API.
// Search pages are cached in Redis when it is reachable; search and
// document events go to Kafka when enabled.
//
// Usage:
//
//	go run ./cmd/docsearch [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	dochandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/document/handler"
	docpostgres "github.com/Adithya-Monish-Kumar-K/docsearch/internal/document/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting docsearch", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.ListenAndServe(ctx, cfg.Metrics.Port, m.Handler()); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	db, err := resilience.RetryValue(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: time.Second}, func(ctx context.Context) (*postgres.Client, error) {
		return postgres.New(ctx, cfg.Postgres)
	})
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := docpostgres.NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		slog.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	engine := indexer.NewEngine(m)
	var indexReady atomic.Bool

	var (
		redisClient *pkgredis.Client
		resultCache searchhandler.ResultCache
		invalidator document.CacheInvalidator
	)
	if cfg.Search.CacheEnabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache := cache.New(redisClient, cfg.Redis.CacheTTL, m)
			resultCache, invalidator = queryCache, queryCache
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var (
		collector *analytics.Collector
		tracker   searchhandler.Tracker
		events    document.EventPublisher
	)
	if cfg.Kafka.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector = analytics.NewCollector(analyticsProducer, cfg.Search.AnalyticsBuffer, 100, time.Second)
		collector.Start(ctx)
		tracker = collector

		documentProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentEvents)
		defer documentProducer.Close()
		events = documentProducer
	} else {
		slog.Info("kafka disabled, analytics and document events are not published")
	}

	checker := health.NewChecker()
	checker.Register("index", health.FlagCheck(indexReady.Load, "index bootstrap in progress"))
	checker.Register("postgres", health.PingCheck(db.Ping, true))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
	} else {
		checker.Register("redis", health.Fixed(health.StatusDegraded, "not configured"))
	}

	tracer := &tracing.Tracer{Enabled: cfg.Tracing.Enabled, SampleRate: cfg.Tracing.SampleRate}
	exec := executor.New(engine, repo, executor.Config{
		DefaultPageSize: cfg.Search.DefaultPageSize,
		AssembleWorkers: cfg.Search.AssembleWorkers,
	}, m, tracer)
	searchH := searchhandler.New(exec, searchhandler.Options{
		Cache:       resultCache,
		Generation:  engine.Generation,
		Tracker:     tracker,
		Metrics:     m,
		MaxPageSize: cfg.Search.MaxPageSize,
	})
	docH := dochandler.New(document.NewService(repo, engine, invalidator, events))

	mux := routes(docH, searchH, checker, indexReady.Load)

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.WriteTimeout),
		middleware.Owner("/documents"),
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		go limiter.Run(ctx, 5*time.Minute)
		mws = append(mws, middleware.RateLimit(limiter))
	}
	chain := middleware.Chain(mux, mws...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("docsearch listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	bootstrapRetry := resilience.RetryConfig{
		MaxAttempts: 3,
		Retryable:   func(err error) bool { return !errors.Is(err, apperrors.ErrTimeout) },
	}
	stats, err := resilience.RetryValue(ctx, "index-bootstrap", bootstrapRetry, func(ctx context.Context) (indexer.BootstrapStats, error) {
		return resilience.Bounded(ctx, cfg.Search.BootstrapTimeout, "index-bootstrap", func(ctx context.Context) (indexer.BootstrapStats, error) {
			return indexer.Bootstrap(ctx, repo, engine)
		})
	})
	if err != nil {
		slog.Error("failed to build search index", "error", err)
		os.Exit(1)
	}
	indexReady.Store(true)
	slog.Info("search index ready",
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"rejected", stats.Rejected,
		"documents", engine.DocCount(),
	)

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if collector != nil {
		collector.Wait()
		slog.Info("analytics collector drained", "dropped", collector.Dropped())
	}
	slog.Info("docsearch stopped")
}
