// Command analytics runs the standalone analytics aggregation service.
//
// It consumes search events and document lifecycle events from Kafka,
// aggregates them in memory and serves the totals at GET /api/v1/analytics.
// Aggregates are snapshotted to PostgreSQL and restored on startup.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const snapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	if !cfg.Kafka.Enabled {
		slog.Error("analytics service requires kafka.enabled")
		os.Exit(1)
	}

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

	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	var store *snapshot.Store
	db, err := resilience.RetryValue(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Second}, func(ctx context.Context) (*postgres.Client, error) {
		return postgres.New(ctx, cfg.Postgres)
	})
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		checker.Register("postgres", health.Fixed(health.StatusDegraded, "snapshots disabled"))
	} else {
		defer db.Close()
		checker.Register("postgres", health.PingCheck(db.Ping, false))
		store = snapshot.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate analytics schema", "error", err)
			os.Exit(1)
		}
		latest, err := store.Latest(ctx)
		if err != nil {
			slog.Warn("failed to load analytics snapshot", "error", err)
		} else if latest != nil {
			aggregator.Restore(*latest)
			slog.Info("analytics restored from snapshot", "total_searches", latest.TotalSearches)
		}
	}

	searchConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, aggregator.HandleSearchEvents())
	defer searchConsumer.Close()
	documentConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentEvents, aggregator.HandleDocumentEvents())
	defer documentConsumer.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return searchConsumer.Run(gctx) })
	g.Go(func() error { return documentConsumer.Run(gctx) })
	if store != nil {
		g.Go(func() error {
			store.Run(gctx, aggregator, snapshotInterval)
			return nil
		})
	}
	slog.Info("analytics consumers started",
		"search_topic", cfg.Kafka.Topics.AnalyticsEvents,
		"document_topic", cfg.Kafka.Topics.DocumentEvents,
	)

	analyticsHandler := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux, middleware.RequestID, middleware.Metrics(m))

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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if err := g.Wait(); err != nil {
		slog.Error("analytics workers stopped with error", "error", err)
	}
	slog.Info("analytics service stopped")
}
