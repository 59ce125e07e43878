// Command analytics starts the rerank analytics service.
//
// It consumes rerank events from Kafka, aggregates them in memory (requests
// and outcomes per strategy, latency percentiles, expansion sizes, top and
// degraded queries), persists raw events and periodic snapshots to
// PostgreSQL when it is reachable, and serves GET /api/v1/analytics/rerank.
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

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/resilience"
)

const (
	batchSize        = 100
	flushInterval    = 5 * time.Second
	snapshotInterval = time.Minute
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		if _, err := metrics.StartServer(ctx, cfg.Metrics.Port, m); err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
	}

	var (
		sink     analytics.Sink
		eventDB  *store.Store
		batch    *store.BatchWriter
		dbPing   func(context.Context) error
		pgClient *postgres.Client
	)
	pgClient, err = postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, events will not be persisted", "error", err)
	} else {
		defer pgClient.Close()
		if err := pgClient.Migrate(ctx); err != nil {
			slog.Error("failed to migrate analytics schema", "error", err)
			os.Exit(1)
		}
		breaker := resilience.NewCircuitBreaker("analytics-store", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			OnStateChange: func(name string, from, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		})
		eventDB = store.New(pgClient.DB, breaker)
		batch = store.NewBatchWriter(eventDB, batchSize, flushInterval)
		batch.Start(ctx)
		sink = batch
		dbPing = pgClient.Ping
		slog.Info("event persistence enabled", "database", cfg.Postgres.Database)
	}

	aggregator := analytics.NewAggregator(sink)
	if eventDB != nil {
		eventDB.StartPeriodicSave(ctx, aggregator, snapshotInterval)
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, aggregator.HandleMessage)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	checker := health.NewChecker()
	checker.RegisterPing("postgres", true, dbPing)

	analyticsHandler := analytics.NewHandler(aggregator)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics/rerank", analyticsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

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
	if batch != nil {
		batch.Wait()
	}
	slog.Info("analytics service stopped")
}
