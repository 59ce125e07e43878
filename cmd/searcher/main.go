// Command searcher starts the rerank HTTP service.
//
// It opens the local index, optionally consumes the document ingest topic
// into it, and serves GET /api/v1/rerank: a bag-of-words or sequential
// dependence first pass reranked with RM3, axiomatic expansion or the
// identity strategy. Responses are cached in Redis when it is reachable and
// every request is published as an analytics event.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/rerank"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/tracing"
)

// cacheInvalidationInterval bounds how stale cached responses can be after
// new documents are indexed.
const cacheInvalidationInterval = 5 * time.Second

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	tracing.Configure(cfg.Tracing)
	slog.Info("starting rerank service",
		"port", cfg.Server.Port,
		"strategy", cfg.Rerank.Strategy,
		"similarity", cfg.Search.Similarity,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		if _, err := metrics.StartServer(ctx, cfg.Metrics.Port, m); err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
	}

	engine, err := indexer.NewEngine(cfg.Indexer, nil)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer engine.Close()
	engine.StartFlushLoop(ctx)
	slog.Info("index opened", "data_dir", cfg.Indexer.DataDir, "documents", engine.TotalDocs())

	sim, err := ranker.ForName(cfg.Search.Similarity)
	if err != nil {
		slog.Error("invalid similarity", "error", err)
		os.Exit(1)
	}
	s, err := searcher.New(engine, sim, 0)
	if err != nil {
		slog.Error("failed to create searcher", "error", err)
		os.Exit(1)
	}

	var responseCache *cache.ResponseCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, rerank caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		responseCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		slog.Info("rerank cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector = analytics.NewCollector(analyticsProducer, 10000, m)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

		var invalidator consumer.Invalidator
		if responseCache != nil {
			invalidator = responseCache
		}
		ic := consumer.New(engine, invalidator, m)
		ic.StartInvalidationLoop(ctx, cacheInvalidationInterval)
		ingest := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, ic.HandleMessage)
		go func() {
			if err := ingest.Start(ctx); err != nil {
				slog.Error("ingest consumer error", "error", err)
			}
		}()
		slog.Info("ingest consumer started", "topic", cfg.Kafka.Topics.DocumentIngest)
	}

	checker := health.NewChecker()
	checker.Register("index_engine", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents", engine.TotalDocs()),
		}
	})
	var redisPing func(context.Context) error
	if redisClient != nil {
		redisPing = redisClient.Ping
	}
	checker.RegisterPing("redis", true, redisPing)

	h := handler.New(s, cfg.Search, cfg.Rerank, responseCache, collector, rerank.OptionsFromConfig(cfg.Rerank, m)...)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/rerank", h.Rerank)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 5*time.Minute)
		chain = limiter.Handler(chain)
		go sweep(ctx, limiter)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...))(chain)
	}
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

	slog.Info("rerank service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("rerank service stopped")
}

func sweep(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				slog.Debug("rate limiter swept idle clients", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
