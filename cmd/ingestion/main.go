// Command ingestion publishes documents to the ingest topic for the rerank
// service to index.
//
// With -file it publishes every record of a JSONL corpus and exits.
// Otherwise it serves POST /api/v1/documents, which accepts
// {"documents":[{"id":..,"fields":{..}}]}.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml] [-file corpus.jsonl]
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

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/resilience"
)

// fileBatchSize is the number of corpus records published per call.
const fileBatchSize = 500

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	file := flag.String("file", "", "JSONL corpus to publish; serve HTTP when empty")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentIngest)
	pub := publisher.New(producer, resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond})

	if *file != "" {
		n, err := publishFile(ctx, pub, *file)
		if err != nil {
			slog.Error("publishing corpus failed", "path", *file, "published", n, "error", err)
			os.Exit(1)
		}
		slog.Info("corpus published", "path", *file, "documents", n)
		return
	}

	h := handler.New(pub)
	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "producer ready"}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.RequestID(mux),
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
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}

func publishFile(ctx context.Context, pub *publisher.Publisher, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	published := 0
	batch := make([]index.Document, 0, fileBatchSize)
	flush := func() error {
		n, err := pub.Publish(ctx, "", batch...)
		published += n
		batch = batch[:0]
		return err
	}
	err = ingestion.ReadJSONL(f, func(doc index.Document) error {
		batch = append(batch, doc)
		if len(batch) == fileBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return published, err
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return published, err
		}
	}
	return published, nil
}
