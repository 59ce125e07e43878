// Command indexer builds the on-disk index the rerank service opens. It
// reads a JSONL corpus, indexes every document not already present and
// flushes the result to segment files.
//
// Usage:
//
//	go run ./cmd/indexer -corpus corpus.jsonl [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/logger"
)

// progressEvery is how many documents pass between progress logs.
const progressEvery = 10000

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusPath := flag.String("corpus", "", "JSONL corpus to index")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *corpusPath == "" {
		slog.Error("-corpus is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := indexer.NewEngine(cfg.Indexer, nil)
	if err != nil {
		slog.Error("failed to open index", "data_dir", cfg.Indexer.DataDir, "error", err)
		os.Exit(1)
	}
	slog.Info("indexing corpus",
		"corpus", *corpusPath,
		"data_dir", cfg.Indexer.DataDir,
		"existing_documents", engine.TotalDocs(),
	)

	start := time.Now()
	added, skipped, err := build(ctx, engine, *corpusPath)
	if err != nil {
		slog.Error("indexing failed", "added", added, "error", err)
	}
	slog.Info("flushing index before shutdown")
	if cerr := engine.Close(); cerr != nil {
		slog.Error("final flush failed", "error", cerr)
		os.Exit(1)
	}
	if err != nil {
		os.Exit(1)
	}
	slog.Info("indexer finished",
		"added", added,
		"skipped", skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// build indexes the corpus until it is exhausted or ctx is cancelled.
// Documents already in the index are skipped.
func build(ctx context.Context, engine *indexer.Engine, path string) (added, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	err = ingestion.ReadJSONL(f, func(doc index.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if engine.HasDocument(doc.ID) {
			skipped++
			return nil
		}
		if err := engine.IndexDocument(doc); err != nil {
			return err
		}
		added++
		if added%progressEvery == 0 {
			slog.Info("indexing progress", "added", added, "skipped", skipped)
		}
		return nil
	})
	return added, skipped, err
}
