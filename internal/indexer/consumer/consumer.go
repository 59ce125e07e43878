// Package consumer indexes ingest events read from Kafka into the search
// service's engine and invalidates cached rerank responses once the
// collection has changed.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
)

// DocumentIndexer is the write side of the engine.
type DocumentIndexer interface {
	IndexDocument(doc index.Document) error
}

// Invalidator drops cached responses.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// IndexConsumer turns ingest events into indexed documents.
type IndexConsumer struct {
	engine      DocumentIndexer
	invalidator Invalidator
	metrics     *metrics.Metrics
	dirty       atomic.Bool
	logger      *slog.Logger
}

// New creates an IndexConsumer. invalidator and m may be nil.
func New(engine DocumentIndexer, invalidator Invalidator, m *metrics.Metrics) *IndexConsumer {
	return &IndexConsumer{
		engine:      engine,
		invalidator: invalidator,
		metrics:     m,
		logger:      slog.Default().With("component", "index-consumer"),
	}
}

// HandleMessage is a kafka.MessageHandler. Malformed events and documents
// the engine rejects are skipped; replays of already indexed documents are
// acknowledged. Any other failure is returned for retry.
func (ic *IndexConsumer) HandleMessage(ctx context.Context, msg kafka.Message) error {
	event, err := kafka.DecodeJSON[ingestion.IngestEvent](msg.Value)
	if err != nil {
		ic.logger.Error("failed to decode ingest event",
			"error", err,
			"key", string(msg.Key),
			"offset", msg.Offset,
		)
		return err
	}
	doc := event.Document
	err = ic.engine.IndexDocument(doc)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrDocumentExists):
		ic.logger.Debug("document already indexed", "doc_id", doc.ID)
		return nil
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrTokenization):
		ic.logger.Warn("document rejected by the engine",
			"doc_id", doc.ID,
			"request_id", msg.RequestID,
			"error", err,
		)
		return fmt.Errorf("%w: %v", kafka.ErrSkip, err)
	default:
		return fmt.Errorf("indexing document %s: %w", doc.ID, err)
	}

	ic.dirty.Store(true)
	if ic.metrics != nil {
		ic.metrics.DocsIndexedTotal.Inc()
	}
	ic.logger.Info("document indexed",
		"doc_id", doc.ID,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"lag_ms", time.Since(event.IngestedAt).Milliseconds(),
	)
	return nil
}

// InvalidateIfDirty drops cached responses when documents were indexed
// since the last call. It reports whether an invalidation ran.
func (ic *IndexConsumer) InvalidateIfDirty(ctx context.Context) bool {
	if ic.invalidator == nil || !ic.dirty.Swap(false) {
		return false
	}
	if err := ic.invalidator.Invalidate(ctx); err != nil {
		ic.dirty.Store(true)
		ic.logger.Error("cache invalidation failed", "error", err)
		return false
	}
	return true
}

// StartInvalidationLoop calls InvalidateIfDirty every interval until ctx is
// cancelled.
func (ic *IndexConsumer) StartInvalidationLoop(ctx context.Context, interval time.Duration) {
	if ic.invalidator == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ic.InvalidateIfDirty(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
