package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/analytics"
)

// EventWriter is the persistence side of a BatchWriter.
type EventWriter interface {
	InsertEvents(ctx context.Context, events []analytics.RerankEvent) error
}

// BatchWriter buffers consumed events and writes them when the batch is
// full or on the flush interval. Failed batches are re-queued up to three
// batches' worth; older events beyond that are dropped.
type BatchWriter struct {
	writer        EventWriter
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	buffer  []analytics.RerankEvent
	flushMu sync.Mutex
	kick    chan struct{}
	done    chan struct{}
}

var _ analytics.Sink = (*BatchWriter)(nil)

func NewBatchWriter(writer EventWriter, batchSize int, flushInterval time.Duration) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchWriter{
		writer:        writer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		buffer:        make([]analytics.RerankEvent, 0, batchSize),
		logger:        slog.Default().With("component", "analytics-batch-writer"),
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is cancelled, then flushes once more.
func (bw *BatchWriter) Start(ctx context.Context) {
	go func() {
		defer close(bw.done)
		ticker := time.NewTicker(bw.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bw.Flush(ctx)
			case <-bw.kick:
				bw.Flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bw.Flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	bw.logger.Info("batch writer started", "batch_size", bw.batchSize, "flush_interval", bw.flushInterval)
}

// Add queues event and wakes the flush loop once a batch is full.
func (bw *BatchWriter) Add(event analytics.RerankEvent) {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, event)
	full := len(bw.buffer) >= bw.batchSize
	bw.mu.Unlock()
	if full {
		select {
		case bw.kick <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until the flush loop has exited.
func (bw *BatchWriter) Wait() {
	<-bw.done
}

func (bw *BatchWriter) Len() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Flush writes everything buffered. Flushes are serialized.
func (bw *BatchWriter) Flush(ctx context.Context) {
	bw.flushMu.Lock()
	defer bw.flushMu.Unlock()

	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}
	batch := bw.buffer
	bw.buffer = make([]analytics.RerankEvent, 0, bw.batchSize)
	bw.mu.Unlock()

	if err := bw.writer.InsertEvents(ctx, batch); err != nil {
		bw.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		bw.mu.Lock()
		bw.buffer = append(batch, bw.buffer...)
		if limit := bw.batchSize * 3; len(bw.buffer) > limit {
			dropped := len(bw.buffer) - limit
			bw.buffer = bw.buffer[dropped:]
			bw.logger.Warn("buffer overflow, oldest events dropped", "dropped", dropped)
		}
		bw.mu.Unlock()
		return
	}
	bw.logger.Debug("batch flushed", "events", len(batch))
}
