package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
)

const (
	defaultBufferSize = 10000
	publishBatch      = 64
	drainTimeout      = 5 * time.Second
)

// Collector publishes rerank events off the request path. Track never
// blocks: events arriving while the buffer is full are dropped and counted.
type Collector struct {
	publisher kafka.Publisher
	eventCh   chan RerankEvent
	metrics   *metrics.Metrics
	dropped   atomic.Int64
	logger    *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewCollector(publisher kafka.Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan RerankEvent, bufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. Buffered events are drained when ctx is
// cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, c.batch(event))
			case <-ctx.Done():
				drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
				c.drain(drainCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues event for publishing.
func (c *Collector) Track(event RerankEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		if c.metrics != nil {
			c.metrics.EventsDroppedTotal.Inc()
		}
		c.logger.Warn("analytics event dropped (buffer full)", "request_id", event.RequestID)
	}
}

// Dropped returns the number of events dropped so far.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for the buffer to be published.
// Track must not be called after Close.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.eventCh) })
	<-c.done
}

// batch collects first plus whatever is already buffered, up to
// publishBatch events.
func (c *Collector) batch(first RerankEvent) []kafka.Event {
	events := []kafka.Event{toKafka(first)}
	for len(events) < publishBatch {
		select {
		case e, ok := <-c.eventCh:
			if !ok {
				return events
			}
			events = append(events, toKafka(e))
		default:
			return events
		}
	}
	return events
}

func (c *Collector) drain(ctx context.Context) {
	for {
		select {
		case e, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, c.batch(e))
		default:
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, events []kafka.Event) {
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(events), "error", err)
	}
}

func toKafka(e RerankEvent) kafka.Event {
	return kafka.Event{Key: e.Strategy, Value: e, RequestID: e.RequestID}
}
