// Package publisher validates documents and publishes them as ingest events
// to Kafka for the search service to index.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/resilience"
)

// defaultBatchSize is the number of events written per Kafka call.
const defaultBatchSize = 100

// Publisher turns documents into ingest events keyed by document id, so
// every version of a document lands on the same partition.
type Publisher struct {
	producer  kafka.Publisher
	retry     resilience.RetryConfig
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

func New(producer kafka.Publisher, retry resilience.RetryConfig) *Publisher {
	return &Publisher{
		producer:  producer,
		retry:     retry,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    slog.Default().With("component", "publisher"),
	}
}

// Publish validates every document first and publishes nothing when any is
// invalid. Valid documents are written in batches, each retried with
// backoff.
func (p *Publisher) Publish(ctx context.Context, requestID string, docs ...index.Document) (int, error) {
	for i := range docs {
		if err := validator.ValidateDocument(&docs[i]); err != nil {
			return 0, fmt.Errorf("document %d: %w", i, err)
		}
	}
	published := 0
	for start := 0; start < len(docs); start += p.batchSize {
		batch := docs[start:min(start+p.batchSize, len(docs))]
		events := make([]kafka.Event, len(batch))
		for i, doc := range batch {
			events[i] = kafka.Event{
				Key:       doc.ID,
				Value:     ingestion.IngestEvent{Document: doc, IngestedAt: p.now().UTC()},
				RequestID: requestID,
			}
		}
		err := resilience.Retry(ctx, "publish-documents", p.retry, func() error {
			return p.producer.Publish(ctx, events...)
		})
		if err != nil {
			p.logger.Error("publishing documents failed",
				"published", published,
				"remaining", len(docs)-published,
				"error", err,
			)
			return published, apperrors.Newf(apperrors.ErrInternal, http.StatusServiceUnavailable,
				"published %d of %d documents: %v", published, len(docs), err)
		}
		published += len(batch)
	}
	p.logger.Info("documents published", "count", published)
	return published, nil
}
