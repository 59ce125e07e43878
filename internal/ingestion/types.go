// Package ingestion defines the document ingest contract shared by the
// ingestion service, which publishes documents to Kafka, and the search
// service, which consumes them into its index.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
)

// IngestRequest is the JSON body accepted by POST /api/v1/documents.
type IngestRequest struct {
	Documents []index.Document `json:"documents"`
}

// IngestResponse reports how many documents were accepted for indexing.
type IngestResponse struct {
	Accepted int    `json:"accepted"`
	Status   string `json:"status"`
}

// IngestEvent is the Kafka message payload consumed by the indexer.
type IngestEvent struct {
	Document   index.Document `json:"document"`
	IngestedAt time.Time      `json:"ingested_at"`
}
