package analytics

import "time"

// RerankEvent describes one served rerank request.
type RerankEvent struct {
	RequestID      string    `json:"request_id"`
	Query          string    `json:"query"`
	Strategy       string    `json:"strategy"`
	QueryType      string    `json:"query_type"`
	Similarity     string    `json:"similarity"`
	Outcome        string    `json:"outcome"`
	InputDocs      int       `json:"input_docs"`
	OutputDocs     int       `json:"output_docs"`
	ExpansionTerms int       `json:"expansion_terms"`
	SecondQuery    string    `json:"second_query,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CacheHit       bool      `json:"cache_hit"`
	LatencyMs      int64     `json:"latency_ms"`
	Timestamp      time.Time `json:"timestamp"`
}
