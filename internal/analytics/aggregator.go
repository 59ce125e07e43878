package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/kafka"
)

const maxLatencySamples = 10000

// StrategyStats summarizes the events of one rerank strategy.
type StrategyStats struct {
	Requests          int64            `json:"requests"`
	Outcomes          map[string]int64 `json:"outcomes"`
	AvgExpansionTerms float64          `json:"avg_expansion_terms"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Stats is a point-in-time summary of consumed rerank events.
type Stats struct {
	TotalRequests     int64                    `json:"total_requests"`
	CacheHits         int64                    `json:"cache_hits"`
	Strategies        map[string]StrategyStats `json:"strategies"`
	TopQueries        []QueryCount             `json:"top_queries"`
	DegradedQueries   []QueryCount             `json:"degraded_queries"`
	RequestsPerMinute float64                  `json:"requests_per_minute"`
	CapturedAt        time.Time                `json:"captured_at"`
}

// Sink receives every consumed event, e.g. for persistence.
type Sink interface {
	Add(event RerankEvent)
}

type strategyState struct {
	requests       int64
	outcomes       map[string]int64
	expansionTerms int64
	latencySum     int64
	latencies      []int64
}

// Aggregator folds rerank events into in-memory statistics.
type Aggregator struct {
	mu              sync.RWMutex
	total           int64
	cacheHits       int64
	strategies      map[string]*strategyState
	queryCounts     map[string]int64
	degradedQueries map[string]int64
	startTime       time.Time

	sink   Sink
	now    func() time.Time
	logger *slog.Logger
}

// NewAggregator creates an Aggregator forwarding events to sink, which may
// be nil.
func NewAggregator(sink Sink) *Aggregator {
	return &Aggregator{
		strategies:      make(map[string]*strategyState),
		queryCounts:     make(map[string]int64),
		degradedQueries: make(map[string]int64),
		startTime:       time.Now(),
		sink:            sink,
		now:             time.Now,
		logger:          slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleMessage is a kafka.MessageHandler for the rerank events topic.
func (a *Aggregator) HandleMessage(ctx context.Context, msg kafka.Message) error {
	event, err := kafka.DecodeJSON[RerankEvent](msg.Value)
	if err != nil {
		a.logger.Warn("undecodable analytics event", "offset", msg.Offset, "error", err)
		return err
	}
	if event.RequestID == "" {
		event.RequestID = msg.RequestID
	}
	a.Record(event)
	return nil
}

func (a *Aggregator) Record(event RerankEvent) {
	a.mu.Lock()
	a.total++
	if event.CacheHit {
		a.cacheHits++
	}
	st, ok := a.strategies[event.Strategy]
	if !ok {
		st = &strategyState{outcomes: make(map[string]int64)}
		a.strategies[event.Strategy] = st
	}
	st.requests++
	st.outcomes[event.Outcome]++
	st.expansionTerms += int64(event.ExpansionTerms)
	st.latencySum += event.LatencyMs
	if len(st.latencies) < maxLatencySamples {
		st.latencies = append(st.latencies, event.LatencyMs)
	} else {
		st.latencies[st.requests%maxLatencySamples] = event.LatencyMs
	}
	a.queryCounts[event.Query]++
	if event.ErrorMessage != "" {
		a.degradedQueries[event.Query]++
	}
	a.mu.Unlock()

	if a.sink != nil {
		a.sink.Add(event)
	}
}

// Stats summarizes everything consumed so far with the ten most frequent
// queries.
func (a *Aggregator) Stats() Stats {
	return a.StatsTop(10)
}

// StatsTop is Stats with the query lists trimmed to n entries.
func (a *Aggregator) StatsTop(n int) Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.now()
	stats := Stats{
		TotalRequests:   a.total,
		CacheHits:       a.cacheHits,
		Strategies:      make(map[string]StrategyStats, len(a.strategies)),
		TopQueries:      topN(a.queryCounts, n),
		DegradedQueries: topN(a.degradedQueries, n),
		CapturedAt:      now.UTC(),
	}
	for name, st := range a.strategies {
		outcomes := make(map[string]int64, len(st.outcomes))
		for k, v := range st.outcomes {
			outcomes[k] = v
		}
		ss := StrategyStats{Requests: st.requests, Outcomes: outcomes}
		if st.requests > 0 {
			ss.AvgExpansionTerms = float64(st.expansionTerms) / float64(st.requests)
			ss.AvgLatencyMs = float64(st.latencySum) / float64(st.requests)
		}
		if len(st.latencies) > 0 {
			sorted := make([]int64, len(st.latencies))
			copy(sorted, st.latencies)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			ss.P50LatencyMs = percentile(sorted, 50)
			ss.P95LatencyMs = percentile(sorted, 95)
			ss.P99LatencyMs = percentile(sorted, 99)
		}
		stats.Strategies[name] = ss
	}
	if elapsed := now.Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.RequestsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := min((pct*len(sorted))/100, len(sorted)-1)
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken by query text.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		result = append(result, QueryCount{Query: q, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
