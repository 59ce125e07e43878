package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *fakePublisher) Publish(ctx context.Context, events ...kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func TestCollectorDropsWhenFull(t *testing.T) {
	m := metrics.New(nil)
	c := NewCollector(&fakePublisher{}, 1, m)
	c.Track(RerankEvent{Query: "a"})
	c.Track(RerankEvent{Query: "b"})
	c.Track(RerankEvent{Query: "c"})
	if c.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", c.Dropped())
	}
	if got := testutil.ToFloat64(m.EventsDroppedTotal); got != 2 {
		t.Errorf("expected dropped counter 2, got %v", got)
	}
}

func TestCollectorPublishesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, nil)
	for _, q := range []string{"solar", "wind", "coal"} {
		c.Track(RerankEvent{Query: q, Strategy: "rm3", RequestID: "r-" + q})
	}
	c.Start(context.Background())
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(pub.events))
	}
	if pub.events[0].Key != "rm3" || pub.events[0].RequestID != "r-solar" {
		t.Errorf("unexpected event %+v", pub.events[0])
	}
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Track(RerankEvent{Query: "late"})
	c.Start(ctx)
	<-c.done
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Errorf("expected buffered event drained, got %d", len(pub.events))
	}
}

type recordingSink struct{ events []RerankEvent }

func (s *recordingSink) Add(e RerankEvent) { s.events = append(s.events, e) }

func TestAggregatorStats(t *testing.T) {
	sink := &recordingSink{}
	a := NewAggregator(sink)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.startTime = start
	a.now = func() time.Time { return start.Add(2 * time.Minute) }

	events := []RerankEvent{
		{Query: "solar", Strategy: "rm3", Outcome: "ok", ExpansionTerms: 10, LatencyMs: 10},
		{Query: "solar", Strategy: "rm3", Outcome: "ok", ExpansionTerms: 6, LatencyMs: 30, CacheHit: true},
		{Query: "wind", Strategy: "ax", Outcome: "degraded", ErrorMessage: "index read failed", LatencyMs: 5},
		{Query: "coal", Strategy: "id", Outcome: "fallback", LatencyMs: 1},
	}
	for _, e := range events {
		a.Record(e)
	}
	s := a.Stats()
	if s.TotalRequests != 4 || s.CacheHits != 1 {
		t.Errorf("unexpected totals %+v", s)
	}
	rm3 := s.Strategies["rm3"]
	if rm3.Requests != 2 || rm3.Outcomes["ok"] != 2 || rm3.AvgExpansionTerms != 8 || rm3.AvgLatencyMs != 20 {
		t.Errorf("unexpected rm3 stats %+v", rm3)
	}
	if rm3.P50LatencyMs != 30 || rm3.P99LatencyMs != 30 {
		t.Errorf("unexpected rm3 percentiles %+v", rm3)
	}
	if s.Strategies["ax"].Outcomes["degraded"] != 1 {
		t.Errorf("expected degraded axiom outcome, got %+v", s.Strategies["ax"])
	}
	if len(s.TopQueries) == 0 || s.TopQueries[0] != (QueryCount{Query: "solar", Count: 2}) {
		t.Errorf("unexpected top queries %v", s.TopQueries)
	}
	if len(s.DegradedQueries) != 1 || s.DegradedQueries[0].Query != "wind" {
		t.Errorf("unexpected degraded queries %v", s.DegradedQueries)
	}
	if s.RequestsPerMinute != 2 {
		t.Errorf("expected 2 requests per minute, got %v", s.RequestsPerMinute)
	}
	if len(sink.events) != 4 {
		t.Errorf("expected events forwarded to sink, got %d", len(sink.events))
	}
}

func TestAggregatorHandleMessage(t *testing.T) {
	a := NewAggregator(nil)
	value, _ := json.Marshal(RerankEvent{Query: "solar", Strategy: "rm3", Outcome: "ok"})
	if err := a.HandleMessage(context.Background(), kafka.Message{Value: value, RequestID: "hdr"}); err != nil {
		t.Fatal(err)
	}
	if err := a.HandleMessage(context.Background(), kafka.Message{Value: []byte("{")}); !errors.Is(err, kafka.ErrSkip) {
		t.Errorf("expected ErrSkip for a malformed event, got %v", err)
	}
	if a.Stats().TotalRequests != 1 {
		t.Error("expected one recorded event")
	}
}

func TestStatsHandler(t *testing.T) {
	a := NewAggregator(nil)
	a.Record(RerankEvent{Query: "solar", Strategy: "ax", Outcome: "ok"})
	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/rerank", nil))
	var s Stats
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || s.Strategies["ax"].Requests != 1 {
		t.Errorf("unexpected response %d %+v", rec.Code, s)
	}
}

func TestStatsHandlerFilters(t *testing.T) {
	a := NewAggregator(nil)
	for _, q := range []string{"solar", "wind", "solar", "grid"} {
		a.Record(RerankEvent{Query: q, Strategy: "rm3", Outcome: "ok"})
	}
	a.Record(RerankEvent{Query: "coal", Strategy: "ax", Outcome: "degraded"})
	h := NewHandler(a)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/rerank?strategy=rm3&top=1", nil))
	var s Stats
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if len(s.Strategies) != 1 || s.Strategies["rm3"].Requests != 4 {
		t.Errorf("expected only rm3 stats, got %+v", s.Strategies)
	}
	if len(s.TopQueries) != 1 || s.TopQueries[0].Query != "solar" || s.TopQueries[0].Count != 2 {
		t.Errorf("unexpected top queries %+v", s.TopQueries)
	}
	if s.TotalRequests != 5 {
		t.Errorf("expected totals across strategies, got %d", s.TotalRequests)
	}

	for _, bad := range []string{"top=0", "top=x", "top=1000"} {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/rerank?"+bad, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", bad, rec.Code)
		}
	}
}
