package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"rm3", StrategyRM3},
		{"ax", StrategyAxiom},
		{"id", StrategyIdentity},
		{"", StrategyIdentity},
		{"bm25", StrategyIdentity},
	}
	for _, tt := range tests {
		if got := ParseStrategy(tt.in); got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIdentityCopiesDocuments(t *testing.T) {
	docs := []ranker.ScoredDoc{{DocID: "a", Score: 2}, {DocID: "b", Score: 1}}
	res := Identity(docs)
	if res.Query != nil || res.ErrorMessage != "" {
		t.Errorf("expected bare identity result, got %+v", res)
	}
	res.Documents[0].Score = 99
	if docs[0].Score != 2 {
		t.Error("expected identity to copy its input")
	}
}

func TestUnknownStrategyFallsBackToIdentity(t *testing.T) {
	idx := solarIndex()
	m := metrics.New(nil)
	r := New(idx, WithMetrics(m))
	res := r.Rerank(context.Background(), Request{
		QueryText: "solar",
		Field:     "text",
		Documents: solarInputs(),
		Strategy:  "unknown",
	})
	if res.Query != nil || len(res.Documents) != 2 || res.Documents[0].DocID != "d1" {
		t.Errorf("expected identity, got %+v", res)
	}
	if len(idx.searched) != 0 {
		t.Error("identity must not search")
	}
	if got := testutil.ToFloat64(m.RerankTotal.WithLabelValues("id", "fallback")); got != 1 {
		t.Errorf("expected one identity fallback recorded, got %v", got)
	}
}

func TestRerankRecordsOutcomes(t *testing.T) {
	idx := solarIndex()
	m := metrics.New(nil)
	r := New(idx, WithMetrics(m), WithWorkers(2))
	req := Request{
		QueryText: "solar power",
		Field:     "text",
		Documents: solarInputs(),
		Strategy:  StrategyRM3,
		RM3:       DefaultRM3Params(),
	}
	r.Rerank(context.Background(), req)
	idx.searchErr = errors.New("boom")
	r.Rerank(context.Background(), req)

	if got := testutil.ToFloat64(m.RerankTotal.WithLabelValues("rm3", "ok")); got != 1 {
		t.Errorf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.RerankTotal.WithLabelValues("rm3", "degraded")); got != 1 {
		t.Errorf("expected 1 degraded, got %v", got)
	}
}

func TestTokenizeFailureDegrades(t *testing.T) {
	idx := solarIndex()
	idx.tokenizeErr = errors.New("analyzer closed")
	for _, s := range []Strategy{StrategyRM3, StrategyAxiom} {
		req := Request{
			QueryText: "solar",
			Field:     "text",
			Documents: solarInputs(),
			Strategy:  s,
			RM3:       DefaultRM3Params(),
			Axiom:     DefaultAxiomParams(),
		}
		res := New(idx).Rerank(context.Background(), req)
		if res.ErrorMessage == "" || res.Query != nil {
			t.Errorf("%s: expected degraded result without query, got %+v", s, res)
		}
		if len(res.Documents) != 2 {
			t.Errorf("%s: expected original documents, got %v", s, res.Documents)
		}
	}
}
