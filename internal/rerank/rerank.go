// Package rerank re-orders a first-pass result set by synthesizing a
// second-pass query from feedback: RM3 relevance models, axiomatic
// mutual-information expansion, or an identity pass-through.
//
// Rerank never fails. Index and search failures degrade to the original
// documents with Result.ErrorMessage set.
package rerank

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/query"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/tracing"
)

// Index is the read-only view of the collection the rerankers need.
type Index interface {
	Tokenize(text, field string) ([]string, error)
	Search(ctx context.Context, q query.Query, limit int) ([]ranker.ScoredDoc, error)
	TermVector(ctx context.Context, docID, field string) (map[string]int, bool, error)
	DocFreq(field, term string) (int, error)
	TotalDocs() int
	Sample(rng *rand.Rand, count int) []string
}

// Strategy names a reranking strategy.
type Strategy string

const (
	StrategyRM3      Strategy = "rm3"
	StrategyAxiom    Strategy = "ax"
	StrategyIdentity Strategy = "id"
)

// ParseStrategy maps a request value to a Strategy. Unknown values fall back
// to Identity.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyRM3, StrategyAxiom:
		return Strategy(s)
	default:
		return StrategyIdentity
	}
}

// Request is one rerank call.
type Request struct {
	QueryText string
	Field     string
	Documents []ranker.ScoredDoc
	Strategy  Strategy
	RM3       RM3Params
	Axiom     AxiomParams
}

// Result is the outcome of a rerank call. Query is nil when no second-pass
// query was built. ErrorMessage is set when the call degraded to the
// original documents.
type Result struct {
	Query        query.Query
	Documents    []ranker.ScoredDoc
	ErrorMessage string
}

// Outcome classifies the result: "degraded" when an error message is set,
// "fallback" when no query was built, "ok" otherwise.
func (r Result) Outcome() string {
	switch {
	case r.ErrorMessage != "":
		return "degraded"
	case r.Query == nil:
		return "fallback"
	default:
		return "ok"
	}
}

// Identity returns docs unchanged with no query.
func Identity(docs []ranker.ScoredDoc) Result {
	return Result{Documents: cloneDocs(docs)}
}

// RandFactory creates the random source used for pool sampling. seed is
// AxiomParams.Seed; zero asks for a non-reproducible source.
type RandFactory func(seed int64) *rand.Rand

// DefaultRandFactory seeds PCG from seed, or from the runtime source when
// seed is zero.
func DefaultRandFactory(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

type Option func(*Reranker)

func WithVectorFilter(f VectorFilter) Option {
	return func(r *Reranker) { r.vectorFilter = f }
}

func WithPoolFilter(f PoolFilter) Option {
	return func(r *Reranker) { r.poolFilter = f }
}

// WithWorkers bounds concurrent term-vector reads per call.
func WithWorkers(n int) Option {
	return func(r *Reranker) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithRandFactory(f RandFactory) Option {
	return func(r *Reranker) {
		if f != nil {
			r.randFactory = f
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reranker) { r.metrics = m }
}

// Reranker dispatches rerank requests to the configured strategies.
type Reranker struct {
	idx          Index
	vectorFilter VectorFilter
	poolFilter   PoolFilter
	workers      int
	randFactory  RandFactory
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func New(idx Index, opts ...Option) *Reranker {
	r := &Reranker{
		idx:          idx,
		vectorFilter: DefaultVectorFilter(),
		poolFilter:   DefaultPoolFilter(),
		workers:      8,
		randFactory:  DefaultRandFactory,
		logger:       slog.Default().With("component", "reranker"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank runs req.Strategy over req.Documents.
func (r *Reranker) Rerank(ctx context.Context, req Request) Result {
	strategy := ParseStrategy(string(req.Strategy))
	ctx, span := tracing.StartChildSpan(ctx, "rerank."+string(strategy))
	defer span.End()
	span.SetAttr("input_docs", len(req.Documents))
	start := time.Now()

	var res Result
	switch strategy {
	case StrategyRM3:
		res = r.rerankRM3(ctx, req)
	case StrategyAxiom:
		res = r.rerankAxiom(ctx, req)
	default:
		res = Identity(req.Documents)
	}

	outcome := res.Outcome()
	if res.ErrorMessage != "" {
		span.SetAttr("error", res.ErrorMessage)
	}
	terms := 0
	if res.Query != nil {
		terms = len(query.Terms(res.Query))
	}
	span.SetAttr("outcome", outcome)
	span.SetAttr("expansion_terms", terms)
	if r.metrics != nil {
		r.metrics.RerankTotal.WithLabelValues(string(strategy), outcome).Inc()
		r.metrics.RerankLatency.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
		if res.Query != nil {
			r.metrics.ExpansionTerms.WithLabelValues(string(strategy)).Observe(float64(terms))
		}
	}
	r.logger.Debug("rerank complete",
		"strategy", strategy,
		"outcome", outcome,
		"input_docs", len(req.Documents),
		"output_docs", len(res.Documents),
		"expansion_terms", terms,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (r *Reranker) observeFeedbackDocs(strategy Strategy, n int) {
	if r.metrics != nil {
		r.metrics.FeedbackDocs.WithLabelValues(string(strategy)).Observe(float64(n))
	}
}

// degraded returns the original documents with msg and the query built so
// far, which may be nil.
func degraded(q query.Query, docs []ranker.ScoredDoc, msg string) Result {
	return Result{Query: q, Documents: cloneDocs(docs), ErrorMessage: msg}
}

// secondPass runs q, optionally restricted to the first-pass ids, for up to
// len(inputs) hits. The returned Result carries the unrestricted q.
func (r *Reranker) secondPass(ctx context.Context, q query.Query, inputs []ranker.ScoredDoc, restrict bool) Result {
	if len(inputs) == 0 {
		return Result{Query: q, Documents: []ranker.ScoredDoc{}}
	}
	run := q
	if restrict {
		run = query.Filtered(q, query.IDSet{IDs: docIDs(inputs)})
	}
	docs, err := r.idx.Search(ctx, run, len(inputs))
	if err != nil {
		r.logger.Error("second-pass search failed, returning original ranking", "error", err)
		return degraded(q, inputs, err.Error())
	}
	return Result{Query: q, Documents: docs}
}

// weightedDisjunction builds a Should query boosting each term by its
// weight.
func weightedDisjunction(field string, terms []string, weight func(string) float64) query.Boolean {
	clauses := make([]query.Query, len(terms))
	for i, t := range terms {
		clauses[i] = query.Boost{Query: query.Term{Field: field, Text: t}, Boost: weight(t)}
	}
	return query.Disjunction(clauses...)
}

func docIDs(docs []ranker.ScoredDoc) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}
	return ids
}

func cloneDocs(docs []ranker.ScoredDoc) []ranker.ScoredDoc {
	out := make([]ranker.ScoredDoc, len(docs))
	copy(out, docs)
	return out
}
