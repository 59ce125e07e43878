// Package searcher joins the index engine, its analyzer and the query
// executor into the read-only view used by query builders and rerankers.
package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/query"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
)

const defaultDocCacheSize = 4096

// Searcher serves queries against one engine. Documents are immutable once
// indexed, so their records are cached by id.
type Searcher struct {
	engine *indexer.Engine
	exec   *executor.Executor
	docs   *lru.Cache[string, *index.DocRecord]
	logger *slog.Logger
}

// New creates a Searcher scoring with sim. cacheSize <= 0 uses the default
// record cache size.
func New(engine *indexer.Engine, sim ranker.Similarity, cacheSize int) (*Searcher, error) {
	if cacheSize <= 0 {
		cacheSize = defaultDocCacheSize
	}
	docs, err := lru.New[string, *index.DocRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating document cache: %w", err)
	}
	return &Searcher{
		engine: engine,
		exec:   executor.New(engine, sim),
		docs:   docs,
		logger: slog.Default().With("component", "searcher"),
	}, nil
}

// WithSimilarity returns a Searcher sharing engine and record cache but
// scoring with sim.
func (s *Searcher) WithSimilarity(sim ranker.Similarity) *Searcher {
	return &Searcher{
		engine: s.engine,
		exec:   s.exec.WithSimilarity(sim),
		docs:   s.docs,
		logger: s.logger,
	}
}

func (s *Searcher) Similarity() ranker.Similarity {
	return s.exec.Similarity()
}

func (s *Searcher) Tokenize(text, field string) ([]string, error) {
	return s.engine.Analyzer().Tokenize(text, field)
}

func (s *Searcher) Search(ctx context.Context, q query.Query, limit int) ([]ranker.ScoredDoc, error) {
	return s.exec.Search(ctx, q, limit)
}

// Execute runs q and reports the total number of matches with the top
// limit documents.
func (s *Searcher) Execute(ctx context.Context, q query.Query, limit int) (*executor.SearchResult, error) {
	return s.exec.Execute(ctx, q, limit)
}

func (s *Searcher) TermVector(ctx context.Context, docID, field string) (map[string]int, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	rec, ok, err := s.Doc(docID)
	if err != nil || !ok {
		return nil, false, err
	}
	vec, ok := rec.Vectors[field]
	return vec, ok, nil
}

// Doc returns the stored record of docID, reading through the cache.
func (s *Searcher) Doc(docID string) (*index.DocRecord, bool, error) {
	if rec, ok := s.docs.Get(docID); ok {
		return rec, true, nil
	}
	rec, ok, err := s.engine.Doc(docID)
	if err != nil || !ok {
		return nil, ok, err
	}
	s.docs.Add(docID, rec)
	return rec, true, nil
}

func (s *Searcher) DocFreq(field, term string) (int, error) {
	return s.engine.DocFreq(field, term)
}

func (s *Searcher) TotalDocs() int {
	return s.engine.TotalDocs()
}

func (s *Searcher) Sample(rng *rand.Rand, count int) []string {
	return s.engine.Sample(rng, count)
}
