package rerank

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/tracing"
)

const (
	// minTermScore excludes candidates with a negligible score.
	minTermScore = 1e-8
	// maxSampleRounds bounds the calls to Index.Sample while filling the pool.
	maxSampleRounds = 16
)

// termScore is a candidate expansion term and its score.
type termScore struct {
	Term  string
	Score float64
}

func (r *Reranker) rerankAxiom(ctx context.Context, req Request) Result {
	p := req.Axiom
	rng := r.randFactory(p.Seed)

	pool, err := r.samplePool(ctx, rng, req.Documents, p)
	if err != nil {
		return degraded(nil, req.Documents, err.Error())
	}
	inverted, err := r.termInvertedSet(ctx, pool, req.Field)
	if err != nil {
		return degraded(nil, req.Documents, err.Error())
	}
	terms, err := r.idx.Tokenize(req.QueryText, req.Field)
	if err != nil {
		return degraded(nil, req.Documents, fmt.Sprintf("tokenizing query: %v", err))
	}
	selected, err := r.scoreTerms(inverted, terms, req.Field, p)
	if err != nil {
		return degraded(nil, req.Documents, err.Error())
	}
	if len(selected) == 0 {
		r.logger.Info("axiomatic rerank found no expansion terms, keeping original ranking",
			"query", req.QueryText,
			"reason", apperrors.ErrEmptyFeedback,
		)
		return Identity(req.Documents)
	}

	weights := make(map[string]float64, len(selected))
	ordered := make([]string, len(selected))
	for i, ts := range selected {
		weights[ts.Term] = ts.Score
		ordered[i] = ts.Term
	}
	q := weightedDisjunction(req.Field, ordered, func(t string) float64 { return weights[t] })
	return r.secondPass(ctx, q, req.Documents, p.Restrict)
}

// samplePool returns the top min(R, len(docs)) document ids plus uniformly
// sampled collection ids, up to min(R*N, TotalDocs) distinct ids.
func (r *Reranker) samplePool(ctx context.Context, rng *rand.Rand, docs []ranker.ScoredDoc, p AxiomParams) ([]string, error) {
	_, span := tracing.StartChildSpan(ctx, "rerank.axiom.sample")
	defer span.End()

	top := min(max(p.R, 0), len(docs))
	pool := make([]string, 0, top)
	seen := make(map[string]struct{}, top)
	for _, d := range docs[:top] {
		if _, dup := seen[d.DocID]; dup {
			continue
		}
		seen[d.DocID] = struct{}{}
		pool = append(pool, d.DocID)
	}

	target := min(max(p.R, 0)*max(p.N, 0), r.idx.TotalDocs())
	for round := 0; len(pool) < target && round < maxSampleRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sampling document pool: %w", err)
		}
		for _, id := range r.idx.Sample(rng, target) {
			if len(pool) >= target {
				break
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			pool = append(pool, id)
		}
	}
	span.SetAttr("pool_size", len(pool))
	span.SetAttr("target", target)
	r.observeFeedbackDocs(StrategyAxiom, len(pool))
	return pool, nil
}

// termInvertedSet maps every pool term passing the pool filter to the ids
// of the pool documents containing it. Documents without a term vector are
// skipped.
func (r *Reranker) termInvertedSet(ctx context.Context, pool []string, field string) (map[string]docSet, error) {
	ctx, span := tracing.StartChildSpan(ctx, "rerank.axiom.extract")
	defer span.End()

	vectors := make([]map[string]int, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, id := range pool {
		g.Go(func() error {
			tv, ok, err := r.idx.TermVector(gctx, id, field)
			if err != nil {
				return fmt.Errorf("reading term vector of %q: %w", id, err)
			}
			if ok {
				vectors[i] = tv
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inverted := make(map[string]docSet)
	for i, tv := range vectors {
		for term := range tv {
			if !r.poolFilter.acceptsTerm(term) {
				continue
			}
			set, ok := inverted[term]
			if !ok {
				set = make(docSet)
				inverted[term] = set
			}
			set[pool[i]] = struct{}{}
		}
	}
	span.SetAttr("terms", len(inverted))
	return inverted, nil
}

// scoreTerms ranks the pool vocabulary against each distinct query term by
// mutual information and returns the top M aggregated expansion terms.
func (r *Reranker) scoreTerms(inverted map[string]docSet, queryTerms []string, field string, p AxiomParams) ([]termScore, error) {
	if len(queryTerms) == 0 {
		return nil, nil
	}
	qtf := make(map[string]int)
	for _, t := range queryTerms {
		qtf[t]++
	}
	distinct := make([]string, 0, len(qtf))
	for t := range qtf {
		distinct = append(distinct, t)
	}
	sort.Strings(distinct)

	// D is the number of pool documents holding at least one kept term.
	all := make(docSet)
	for _, set := range inverted {
		for id := range set {
			all[id] = struct{}{}
		}
	}
	poolSize := len(all)
	collection := float64(r.idx.TotalDocs())
	keep := max(p.M, p.K, 0)

	agg := make(map[string]float64)
	for _, qt := range distinct {
		df, err := r.idx.DocFreq(field, qt)
		if err != nil {
			return nil, fmt.Errorf("reading document frequency of %q: %w", qt, err)
		}
		if df == 0 {
			continue
		}
		qSet, ok := inverted[qt]
		if !ok {
			continue
		}
		idf := math.Log((1 + collection) / float64(df))
		freq := float64(qtf[qt])
		selfMI := MutualInformation(qSet, qSet, poolSize)

		ranking := make([]termScore, 0, len(inverted))
		for cand, cSet := range inverted {
			var score float64
			switch {
			case cand == qt:
				score = idf * freq
			case selfMI == 0:
				continue
			default:
				score = idf * p.Beta * freq * MutualInformation(qSet, cSet, poolSize) / selfMI
			}
			if score > minTermScore {
				ranking = append(ranking, termScore{Term: cand, Score: score})
			}
		}
		if keep == 0 {
			continue
		}
		for _, ts := range merger.TopN(ranking, keep, termBefore) {
			agg[ts.Term] += ts.Score
		}
	}

	final := make([]termScore, 0, len(agg))
	for term, score := range agg {
		final = append(final, termScore{Term: term, Score: score / float64(len(queryTerms))})
	}
	if p.M <= 0 {
		return nil, nil
	}
	return merger.TopN(final, p.M, termBefore), nil
}

// termBefore orders by descending score, then case-insensitive term, then
// the term itself.
func termBefore(a, b termScore) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	la, lb := strings.ToLower(a.Term), strings.ToLower(b.Term)
	if la != lb {
		return la < lb
	}
	return a.Term < b.Term
}
