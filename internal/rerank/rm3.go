package rerank

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/feature"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/tracing"
)

// minFeedbackNorm is the smallest document vector norm that contributes
// to the relevance model.
const minFeedbackNorm = 0.001

func (r *Reranker) rerankRM3(ctx context.Context, req Request) Result {
	p := req.RM3
	terms, err := r.idx.Tokenize(req.QueryText, req.Field)
	if err != nil {
		return degraded(nil, req.Documents, fmt.Sprintf("tokenizing query: %v", err))
	}
	queryVector := feature.FromTerms(terms).ScaleToUnitL1Norm()

	fb, err := r.feedbackVector(ctx, req.Documents, req.Field, p)
	if err != nil {
		return degraded(nil, req.Documents, err.Error())
	}
	interpolated := feature.Interpolate(queryVector, fb, p.OriginalQueryWeight)
	q := weightedDisjunction(req.Field, interpolated.Terms(), interpolated.Weight)
	return r.secondPass(ctx, q, req.Documents, p.Restrict)
}

// feedbackVector builds the L1-normalized relevance model of the top
// min(FbDocs, len(docs)) documents. Document vectors are read in parallel
// and merged in rank order.
func (r *Reranker) feedbackVector(ctx context.Context, docs []ranker.ScoredDoc, field string, p RM3Params) (*feature.Vector, error) {
	ctx, span := tracing.StartChildSpan(ctx, "rerank.rm3.feedback")
	defer span.End()

	n := min(max(p.FbDocs, 0), len(docs))
	span.SetAttr("feedback_docs", n)
	r.observeFeedbackDocs(StrategyRM3, n)

	x := extractor{idx: r.idx, filter: r.vectorFilter, logger: r.logger}
	vectors := make([]*feature.Vector, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vectors[i] = x.documentVector(gctx, docs[i].DocID, field).PruneToSize(p.FbTerms)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading feedback documents: %w", err)
	}

	norms := make([]float64, n)
	vocab := make(map[string]struct{})
	for i, v := range vectors {
		norms[i] = v.L1Norm()
		for _, t := range v.Terms() {
			vocab[t] = struct{}{}
		}
	}
	fb := feature.New()
	for term := range vocab {
		var weight float64
		for i, v := range vectors {
			if norms[i] <= minFeedbackNorm {
				continue
			}
			weight += (v.Weight(term) / norms[i]) * docs[i].Score
		}
		fb.AddWeight(term, weight)
	}
	return fb.PruneToSize(p.FbTerms).ScaleToUnitL1Norm(), nil
}
