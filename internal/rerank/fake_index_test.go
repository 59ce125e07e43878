package rerank

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/query"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
)

// fakeIndex is an in-memory Index with hand-set statistics.
type fakeIndex struct {
	vectors     map[string]map[string]int
	df          map[string]int
	total       int
	ids         []string
	vectorErr   map[string]error
	tokenizeErr error
	searchErr   error
	results     []ranker.ScoredDoc

	searched []query.Query
	limits   []int
}

func (f *fakeIndex) Tokenize(text, field string) ([]string, error) {
	if f.tokenizeErr != nil {
		return nil, f.tokenizeErr
	}
	return strings.Fields(strings.ToLower(text)), nil
}

func (f *fakeIndex) Search(ctx context.Context, q query.Query, limit int) ([]ranker.ScoredDoc, error) {
	f.searched = append(f.searched, q)
	f.limits = append(f.limits, limit)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeIndex) TermVector(ctx context.Context, docID, field string) (map[string]int, bool, error) {
	if err := f.vectorErr[docID]; err != nil {
		return nil, false, err
	}
	v, ok := f.vectors[docID]
	return v, ok, nil
}

func (f *fakeIndex) DocFreq(field, term string) (int, error) {
	return f.df[term], nil
}

func (f *fakeIndex) TotalDocs() int {
	return f.total
}

func (f *fakeIndex) Sample(rng *rand.Rand, count int) []string {
	if count > len(f.ids) {
		count = len(f.ids)
	}
	perm := rng.Perm(len(f.ids))
	out := make([]string, count)
	for i := range out {
		out[i] = f.ids[perm[i]]
	}
	return out
}

// boosts returns term -> boost for a disjunction of boosted terms.
func boosts(q query.Query) map[string]float64 {
	out := make(map[string]float64)
	b, ok := q.(query.Boolean)
	if !ok {
		return out
	}
	for _, c := range b.Clauses {
		if bq, ok := c.Query.(query.Boost); ok {
			if t, ok := bq.Query.(query.Term); ok {
				out[t.Text] = bq.Boost
			}
		}
	}
	return out
}
