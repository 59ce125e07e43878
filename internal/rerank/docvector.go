package rerank

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/feature"
)

// VectorFilter drops noisy terms from feedback document vectors. The
// defaults are empirical and meant to be tuned per collection.
type VectorFilter struct {
	MinTermLength   int
	MaxTermLength   int
	TermPattern     *regexp.Regexp
	MaxDocFreqRatio float64
}

// DefaultVectorFilter keeps lowercase alphanumeric terms of 2 to 20
// characters that occur in at most 10% of the collection.
func DefaultVectorFilter() VectorFilter {
	return VectorFilter{
		MinTermLength:   2,
		MaxTermLength:   20,
		TermPattern:     regexp.MustCompile(`^[a-z0-9]+$`),
		MaxDocFreqRatio: 0.1,
	}
}

func (f VectorFilter) acceptsTerm(term string) bool {
	if len(term) < f.MinTermLength || (f.MaxTermLength > 0 && len(term) > f.MaxTermLength) {
		return false
	}
	return f.TermPattern == nil || f.TermPattern.MatchString(term)
}

// PoolFilter selects the terms recorded in the axiomatic term inverted set.
type PoolFilter struct {
	MinTermLength int
	TermPattern   *regexp.Regexp
}

// DefaultPoolFilter keeps purely alphabetic lowercase terms of at least
// two characters.
func DefaultPoolFilter() PoolFilter {
	return PoolFilter{
		MinTermLength: 2,
		TermPattern:   regexp.MustCompile(`^[a-z]+$`),
	}
}

func (f PoolFilter) acceptsTerm(term string) bool {
	if len(term) < f.MinTermLength {
		return false
	}
	return f.TermPattern == nil || f.TermPattern.MatchString(term)
}

// extractor builds filtered feature vectors from stored term vectors.
type extractor struct {
	idx    Index
	filter VectorFilter
	logger *slog.Logger
}

// documentVector returns the filtered raw-tf vector of docID in field. A
// missing term vector or any read failure yields an empty vector.
func (x extractor) documentVector(ctx context.Context, docID, field string) *feature.Vector {
	vec := feature.New()
	tv, ok, err := x.idx.TermVector(ctx, docID, field)
	if err != nil {
		x.logger.Warn("reading term vector failed, using empty vector",
			"doc_id", docID,
			"field", field,
			"error", err,
		)
		return vec
	}
	if !ok {
		x.logger.Debug("document has no term vector", "doc_id", docID, "field", field)
		return vec
	}
	total := x.idx.TotalDocs()
	if total <= 0 {
		return vec
	}
	for term, tf := range tv {
		if !x.filter.acceptsTerm(term) {
			continue
		}
		df, err := x.idx.DocFreq(field, term)
		if err != nil {
			x.logger.Warn("reading document frequency failed, using empty vector",
				"doc_id", docID,
				"term", term,
				"error", err,
			)
			return feature.New()
		}
		if float64(df)/float64(total) > x.filter.MaxDocFreqRatio {
			continue
		}
		vec.AddWeight(term, float64(tf))
	}
	return vec
}
