// Package ranker holds the term-level similarity functions used to score
// query matches.
package ranker

import (
	"fmt"
	"math"
	"sort"
)

const (
	k1 = 1.2
	b  = 0.75

	defaultMu = 2000
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// TermStats are the collection statistics of one field term.
type TermStats struct {
	DocFreq          int
	CollectionFreq   int64
	TotalDocs        int
	AvgDocLength     float64
	CollectionLength int64
}

// Similarity scores one term occurrence in one document.
type Similarity interface {
	Name() string
	Score(stats TermStats, termFreq float64, docLength int) float64
}

// ForName returns the similarity registered under name: "bm" for BM25 and
// "ql" for Dirichlet-smoothed query likelihood.
func ForName(name string) (Similarity, error) {
	switch name {
	case "", "bm":
		return BM25{K1: k1, B: b}, nil
	case "ql":
		return QueryLikelihood{Mu: defaultMu}, nil
	default:
		return nil, fmt.Errorf("unknown similarity %q", name)
	}
}

// BM25 is Okapi BM25.
type BM25 struct {
	K1 float64
	B  float64
}

func (BM25) Name() string { return "bm" }

func (s BM25) Score(stats TermStats, termFreq float64, docLength int) float64 {
	if termFreq <= 0 {
		return 0
	}
	idf := computeIDF(int64(stats.TotalDocs), int64(stats.DocFreq))
	return idf * s.tfNorm(termFreq, float64(docLength), stats.AvgDocLength)
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func (s BM25) tfNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + s.K1*(1-s.B+s.B*lengthRatio)
	return (termFreq * (s.K1 + 1)) / denominator
}

// QueryLikelihood is the language-model similarity with Dirichlet
// smoothing. Negative per-term scores are clipped to zero.
type QueryLikelihood struct {
	Mu float64
}

func (QueryLikelihood) Name() string { return "ql" }

func (s QueryLikelihood) Score(stats TermStats, termFreq float64, docLength int) float64 {
	if termFreq <= 0 {
		return 0
	}
	p := float64(stats.CollectionFreq+1) / float64(stats.CollectionLength+1)
	score := math.Log(1+termFreq/(s.Mu*p)) + math.Log(s.Mu/(float64(docLength)+s.Mu))
	if score < 0 {
		return 0
	}
	return score
}

// Sort orders docs by descending score, breaking ties by ascending id.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}
