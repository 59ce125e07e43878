package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/query"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
)

// Index is the read side of the engine needed to evaluate a query tree.
type Index interface {
	Postings(field, term string) (index.PostingList, error)
	HasDocument(docID string) bool
	DocLength(docID, field string) int
	AvgDocLength(field string) float64
	FieldTokens(field string) int64
	TotalDocs() int
}

type SearchResult struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

type Executor struct {
	idx    Index
	sim    ranker.Similarity
	logger *slog.Logger
}

func New(idx Index, sim ranker.Similarity) *Executor {
	if sim == nil {
		sim = ranker.BM25{K1: 1.2, B: 0.75}
	}
	return &Executor{
		idx:    idx,
		sim:    sim,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// WithSimilarity returns an executor over the same index scoring with sim.
func (e *Executor) WithSimilarity(sim ranker.Similarity) *Executor {
	return &Executor{idx: e.idx, sim: sim, logger: e.logger}
}

// Similarity returns the similarity used for scoring.
func (e *Executor) Similarity() ranker.Similarity {
	return e.sim
}

// Execute evaluates q and returns the limit best matches.
func (e *Executor) Execute(ctx context.Context, q query.Query, limit int) (*SearchResult, error) {
	matches, err := e.eval(ctx, q)
	if err != nil {
		return nil, err
	}
	docs := make([]ranker.ScoredDoc, 0, len(matches))
	for id, score := range matches {
		docs = append(docs, ranker.ScoredDoc{DocID: id, Score: score})
	}
	ranked := merger.TopN(docs, limit, merger.ByScore)
	e.logger.Debug("query executed",
		"query", q.String(),
		"similarity", e.sim.Name(),
		"candidates", len(matches),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     q.String(),
		TotalHits: len(matches),
		Results:   ranked,
	}, nil
}

// Search is Execute without the metadata.
func (e *Executor) Search(ctx context.Context, q query.Query, limit int) ([]ranker.ScoredDoc, error) {
	res, err := e.Execute(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// matchSet maps matching document ids to their score.
type matchSet map[string]float64

func (e *Executor) eval(ctx context.Context, q query.Query) (matchSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch n := q.(type) {
	case query.Term:
		return e.evalTerm(n)
	case query.Boost:
		inner, err := e.eval(ctx, n.Query)
		if err != nil {
			return nil, err
		}
		for id := range inner {
			inner[id] *= n.Boost
		}
		return inner, nil
	case query.Boolean:
		return e.evalBoolean(ctx, n)
	case query.SpanNear:
		return e.evalSpan(n)
	case query.IDSet:
		out := make(matchSet, len(n.IDs))
		for _, id := range n.IDs {
			if e.idx.HasDocument(id) {
				out[id] = 0
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported query node %T", q)
	}
}

func (e *Executor) evalTerm(t query.Term) (matchSet, error) {
	postings, err := e.idx.Postings(t.Field, t.Text)
	if err != nil {
		return nil, fmt.Errorf("searching term %q: %w", t.String(), err)
	}
	out := make(matchSet, len(postings))
	if len(postings) == 0 {
		return out, nil
	}
	var cf int64
	for _, p := range postings {
		cf += int64(p.Frequency)
	}
	stats := e.stats(t.Field, len(postings), cf)
	for _, p := range postings {
		out[p.DocID] = e.sim.Score(stats, float64(p.Frequency), e.idx.DocLength(p.DocID, t.Field))
	}
	return out, nil
}

func (e *Executor) stats(field string, df int, cf int64) ranker.TermStats {
	return ranker.TermStats{
		DocFreq:          df,
		CollectionFreq:   cf,
		TotalDocs:        e.idx.TotalDocs(),
		AvgDocLength:     e.idx.AvgDocLength(field),
		CollectionLength: e.idx.FieldTokens(field),
	}
}

func (e *Executor) evalBoolean(ctx context.Context, bq query.Boolean) (matchSet, error) {
	var required matchSet
	hasRequired := false
	optional := make([]matchSet, 0, len(bq.Clauses))
	for _, c := range bq.Clauses {
		m, err := e.eval(ctx, c.Query)
		if err != nil {
			return nil, err
		}
		switch c.Occur {
		case query.Must, query.Filter:
			scoring := c.Occur == query.Must
			if !hasRequired {
				required = make(matchSet, len(m))
				for id, s := range m {
					if scoring {
						required[id] = s
					} else {
						required[id] = 0
					}
				}
				hasRequired = true
				continue
			}
			for id := range required {
				s, ok := m[id]
				if !ok {
					delete(required, id)
					continue
				}
				if scoring {
					required[id] += s
				}
			}
		default:
			optional = append(optional, m)
		}
	}
	if hasRequired {
		for _, m := range optional {
			for id := range required {
				required[id] += m[id]
			}
		}
		return required, nil
	}
	out := make(matchSet)
	for _, m := range optional {
		for id, s := range m {
			out[id] += s
		}
	}
	return out, nil
}

func (e *Executor) evalSpan(sq query.SpanNear) (matchSet, error) {
	out := make(matchSet)
	if len(sq.Terms) == 0 {
		return out, nil
	}
	positions := make([]map[string][]int, len(sq.Terms))
	for i, term := range sq.Terms {
		postings, err := e.idx.Postings(sq.Field, term)
		if err != nil {
			return nil, fmt.Errorf("searching span term %q: %w", term, err)
		}
		positions[i] = make(map[string][]int, len(postings))
		for _, p := range postings {
			positions[i][p.DocID] = p.Positions
		}
	}
	freqs := make(map[string]int)
	var cf int64
	for docID := range positions[0] {
		perTerm := make([][]int, len(sq.Terms))
		ok := true
		for i := range sq.Terms {
			pos, found := positions[i][docID]
			if !found {
				ok = false
				break
			}
			perTerm[i] = pos
		}
		if !ok {
			continue
		}
		var n int
		if sq.InOrder {
			n = orderedMatches(perTerm, sq.Slop)
		} else {
			n = unorderedMatches(perTerm, sq.Slop)
		}
		if n > 0 {
			freqs[docID] = n
			cf += int64(n)
		}
	}
	if len(freqs) == 0 {
		return out, nil
	}
	stats := e.stats(sq.Field, len(freqs), cf)
	for docID, n := range freqs {
		out[docID] = e.sim.Score(stats, float64(n), e.idx.DocLength(docID, sq.Field))
	}
	return out, nil
}

// orderedMatches counts the start positions of the first term from which
// every following term can be found in order with at most slop
// intervening positions in total.
func orderedMatches(perTerm [][]int, slop int) int {
	count := 0
	for _, start := range perTerm[0] {
		cur := start
		matched := true
		for _, pos := range perTerm[1:] {
			i := sort.SearchInts(pos, cur+1)
			if i == len(pos) {
				matched = false
				break
			}
			cur = pos[i]
		}
		if matched && cur-start+1-len(perTerm) <= slop {
			count++
		}
	}
	return count
}

type occurrence struct {
	pos  int
	term int
}

// unorderedMatches counts the start positions of minimal windows that hold
// every term, in any order, with at most slop intervening positions.
func unorderedMatches(perTerm [][]int, slop int) int {
	var occ []occurrence
	for t, pos := range perTerm {
		for _, p := range pos {
			occ = append(occ, occurrence{pos: p, term: t})
		}
	}
	sort.Slice(occ, func(i, j int) bool {
		if occ[i].pos != occ[j].pos {
			return occ[i].pos < occ[j].pos
		}
		return occ[i].term < occ[j].term
	})
	count := 0
	for s := range occ {
		seen := make([]bool, len(perTerm))
		remaining := len(perTerm)
		lastTaken := -1
		for j := s; j < len(occ) && remaining > 0; j++ {
			if occ[j].pos-occ[s].pos+1-len(perTerm) > slop {
				break
			}
			if !seen[occ[j].term] && occ[j].pos != lastTaken {
				seen[occ[j].term] = true
				lastTaken = occ[j].pos
				remaining--
			}
		}
		if remaining == 0 {
			count++
		}
	}
	return count
}
