// Package querybuilder turns raw query text into first-pass query trees:
// a bag of words or a sequential dependence model, optionally filtered.
package querybuilder

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
)

// Analyzer splits text into index terms for a field.
type Analyzer interface {
	Tokenize(text, field string) ([]string, error)
}

// Type selects the first-pass query model.
type Type string

const (
	TypeBagOfWords           Type = "bow"
	TypeSequentialDependence Type = "sdm"
)

// ParseType maps a request value to a Type, defaulting to bag of words.
func ParseType(s string) Type {
	if Type(s) == TypeSequentialDependence {
		return TypeSequentialDependence
	}
	return TypeBagOfWords
}

const (
	orderedSlop   = 1
	unorderedSlop = 8
)

// SDMParams weights the three components of a sequential dependence query.
type SDMParams struct {
	TermWeight            float64
	OrderedWindowWeight   float64
	UnorderedWindowWeight float64
}

func DefaultSDMParams() SDMParams {
	return SDMParams{
		TermWeight:            0.85,
		OrderedWindowWeight:   0.1,
		UnorderedWindowWeight: 0.05,
	}
}

// Builder builds first-pass queries against one default field.
type Builder struct {
	analyzer Analyzer
	field    string
	sdm      SDMParams
}

func New(analyzer Analyzer, field string, sdm SDMParams) *Builder {
	return &Builder{analyzer: analyzer, field: field, sdm: sdm}
}

// Build dispatches on t. filters are "field:value" expressions.
func (b *Builder) Build(t Type, text string, filters []string) (query.Query, error) {
	if t == TypeSequentialDependence {
		return b.SequentialDependence(text, filters)
	}
	return b.BagOfWords(text, filters)
}

// BagOfWords returns a disjunction with one term per token. Repeated tokens
// keep one clause each.
func (b *Builder) BagOfWords(text string, filters []string) (query.Query, error) {
	tokens, err := b.tokenize(text)
	if err != nil {
		return nil, err
	}
	return applyFilters(b.unigrams(tokens), filters)
}

// SequentialDependence combines unigrams with ordered and unordered
// windows over adjacent token pairs. A single token degenerates to the
// unboosted unigram disjunction.
func (b *Builder) SequentialDependence(text string, filters []string) (query.Query, error) {
	tokens, err := b.tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) < 2 {
		return applyFilters(b.unigrams(tokens), filters)
	}

	ordered := make([]query.Query, 0, len(tokens)-1)
	unordered := make([]query.Query, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		pair := []string{tokens[i], tokens[i+1]}
		ordered = append(ordered, query.SpanNear{Field: b.field, Terms: pair, Slop: orderedSlop, InOrder: true})
		unordered = append(unordered, query.SpanNear{Field: b.field, Terms: pair, Slop: unorderedSlop, InOrder: false})
	}
	main := query.Disjunction(
		query.Boost{Query: b.unigrams(tokens), Boost: b.sdm.TermWeight},
		query.Boost{Query: query.Disjunction(ordered...), Boost: b.sdm.OrderedWindowWeight},
		query.Boost{Query: query.Disjunction(unordered...), Boost: b.sdm.UnorderedWindowWeight},
	)
	return applyFilters(main, filters)
}

func (b *Builder) tokenize(text string) ([]string, error) {
	tokens, err := b.analyzer.Tokenize(text, b.field)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenization, err)
	}
	return tokens, nil
}

func (b *Builder) unigrams(tokens []string) query.Boolean {
	terms := make([]query.Query, len(tokens))
	for i, t := range tokens {
		terms[i] = query.Term{Field: b.field, Text: t}
	}
	return query.Disjunction(terms...)
}

// ParseFilter splits "field:value" on the first colon.
func ParseFilter(expr string) (query.Term, error) {
	field, value, ok := strings.Cut(expr, ":")
	if !ok || field == "" {
		return query.Term{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"filter must have the form field:value, got "+strconv.Quote(expr))
	}
	return query.Term{Field: field, Text: value}, nil
}

// applyFilters conjoins main with a disjunction of the filter terms. No
// filters leaves main unchanged.
func applyFilters(main query.Query, filters []string) (query.Query, error) {
	if len(filters) == 0 {
		return main, nil
	}
	terms := make([]query.Query, len(filters))
	for i, f := range filters {
		t, err := ParseFilter(f)
		if err != nil {
			return nil, err
		}
		terms[i] = t
	}
	return query.Filtered(main, query.Disjunction(terms...)), nil
}
