// Package tokenizer provides the analyzer used at index and query time.
// Text fields are lower-cased, split on non-alphanumeric boundaries,
// stripped of stop-words and passed through a simple suffix stemmer.
// Keyword fields are indexed verbatim as a single token.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Analyzer turns field text into tokens.
type Analyzer struct {
	stem     bool
	keywords map[string]struct{}
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithoutStemming disables the suffix stemmer for text fields.
func WithoutStemming() Option {
	return func(a *Analyzer) { a.stem = false }
}

// WithKeywordFields marks fields whose values are indexed as one
// untouched token, e.g. identifiers and categories used in filters.
func WithKeywordFields(fields ...string) Option {
	return func(a *Analyzer) {
		for _, f := range fields {
			a.keywords[f] = struct{}{}
		}
	}
}

// New creates an Analyzer. Stemming is on by default.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{stem: true, keywords: make(map[string]struct{})}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsKeyword reports whether field is indexed verbatim.
func (a *Analyzer) IsKeyword(field string) bool {
	_, ok := a.keywords[field]
	return ok
}

// Analyze returns positioned tokens for text in field. Invalid UTF-8 input
// is rejected with ErrTokenization.
func (a *Analyzer) Analyze(text string, field string) ([]Token, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("field %q: %w: invalid utf-8 input", field, apperrors.ErrTokenization)
	}
	if a.IsKeyword(field) {
		v := strings.TrimSpace(text)
		if v == "" {
			return nil, nil
		}
		return []Token{{Term: v, Position: 0}}, nil
	}
	return tokenize(text, a.stem), nil
}

// Tokenize returns the ordered terms of text in field.
func (a *Analyzer) Tokenize(text string, field string) ([]string, error) {
	tokens, err := a.Analyze(text, field)
	if err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Term == "" {
			continue
		}
		terms = append(terms, t.Term)
	}
	return terms, nil
}

// Tokenize breaks text into a slice of stemmed, lowercased Tokens with
// stop-words removed.
func Tokenize(text string) []Token {
	return tokenize(text, true)
}

func tokenize(text string, doStem bool) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		term := word
		if doStem {
			term = stem(word)
		}
		if term == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}
