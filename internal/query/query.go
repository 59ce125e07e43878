// Package query defines the query tree shared by the first-pass query
// builders, the feedback rerankers and the executor. Nodes are immutable
// values that render a stable textual form for response headers and logs.
package query

import (
	"strconv"
	"strings"
)

// Query is a node in a query tree.
type Query interface {
	String() string
	isQuery()
}

// Occur controls how a Boolean clause participates in matching and scoring.
type Occur int

const (
	// Should clauses are optional and contribute to the score. A Boolean
	// without Must or Filter clauses requires at least one Should match.
	Should Occur = iota
	// Must clauses are required and contribute to the score.
	Must
	// Filter clauses are required and never contribute to the score.
	Filter
)

func (o Occur) prefix() string {
	switch o {
	case Must:
		return "+"
	case Filter:
		return "#"
	default:
		return ""
	}
}

// Term matches documents whose field contains the term.
type Term struct {
	Field string
	Text  string
}

func (Term) isQuery() {}

func (t Term) String() string {
	return t.Field + ":" + t.Text
}

// Clause is a single Boolean member.
type Clause struct {
	Query Query
	Occur Occur
}

// Boolean combines clauses.
type Boolean struct {
	Clauses []Clause
}

func (Boolean) isQuery() {}

func (b Boolean) String() string {
	parts := make([]string, 0, len(b.Clauses))
	for _, c := range b.Clauses {
		s := c.Query.String()
		if _, nested := c.Query.(Boolean); nested {
			s = "(" + s + ")"
		}
		parts = append(parts, c.Occur.prefix()+s)
	}
	return strings.Join(parts, " ")
}

// Boost multiplies the score of the wrapped query.
type Boost struct {
	Query Query
	Boost float64
}

func (Boost) isQuery() {}

func (b Boost) String() string {
	return "(" + b.Query.String() + ")^" + strconv.FormatFloat(b.Boost, 'g', -1, 64)
}

// SpanNear matches documents where the terms occur within Slop intervening
// positions of each other, optionally in the given order.
type SpanNear struct {
	Field   string
	Terms   []string
	Slop    int
	InOrder bool
}

func (SpanNear) isQuery() {}

func (s SpanNear) String() string {
	parts := make([]string, len(s.Terms))
	for i, t := range s.Terms {
		parts[i] = s.Field + ":" + t
	}
	return "spanNear([" + strings.Join(parts, ", ") + "], " +
		strconv.Itoa(s.Slop) + ", " + strconv.FormatBool(s.InOrder) + ")"
}

// IDSet matches exactly the listed document identifiers. It is intended
// as a non-scoring Filter clause.
type IDSet struct {
	IDs []string
}

func (IDSet) isQuery() {}

func (s IDSet) String() string {
	return "id:(" + strings.Join(s.IDs, " ") + ")"
}

// Disjunction returns a Boolean of Should clauses.
func Disjunction(queries ...Query) Boolean {
	clauses := make([]Clause, len(queries))
	for i, q := range queries {
		clauses[i] = Clause{Query: q, Occur: Should}
	}
	return Boolean{Clauses: clauses}
}

// Filtered conjoins main with a non-scoring filter.
func Filtered(main Query, filter Query) Boolean {
	return Boolean{Clauses: []Clause{
		{Query: main, Occur: Must},
		{Query: filter, Occur: Filter},
	}}
}

// Terms returns every distinct (field, term) pair referenced by q, in
// first-seen order. IDSet nodes contribute nothing.
func Terms(q Query) []Term {
	seen := make(map[Term]struct{})
	var out []Term
	var walk func(Query)
	walk = func(n Query) {
		switch v := n.(type) {
		case Term:
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		case Boolean:
			for _, c := range v.Clauses {
				walk(c.Query)
			}
		case Boost:
			walk(v.Query)
		case SpanNear:
			for _, t := range v.Terms {
				walk(Term{Field: v.Field, Text: t})
			}
		}
	}
	walk(q)
	return out
}
