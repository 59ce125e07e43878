// Package feature provides a sparse weighted term vector used to represent
// queries and feedback documents during reranking.
package feature

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// normEpsilon guards ScaleToUnitL1Norm against division blow-up.
const normEpsilon = 1e-9

// Vector maps terms to non-negative weights. A Vector is owned by the call
// that built it and is not safe for concurrent mutation.
type Vector struct {
	weights map[string]float64
}

// New returns an empty Vector.
func New() *Vector {
	return &Vector{weights: make(map[string]float64)}
}

// FromTerms builds a Vector with weight 1 per occurrence of each term.
func FromTerms(terms []string) *Vector {
	v := New()
	for _, t := range terms {
		v.AddWeight(t, 1)
	}
	return v
}

// AddWeight adds delta to the current weight of term.
func (v *Vector) AddWeight(term string, delta float64) {
	v.weights[term] += delta
}

// Weight returns the weight of term, or 0 when absent.
func (v *Vector) Weight(term string) float64 {
	return v.weights[term]
}

// Len returns the number of terms in the vector.
func (v *Vector) Len() int {
	return len(v.weights)
}

// Terms returns the terms in lexicographic order.
func (v *Vector) Terms() []string {
	terms := make([]string, 0, len(v.weights))
	for t := range v.weights {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// L1Norm returns the sum of absolute weights.
func (v *Vector) L1Norm() float64 {
	var norm float64
	for _, w := range v.weights {
		norm += math.Abs(w)
	}
	return norm
}

// ScaleToUnitL1Norm returns a copy of v with every weight divided by the
// L1 norm. A vector whose norm is at or below a small epsilon is copied
// unchanged. v itself is not modified.
func (v *Vector) ScaleToUnitL1Norm() *Vector {
	out := v.Clone()
	norm := v.L1Norm()
	if norm <= normEpsilon {
		return out
	}
	for t, w := range out.weights {
		out.weights[t] = w / norm
	}
	return out
}

// Scale returns a copy of v with every weight multiplied by factor.
func (v *Vector) Scale(factor float64) *Vector {
	out := v.Clone()
	for t, w := range out.weights {
		out.weights[t] = w * factor
	}
	return out
}

// PruneToSize returns a vector holding the k highest-weighted terms of v.
// Ties are broken by lexicographic term order so the result is
// deterministic. v itself is not modified.
func (v *Vector) PruneToSize(k int) *Vector {
	if k < 0 {
		k = 0
	}
	if k >= len(v.weights) {
		return v.Clone()
	}
	out := &Vector{weights: make(map[string]float64, k)}
	for _, e := range v.ranked()[:k] {
		out.weights[e.term] = e.weight
	}
	return out
}

// Clone returns an independent copy of v.
func (v *Vector) Clone() *Vector {
	c := &Vector{weights: make(map[string]float64, len(v.weights))}
	for t, w := range v.weights {
		c.weights[t] = w
	}
	return c
}

// Interpolate returns lambda*a + (1-lambda)*b over the union of terms.
// A lambda outside [0,1] is accepted but yields weights of undefined quality.
func Interpolate(a, b *Vector, lambda float64) *Vector {
	out := a.Scale(lambda)
	for t, w := range b.weights {
		out.weights[t] += (1 - lambda) * w
	}
	return out
}

type entry struct {
	term   string
	weight float64
}

// ranked returns entries by descending weight, then ascending term.
func (v *Vector) ranked() []entry {
	entries := make([]entry, 0, len(v.weights))
	for t, w := range v.weights {
		entries = append(entries, entry{term: t, weight: w})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].term < entries[j].term
	})
	return entries
}

// String renders the vector as "term:weight" pairs by descending weight.
func (v *Vector) String() string {
	parts := make([]string, 0, len(v.weights))
	for _, e := range v.ranked() {
		parts = append(parts, fmt.Sprintf("%s:%.6f", e.term, e.weight))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
