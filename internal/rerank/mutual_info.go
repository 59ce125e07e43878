package rerank

import "math"

// docSet is a set of document ids.
type docSet = map[string]struct{}

// MutualInformation returns the mutual information of the presence of two
// terms over a pool of total documents, given the ids containing each. A
// term present in none or all of the pool does not vary and yields 0.
func MutualInformation(x, y map[string]struct{}, total int) float64 {
	x1, y1 := len(x), len(y)
	x0, y0 := total-x1, total-y1
	if x1 == 0 || x0 <= 0 || y1 == 0 || y0 <= 0 {
		return 0
	}
	small, large := x, y
	if len(small) > len(large) {
		small, large = large, small
	}
	n11 := 0
	for id := range small {
		if _, ok := large[id]; ok {
			n11++
		}
	}
	n10 := x1 - n11
	n01 := y1 - n11
	n00 := total - n11 - n10 - n01

	d := float64(total)
	pX0, pX1 := float64(x0)/d, float64(x1)/d
	pY0, pY1 := float64(y0)/d, float64(y1)/d

	m00 := miCell(float64(n00)/d, pX0*pY0)
	m11 := miCell(float64(n11)/d, pX1*pY1)
	m10 := miCell(float64(n10)/d, pX1*pY0)
	m01 := miCell(float64(n01)/d, pX0*pY1)
	// m10 and m01 swap when x and y do; summing them first keeps
	// MutualInformation(x, y) == MutualInformation(y, x) exactly.
	return m00 + m11 + (m10 + m01)
}

func miCell(joint, marginals float64) float64 {
	if joint == 0 {
		return 0
	}
	return joint * math.Log(joint/marginals)
}
