package feature

import (
	"math"
	"testing"
)

const tolerance = 1e-6

func TestScaleToUnitL1Norm(t *testing.T) {
	v := New()
	v.AddWeight("solar", 3)
	v.AddWeight("power", 1)
	v = v.ScaleToUnitL1Norm()
	if got := v.L1Norm(); math.Abs(got-1.0) > tolerance {
		t.Errorf("expected unit norm, got %f", got)
	}
	if got := v.Weight("solar"); math.Abs(got-0.75) > tolerance {
		t.Errorf("expected solar=0.75, got %f", got)
	}
}

func TestScaleToUnitL1NormZeroVector(t *testing.T) {
	v := New()
	v.AddWeight("a", 0)
	v.AddWeight("b", 0)
	v = v.ScaleToUnitL1Norm()
	if v.Weight("a") != 0 || v.Weight("b") != 0 || v.Len() != 2 {
		t.Errorf("expected zero vector unchanged, got %s", v)
	}

	empty := New().ScaleToUnitL1Norm()
	if empty.Len() != 0 || empty.L1Norm() != 0 {
		t.Errorf("expected empty vector, got %s", empty)
	}
}

func TestTransformsLeaveReceiverUnchanged(t *testing.T) {
	v := New()
	v.AddWeight("solar", 3)
	v.AddWeight("power", 1)
	v.AddWeight("plant", 2)

	unit := v.ScaleToUnitL1Norm()
	pruned := v.PruneToSize(1)
	doubled := v.Scale(2)
	if v.Len() != 3 || v.Weight("solar") != 3 || v.L1Norm() != 6 {
		t.Errorf("expected receiver unchanged, got %s", v)
	}
	if math.Abs(unit.Weight("solar")-0.5) > tolerance {
		t.Errorf("expected normalized copy, got %s", unit)
	}
	if pruned.Len() != 1 || pruned.Weight("solar") != 3 {
		t.Errorf("expected pruned copy with solar only, got %s", pruned)
	}
	if doubled.Weight("plant") != 4 {
		t.Errorf("expected scaled copy, got %s", doubled)
	}
	unit.AddWeight("wind", 1)
	if v.Weight("wind") != 0 {
		t.Error("expected copies not to share storage with the receiver")
	}
}

func TestPruneToSize(t *testing.T) {
	tests := []struct {
		name    string
		weights map[string]float64
		k       int
		want    []string
	}{
		{
			name:    "keeps highest weights",
			weights: map[string]float64{"a": 1, "b": 5, "c": 3, "d": 2},
			k:       2,
			want:    []string{"b", "c"},
		},
		{
			name:    "ties broken lexicographically",
			weights: map[string]float64{"delta": 2, "alpha": 2, "charlie": 2, "bravo": 1},
			k:       2,
			want:    []string{"alpha", "charlie"},
		},
		{
			name:    "k larger than size is a no-op",
			weights: map[string]float64{"x": 1, "y": 2},
			k:       5,
			want:    []string{"x", "y"},
		},
		{
			name:    "k zero empties the vector",
			weights: map[string]float64{"x": 1},
			k:       0,
			want:    []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			for term, w := range tc.weights {
				v.AddWeight(term, w)
			}
			got := v.PruneToSize(tc.k).Terms()
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestPruneKeepsWeightsAboveDiscarded(t *testing.T) {
	v := New()
	weights := map[string]float64{"a": 0.4, "b": 0.1, "c": 0.9, "d": 0.4, "e": 0.7, "f": 0.2}
	for term, w := range weights {
		v.AddWeight(term, w)
	}
	v = v.PruneToSize(3)
	if v.Len() != 3 {
		t.Fatalf("expected 3 terms, got %d", v.Len())
	}
	minKept := math.Inf(1)
	for _, term := range v.Terms() {
		minKept = math.Min(minKept, v.Weight(term))
	}
	for term, w := range weights {
		if v.Weight(term) == 0 && w > minKept {
			t.Errorf("discarded %q (%f) outranks kept minimum %f", term, w, minKept)
		}
	}
	if v.Weight("a") == 0 || v.Weight("d") != 0 {
		t.Errorf("expected tie on 0.4 to keep a over d, got %s", v)
	}
}

func TestInterpolate(t *testing.T) {
	a := New()
	a.AddWeight("shared", 0.6)
	a.AddWeight("onlya", 0.4)
	b := New()
	b.AddWeight("shared", 0.2)
	b.AddWeight("onlyb", 0.8)

	one := Interpolate(a, b, 1.0)
	for _, term := range []string{"shared", "onlya", "onlyb"} {
		if math.Abs(one.Weight(term)-a.Weight(term)) > tolerance {
			t.Errorf("lambda=1: %q expected %f, got %f", term, a.Weight(term), one.Weight(term))
		}
	}
	zero := Interpolate(a, b, 0.0)
	for _, term := range []string{"shared", "onlya", "onlyb"} {
		if math.Abs(zero.Weight(term)-b.Weight(term)) > tolerance {
			t.Errorf("lambda=0: %q expected %f, got %f", term, b.Weight(term), zero.Weight(term))
		}
	}
	half := Interpolate(a, b, 0.5)
	if math.Abs(half.Weight("shared")-0.4) > tolerance {
		t.Errorf("expected shared=0.4, got %f", half.Weight("shared"))
	}
	if half.Len() != 3 {
		t.Errorf("expected union of 3 terms, got %d", half.Len())
	}
}

func TestFromTermsCountsOccurrences(t *testing.T) {
	v := FromTerms([]string{"solar", "power", "solar"})
	if v.Weight("solar") != 2 || v.Weight("power") != 1 {
		t.Errorf("unexpected weights %s", v)
	}
	if v.L1Norm() != 3 {
		t.Errorf("expected norm 3, got %f", v.L1Norm())
	}
}

func BenchmarkPruneToSize(b *testing.B) {
	base := New()
	for i := 0; i < 5000; i++ {
		base.AddWeight(string(rune('a'+i%26))+string(rune('a'+i/26%26))+string(rune('a'+i/676)), float64(i%97))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		base.Clone().PruneToSize(30)
	}
}
