package ranker

import (
	"math"
	"testing"
)

func TestForName(t *testing.T) {
	for _, name := range []string{"", "bm", "ql"} {
		if _, err := ForName(name); err != nil {
			t.Errorf("ForName(%q) failed: %v", name, err)
		}
	}
	if _, err := ForName("tfidf"); err == nil {
		t.Error("expected error for unknown similarity")
	}
}

func TestBM25(t *testing.T) {
	sim := BM25{K1: k1, B: b}
	stats := TermStats{DocFreq: 1, TotalDocs: 10, AvgDocLength: 5}

	got := sim.Score(stats, 1, 5)
	idf := math.Log((10-1)/(1+0.5) + 1)
	want := idf * (1 * (k1 + 1)) / (1 + k1)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, got)
	}
	if more := sim.Score(stats, 3, 5); more <= got {
		t.Errorf("higher tf should score higher: %v <= %v", more, got)
	}
	if longer := sim.Score(stats, 1, 20); longer >= got {
		t.Errorf("longer doc should score lower: %v >= %v", longer, got)
	}
	rare := sim.Score(stats, 1, 5)
	common := sim.Score(TermStats{DocFreq: 8, TotalDocs: 10, AvgDocLength: 5}, 1, 5)
	if common >= rare {
		t.Errorf("common term should score lower: %v >= %v", common, rare)
	}
	if sim.Score(stats, 0, 5) != 0 {
		t.Error("absent term should score zero")
	}
}

func TestQueryLikelihood(t *testing.T) {
	sim := QueryLikelihood{Mu: 10}
	stats := TermStats{CollectionFreq: 2, CollectionLength: 100}

	got := sim.Score(stats, 2, 10)
	p := 3.0 / 101.0
	want := math.Log(1+2/(10*p)) + math.Log(10.0/20.0)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, got)
	}
	if sim.Score(TermStats{CollectionFreq: 99, CollectionLength: 100}, 1, 1000) != 0 {
		t.Error("expected negative score clipped to zero")
	}
}

func TestSort(t *testing.T) {
	docs := []ScoredDoc{{"b", 1}, {"a", 1}, {"c", 2}}
	Sort(docs)
	if docs[0].DocID != "c" || docs[1].DocID != "a" || docs[2].DocID != "b" {
		t.Errorf("unexpected order %v", docs)
	}
}
