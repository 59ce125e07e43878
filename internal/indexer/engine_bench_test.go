package indexer

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
)

var benchTerms = []string{"solar", "wind", "grid", "battery", "turbine", "panel", "storage", "hydrogen"}

func benchEngine(b *testing.B, docs int) *Engine {
	b.Helper()
	e, err := NewEngine(config.IndexerConfig{DataDir: b.TempDir(), SegmentMaxSize: 100 << 20}, nil)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })
	for i := 0; i < docs; i++ {
		text := fmt.Sprintf("notes on %s and %s for %s systems",
			benchTerms[i%len(benchTerms)], benchTerms[(i+2)%len(benchTerms)], benchTerms[(i+3)%len(benchTerms)])
		if err := e.IndexDocument(index.Document{ID: fmt.Sprintf("doc-%d", i), Fields: map[string]string{"text": text}}); err != nil {
			b.Fatal(err)
		}
	}
	return e
}

// BenchmarkEngineIndex measures indexing throughput at several preloaded
// corpus sizes.
func BenchmarkEngineIndex(b *testing.B) {
	for _, preload := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			e := benchEngine(b, preload)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				doc := index.Document{
					ID:     fmt.Sprintf("bench-%d", i),
					Fields: map[string]string{"text": "benchmark document body for measuring indexing throughput"},
				}
				if err := e.IndexDocument(doc); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEnginePostings measures posting list lookups over 10 000
// documents, before and after a flush to segments.
func BenchmarkEnginePostings(b *testing.B) {
	for _, flushed := range []bool{false, true} {
		b.Run(fmt.Sprintf("flushed_%t", flushed), func(b *testing.B) {
			e := benchEngine(b, 10000)
			if flushed {
				if err := e.Flush(); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.Postings("text", benchTerms[i%len(benchTerms)]); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEngineTermVector measures the per-document reads feedback
// expansion performs.
func BenchmarkEngineTermVector(b *testing.B) {
	e := benchEngine(b, 10000)
	rng := rand.New(rand.NewPCG(1, 2))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := e.TermVector(fmt.Sprintf("doc-%d", rng.IntN(10000)), "text"); err != nil {
			b.Fatal(err)
		}
	}
}
