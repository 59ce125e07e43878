package handler

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
)

func benchHandler(b *testing.B, docs int) *Handler {
	b.Helper()
	e, err := indexer.NewEngine(config.IndexerConfig{DataDir: b.TempDir()}, nil)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })
	for i := 0; i < docs; i++ {
		doc := index.Document{
			ID:     fmt.Sprintf("doc%d", i),
			Fields: map[string]string{"text": corpus[i%len(corpus)] + fmt.Sprintf(" site %d", i%50)},
		}
		if err := e.IndexDocument(doc); err != nil {
			b.Fatal(err)
		}
	}
	s, err := searcher.New(e, ranker.BM25{K1: 1.2, B: 0.75}, 0)
	if err != nil {
		b.Fatal(err)
	}
	cfg := testConfig()
	return New(s, cfg.Search, cfg.Rerank, nil, nil)
}

// BenchmarkHandle measures the full first pass plus rerank per strategy over
// 5 000 documents.
func BenchmarkHandle(b *testing.B) {
	h := benchHandler(b, 5000)
	for _, rtype := range []string{"id", "rm3", "ax"} {
		b.Run(rtype, func(b *testing.B) {
			params := url.Values{"q": {"solar electricity"}, "rtype": {rtype}}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := h.Handle(context.Background(), params); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkHandleParallel(b *testing.B) {
	h := benchHandler(b, 5000)
	params := url.Values{"q": {"offshore wind"}, "rtype": {"rm3"}}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := h.Handle(context.Background(), params); err != nil {
				b.Fatal(err)
			}
		}
	})
}
