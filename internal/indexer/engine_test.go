package indexer

import (
	"math/rand/v2"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
)

func newTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := NewEngine(config.IndexerConfig{DataDir: dir, KeywordFields: []string{"category"}}, nil)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	return e
}

func doc(id, text string) index.Document {
	return index.Document{ID: id, Fields: map[string]string{"text": text, "category": "energy"}}
}

func TestEngineIndexAndLookup(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Close()

	for _, d := range []index.Document{
		doc("d1", "solar power plant"),
		doc("d2", "solar panels on the roof"),
		doc("d3", "wind farms"),
	} {
		if err := e.IndexDocument(d); err != nil {
			t.Fatalf("indexing %s: %v", d.ID, err)
		}
	}
	if err := e.IndexDocument(doc("d1", "again")); !apperrors.Is(err, apperrors.ErrDocumentExists) {
		t.Errorf("expected ErrDocumentExists, got %v", err)
	}
	if err := e.IndexDocument(index.Document{ID: " "}); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	if e.TotalDocs() != 3 {
		t.Errorf("expected 3 docs, got %d", e.TotalDocs())
	}
	df, err := e.DocFreq("text", "solar")
	if err != nil || df != 2 {
		t.Errorf("expected df 2 for solar, got %d (err %v)", df, err)
	}
	if df, _ := e.DocFreq("category", "energy"); df != 3 {
		t.Errorf("expected keyword field df 3, got %d", df)
	}
	vec, ok, err := e.TermVector("d2", "text")
	if err != nil || !ok || vec["panel"] != 1 || vec["roof"] != 1 {
		t.Errorf("unexpected term vector %v (ok=%v err=%v)", vec, ok, err)
	}
	if _, ok, _ := e.TermVector("d2", "title"); ok {
		t.Error("expected no vector for missing field")
	}
	if e.DocLength("d1", "text") != 3 {
		t.Errorf("expected d1 length 3, got %d", e.DocLength("d1", "text"))
	}
	if avg := e.AvgDocLength("text"); avg != 8.0/3.0 {
		t.Errorf("unexpected avg doc length %v", avg)
	}
}

func TestEngineFlushAndReload(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir)
	if err := e.IndexDocument(doc("d1", "solar power")); err != nil {
		t.Fatal(err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if err := e.IndexDocument(doc("d2", "solar wind")); err != nil {
		t.Fatal(err)
	}
	postings, err := e.Postings("text", "solar")
	if err != nil || len(postings) != 2 {
		t.Fatalf("expected postings from memory and segment, got %v (err %v)", postings, err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := newTestEngine(t, dir)
	defer reopened.Close()
	if reopened.TotalDocs() != 2 {
		t.Errorf("expected 2 docs after reload, got %d", reopened.TotalDocs())
	}
	rec, ok, err := reopened.Doc("d1")
	if err != nil || !ok || rec.Stored["text"] != "solar power" || rec.Stored["id"] != "d1" {
		t.Errorf("unexpected reloaded record %+v (ok=%v err=%v)", rec, ok, err)
	}
	if reopened.FieldTokens("text") != 4 {
		t.Errorf("expected 4 text tokens, got %d", reopened.FieldTokens("text"))
	}
	if err := reopened.IndexDocument(doc("d1", "dup")); !apperrors.Is(err, apperrors.ErrDocumentExists) {
		t.Errorf("expected duplicate rejection after reload, got %v", err)
	}
}

func TestEngineSample(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Close()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := e.IndexDocument(doc(id, "text "+id)); err != nil {
			t.Fatal(err)
		}
	}
	rng := rand.New(rand.NewPCG(1, 2))
	got := e.Sample(rng, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %v", got)
	}
	seen := make(map[string]bool)
	for _, id := range got {
		if seen[id] {
			t.Errorf("duplicate sample %q", id)
		}
		seen[id] = true
	}
	if all := e.Sample(rng, 10); len(all) != 5 {
		t.Errorf("expected sample capped at collection size, got %d", len(all))
	}
	if none := e.Sample(rng, 0); none != nil {
		t.Errorf("expected nil sample for count 0, got %v", none)
	}
}
