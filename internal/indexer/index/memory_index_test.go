package index

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/tokenizer"
)

func addText(m *MemoryIndex, docID, field, text string) {
	m.AddDocument(docID, map[string][]tokenizer.Token{field: tokenizer.Tokenize(text)}, map[string]string{field: text})
}

func TestMemoryIndexPostingsAndVectors(t *testing.T) {
	m := NewMemoryIndex()
	addText(m, "d2", "text", "solar solar wind")
	addText(m, "d1", "text", "solar farm")

	postings := m.Search("text", "solar")
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}
	if postings[0].DocID != "d1" || postings[1].DocID != "d2" {
		t.Errorf("expected postings sorted by doc id, got %v", postings)
	}
	if postings[1].Frequency != 2 || len(postings[1].Positions) != 2 || postings[1].Positions[1] != 1 {
		t.Errorf("unexpected posting for d2: %+v", postings[1])
	}
	if got := m.Search("title", "solar"); got != nil {
		t.Errorf("expected no postings for other field, got %v", got)
	}

	rec, ok := m.Doc("d2")
	if !ok {
		t.Fatal("expected d2 record")
	}
	if rec.Vectors["text"]["solar"] != 2 || rec.Lengths["text"] != 3 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Stored["text"] != "solar solar wind" {
		t.Errorf("unexpected stored value %q", rec.Stored["text"])
	}
}

func TestMemoryIndexSnapshotAndReset(t *testing.T) {
	m := NewMemoryIndex()
	addText(m, "d1", "text", "wind turbine")
	addText(m, "d2", "title", "wind")

	entries, records := m.Snapshot()
	if len(records) != 2 || records[0].ID != "d1" {
		t.Errorf("unexpected records %v", records)
	}
	if len(entries) != 3 || entries[0].Field != "text" || entries[2].Field != "title" {
		t.Errorf("unexpected entries %v", entries)
	}
	if m.Size() == 0 || m.DocCount() != 2 {
		t.Errorf("expected non-empty index")
	}
	m.Reset()
	if m.Size() != 0 || m.DocCount() != 0 || m.Search("text", "wind") != nil {
		t.Errorf("expected reset index to be empty")
	}
}
