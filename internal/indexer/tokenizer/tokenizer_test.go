package tokenizer

import (
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
)

func TestTokenizePositions(t *testing.T) {
	tokens := Tokenize("The solar panels and the wind farms")
	want := []Token{
		{Term: "solar", Position: 0},
		{Term: "panel", Position: 1},
		{Term: "wind", Position: 2},
		{Term: "farm", Position: 3},
	}
	if len(tokens) != len(want) {
		t.Fatalf("expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: expected %v, got %v", i, want[i], tokens[i])
		}
	}
}

func TestAnalyzerWithoutStemming(t *testing.T) {
	a := New(WithoutStemming())
	terms, err := a.Tokenize("Running panels", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) != 2 || terms[0] != "running" || terms[1] != "panels" {
		t.Errorf("unexpected terms %v", terms)
	}
}

func TestAnalyzerKeywordField(t *testing.T) {
	a := New(WithKeywordFields("category"))
	terms, err := a.Tokenize("  Renewable Energy ", "category")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) != 1 || terms[0] != "Renewable Energy" {
		t.Errorf("unexpected keyword terms %v", terms)
	}
}

func TestAnalyzerRejectsInvalidUTF8(t *testing.T) {
	_, err := New().Tokenize("bad \xff input", "text")
	if !errors.Is(err, apperrors.ErrTokenization) {
		t.Errorf("expected ErrTokenization, got %v", err)
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"relational": "relate",
		"panels":     "panel",
		"running":    "runn",
		"is":         "is",
	}
	for in, want := range tests {
		if got := stem(in); got != want {
			t.Errorf("stem(%q): expected %q, got %q", in, want, got)
		}
	}
}
