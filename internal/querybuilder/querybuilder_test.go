package querybuilder

import (
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
)

func newBuilder() *Builder {
	return New(tokenizer.New(tokenizer.WithKeywordFields("id")), "text", DefaultSDMParams())
}

func TestBagOfWords(t *testing.T) {
	q, err := newBuilder().BagOfWords("Solar panels, solar!", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := q.String(), "text:solar text:panel text:solar"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSequentialDependence(t *testing.T) {
	q, err := newBuilder().SequentialDependence("solar panels roof", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "(text:solar text:panel text:roof)^0.85 " +
		"(spanNear([text:solar, text:panel], 1, true) spanNear([text:panel, text:roof], 1, true))^0.1 " +
		"(spanNear([text:solar, text:panel], 8, false) spanNear([text:panel, text:roof], 8, false))^0.05"
	if got := q.String(); got != want {
		t.Errorf("expected\n%s\ngot\n%s", want, got)
	}
}

func TestSequentialDependenceSingleTokenEqualsBagOfWords(t *testing.T) {
	b := newBuilder()
	for _, filters := range [][]string{nil, {"id:d1"}} {
		sdm, err := b.SequentialDependence("solar", filters)
		if err != nil {
			t.Fatal(err)
		}
		bow, err := b.BagOfWords("solar", filters)
		if err != nil {
			t.Fatal(err)
		}
		if sdm.String() != bow.String() {
			t.Errorf("filters %v: sdm %q != bow %q", filters, sdm, bow)
		}
	}
}

func TestFilters(t *testing.T) {
	q, err := newBuilder().Build(TypeBagOfWords, "solar", []string{"category:energy", "url:http://x"})
	if err != nil {
		t.Fatal(err)
	}
	b, ok := q.(query.Boolean)
	if !ok || len(b.Clauses) != 2 || b.Clauses[0].Occur != query.Must || b.Clauses[1].Occur != query.Filter {
		t.Fatalf("expected must/filter conjunction, got %s", q)
	}
	if got, want := b.Clauses[1].Query.String(), "category:energy url:http://x"; got != want {
		t.Errorf("expected filter %q, got %q", want, got)
	}
}

func TestInvalidFilter(t *testing.T) {
	for _, f := range []string{"energy", ":energy"} {
		_, err := newBuilder().Build(TypeSequentialDependence, "solar power", []string{f})
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("filter %q: expected ErrInvalidInput, got %v", f, err)
		}
		if apperrors.HTTPStatusCode(err) != 400 {
			t.Errorf("filter %q: expected status 400", f)
		}
	}
}

func TestTokenizationFailure(t *testing.T) {
	_, err := newBuilder().BagOfWords("bad \xff input", nil)
	if !errors.Is(err, apperrors.ErrTokenization) {
		t.Errorf("expected ErrTokenization, got %v", err)
	}
}

func TestParseType(t *testing.T) {
	if ParseType("sdm") != TypeSequentialDependence || ParseType("bow") != TypeBagOfWords || ParseType("x") != TypeBagOfWords {
		t.Error("unexpected query type mapping")
	}
}
