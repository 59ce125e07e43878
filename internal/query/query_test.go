package query

import "testing"

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"term", Term{Field: "text", Text: "solar"}, "text:solar"},
		{
			"disjunction",
			Disjunction(Term{"text", "solar"}, Term{"text", "power"}),
			"text:solar text:power",
		},
		{
			"boost",
			Boost{Query: Disjunction(Term{"text", "solar"}), Boost: 0.85},
			"(text:solar)^0.85",
		},
		{
			"span",
			SpanNear{Field: "text", Terms: []string{"solar", "power"}, Slop: 1, InOrder: true},
			"spanNear([text:solar, text:power], 1, true)",
		},
		{
			"filtered",
			Filtered(Disjunction(Term{"text", "solar"}), IDSet{IDs: []string{"d1", "d2"}}),
			"+(text:solar) #id:(d1 d2)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.query.String(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestTermsDeduplicates(t *testing.T) {
	q := Disjunction(
		Term{"text", "solar"},
		Boost{Query: SpanNear{Field: "text", Terms: []string{"solar", "power"}, Slop: 8}, Boost: 0.05},
		IDSet{IDs: []string{"d1"}},
	)
	got := Terms(q)
	if len(got) != 2 || got[0].Text != "solar" || got[1].Text != "power" {
		t.Errorf("unexpected terms %v", got)
	}
}
