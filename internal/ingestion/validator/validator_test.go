package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     index.Document
		wantKey string
	}{
		{"valid", index.Document{ID: "d1", Fields: map[string]string{"text": "solar"}}, ""},
		{"missing id", index.Document{Fields: map[string]string{"text": "solar"}}, "id"},
		{"long id", index.Document{ID: strings.Repeat("x", 256), Fields: map[string]string{"text": "solar"}}, "id"},
		{"no fields", index.Document{ID: "d1"}, "fields"},
		{"blank fields", index.Document{ID: "d1", Fields: map[string]string{"text": "   "}}, "fields"},
		{"reserved", index.Document{ID: "d1", Fields: map[string]string{"id": "x", "text": "solar"}}, "id"},
		{"huge field", index.Document{ID: "d1", Fields: map[string]string{"text": strings.Repeat("a", maxFieldLength+1)}}, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(&tt.doc)
			if tt.wantKey == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := ve.Fields[tt.wantKey]; !ok {
				t.Errorf("expected error on %q, got %v", tt.wantKey, ve.Fields)
			}
		})
	}
}
