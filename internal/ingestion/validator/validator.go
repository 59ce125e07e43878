// Package validator checks documents before they are published for
// indexing and reports per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
)

const (
	maxIDLength    = 255
	maxFieldLength = 1048576
	maxFields      = 64
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateDocument requires an id and at least one non-blank text field
// within the size limits.
func ValidateDocument(doc *index.Document) error {
	errs := make(map[string]string)

	id := strings.TrimSpace(doc.ID)
	if id == "" {
		errs["id"] = "id is required"
	} else if len(id) > maxIDLength {
		errs["id"] = fmt.Sprintf("id must be at most %d characters", maxIDLength)
	}

	if len(doc.Fields) > maxFields {
		errs["fields"] = fmt.Sprintf("at most %d fields are allowed", maxFields)
	}
	nonBlank := 0
	for name, value := range doc.Fields {
		switch {
		case strings.TrimSpace(name) == "":
			errs["fields"] = "field names must not be empty"
		case name == "id":
			errs[name] = "id is reserved"
		case len(value) > maxFieldLength:
			errs[name] = fmt.Sprintf("must be at most %d bytes", maxFieldLength)
		}
		if strings.TrimSpace(value) != "" {
			nonBlank++
		}
	}
	if nonBlank == 0 {
		if _, ok := errs["fields"]; !ok {
			errs["fields"] = "at least one non-empty field is required"
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
