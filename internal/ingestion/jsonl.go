package ingestion

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
)

// maxLineSize bounds one JSONL record.
const maxLineSize = 4 << 20

// ParseDocument decodes one corpus record. Both the nested form
// {"id":..,"fields":{..}} and the flat form {"id":..,"contents":..} are
// accepted; in the flat form every string member other than id is a field.
func ParseDocument(line []byte) (index.Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return index.Document{}, fmt.Errorf("decoding document: %w", err)
	}
	var doc index.Document
	if id, ok := raw["id"]; ok {
		if err := json.Unmarshal(id, &doc.ID); err != nil {
			return index.Document{}, fmt.Errorf("document id must be a string: %w", err)
		}
	}
	if nested, ok := raw["fields"]; ok {
		if err := json.Unmarshal(nested, &doc.Fields); err != nil {
			return index.Document{}, fmt.Errorf("decoding fields of %q: %w", doc.ID, err)
		}
		return doc, nil
	}
	doc.Fields = make(map[string]string, len(raw))
	for name, value := range raw {
		if name == "id" {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			continue
		}
		doc.Fields[name] = s
	}
	return doc, nil
}

// ReadJSONL calls fn for every non-blank line of r. Decoding errors stop
// the read and report the line number.
func ReadJSONL(r io.Reader, fn func(index.Document) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		doc, err := ParseDocument(data)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(doc); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}
	return nil
}
