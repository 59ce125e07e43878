package index

// Document is the unit of indexing: an identifier plus named text fields.
type Document struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"freq"`
	Positions []int  `json:"pos"`
}

type PostingList []Posting

// FieldTerm addresses one term within one field.
type FieldTerm struct {
	Field string
	Term  string
}

type TermEntry struct {
	Field    string
	Term     string
	Postings PostingList
}

// DocRecord holds everything the engine keeps per document: stored field
// values for response projection, per-field lengths in tokens, and per-field
// term vectors used by feedback extraction.
type DocRecord struct {
	ID      string                    `json:"id"`
	Stored  map[string]string         `json:"stored"`
	Lengths map[string]int            `json:"lengths"`
	Vectors map[string]map[string]int `json:"vectors"`
}
