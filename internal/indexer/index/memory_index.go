package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/tokenizer"
)

// MemoryIndex is the mutable, not-yet-flushed part of the engine: a
// positional inverted index keyed by field and term, plus per-document
// records.
type MemoryIndex struct {
	mu    sync.RWMutex
	index map[FieldTerm]map[string]*Posting
	docs  map[string]*DocRecord
	size  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[FieldTerm]map[string]*Posting),
		docs:  make(map[string]*DocRecord),
	}
}

// AddDocument indexes pre-analyzed field tokens for docID. stored holds the
// raw field values returned with search results.
func (m *MemoryIndex) AddDocument(docID string, fields map[string][]tokenizer.Token, stored map[string]string) {
	termData := make(map[FieldTerm]*Posting)
	record := &DocRecord{
		ID:      docID,
		Stored:  stored,
		Lengths: make(map[string]int, len(fields)),
		Vectors: make(map[string]map[string]int, len(fields)),
	}
	for field, tokens := range fields {
		record.Lengths[field] = len(tokens)
		vector := make(map[string]int)
		for _, token := range tokens {
			key := FieldTerm{Field: field, Term: token.Term}
			p, exists := termData[key]
			if !exists {
				p = &Posting{
					DocID:     docID,
					Frequency: 0,
					Positions: make([]int, 0, 4),
				}
				termData[key] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
			vector[token.Term]++
		}
		record.Vectors[field] = vector
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, posting := range termData {
		if _, exists := m.index[key]; !exists {
			m.index[key] = make(map[string]*Posting)
		}
		m.index[key][docID] = posting
		m.size += int64(len(key.Field) + len(key.Term) + len(docID) + len(posting.Positions)*8 + 64)
	}
	m.docs[docID] = record
	for k, v := range stored {
		m.size += int64(len(k) + len(v))
	}
}

func (m *MemoryIndex) Search(field, term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[FieldTerm{Field: field, Term: term}]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Doc returns the record for docID.
func (m *MemoryIndex) Doc(docID string) (*DocRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.docs[docID]
	return rec, ok
}

// Snapshot returns all term entries sorted by field then term, and all
// document records sorted by id.
func (m *MemoryIndex) Snapshot() ([]TermEntry, []DocRecord) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for key, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Field:    key.Field,
			Term:     key.Term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	records := make([]DocRecord, 0, len(m.docs))
	for _, rec := range m.docs {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return entries, records
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[FieldTerm]map[string]*Posting)
	m.docs = make(map[string]*DocRecord)
	m.size = 0
}
