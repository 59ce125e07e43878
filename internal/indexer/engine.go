package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
)

// Engine is a single-node positional index. New documents land in a memory
// index which is flushed to immutable segment files once it grows past the
// configured size or on the flush interval.
type Engine struct {
	memIndex *index.MemoryIndex
	writer   *segment.Writer
	readers  []*segment.Reader
	readerMu sync.RWMutex
	analyzer *tokenizer.Analyzer
	cfg      config.IndexerConfig
	logger   *slog.Logger

	statsMu     sync.RWMutex
	docIDs      []string
	docLengths  map[string]map[string]int
	fieldTokens map[string]int64
}

func NewEngine(cfg config.IndexerConfig, analyzer *tokenizer.Analyzer) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	if analyzer == nil {
		analyzer = tokenizer.New(tokenizer.WithKeywordFields(cfg.KeywordFields...))
	}
	e := &Engine{
		memIndex:    index.NewMemoryIndex(),
		writer:      segment.NewWriter(cfg.DataDir),
		analyzer:    analyzer,
		cfg:         cfg,
		logger:      slog.Default().With("component", "indexer"),
		docLengths:  make(map[string]map[string]int),
		fieldTokens: make(map[string]int64),
	}
	if err := e.loadExistingSegments(); err != nil {
		return nil, fmt.Errorf("loading existing segments: %w", err)
	}
	return e, nil
}

// Analyzer returns the analyzer used for indexing. Queries must be analyzed
// with the same one.
func (e *Engine) Analyzer() *tokenizer.Analyzer {
	return e.analyzer
}

// IndexDocument analyzes every field of doc and adds it to the memory index.
// Document ids are unique across the whole engine.
func (e *Engine) IndexDocument(doc index.Document) error {
	if strings.TrimSpace(doc.ID) == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "document id is required")
	}
	fields := make(map[string][]tokenizer.Token, len(doc.Fields))
	for name, value := range doc.Fields {
		tokens, err := e.analyzer.Analyze(value, name)
		if err != nil {
			return fmt.Errorf("analyzing field %q of %q: %w", name, doc.ID, err)
		}
		fields[name] = tokens
	}

	e.statsMu.Lock()
	if _, exists := e.docLengths[doc.ID]; exists {
		e.statsMu.Unlock()
		return apperrors.Newf(apperrors.ErrDocumentExists, http.StatusConflict, "document %q already indexed", doc.ID)
	}
	lengths := make(map[string]int, len(fields))
	for name, tokens := range fields {
		lengths[name] = len(tokens)
		e.fieldTokens[name] += int64(len(tokens))
	}
	e.docLengths[doc.ID] = lengths
	e.docIDs = append(e.docIDs, doc.ID)
	e.statsMu.Unlock()

	stored := make(map[string]string, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		stored[k] = v
	}
	stored["id"] = doc.ID
	e.memIndex.AddDocument(doc.ID, fields, stored)
	e.logger.Debug("document indexed in memory",
		"doc_id", doc.ID,
		"fields", len(fields),
		"mem_size", e.memIndex.Size(),
	)
	if e.cfg.SegmentMaxSize > 0 && e.memIndex.Size() >= e.cfg.SegmentMaxSize {
		e.logger.Info("memory index reached max size, flushing to disk",
			"size", e.memIndex.Size(),
			"threshold", e.cfg.SegmentMaxSize,
		)
		if err := e.Flush(); err != nil {
			return fmt.Errorf("flushing memory index: %w", err)
		}
	}
	return nil
}

// Flush writes the memory index to a new segment and clears it.
func (e *Engine) Flush() error {
	entries, docs := e.memIndex.Snapshot()
	if len(docs) == 0 {
		return nil
	}
	segmentName, err := e.writer.Write(entries, docs)
	if err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}

	segPath := filepath.Join(e.cfg.DataDir, segmentName)
	reader, err := segment.OpenReader(segPath)
	if err != nil {
		return fmt.Errorf("opening new segment for reading: %w", err)
	}
	e.readerMu.Lock()
	e.readers = append(e.readers, reader)
	active := len(e.readers)
	e.memIndex.Reset()
	e.readerMu.Unlock()
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
		"active_segments", active,
	)
	return nil
}

// Postings returns the merged postings of an already-analyzed term in field,
// sorted by document id.
func (e *Engine) Postings(field, term string) (index.PostingList, error) {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	all := e.memIndex.Search(field, term)
	for _, reader := range e.readers {
		postings, err := reader.Search(field, term)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrIndexRead, http.StatusServiceUnavailable, "segment %s: %v", filepath.Base(reader.Path()), err)
		}
		all = append(all, postings...)
	}
	return deduplicatePostings(all), nil
}

// DocFreq returns the number of documents containing term in field.
func (e *Engine) DocFreq(field, term string) (int, error) {
	postings, err := e.Postings(field, term)
	if err != nil {
		return 0, err
	}
	return len(postings), nil
}

// Doc returns the stored record of docID.
func (e *Engine) Doc(docID string) (*index.DocRecord, bool, error) {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	if rec, ok := e.memIndex.Doc(docID); ok {
		return rec, true, nil
	}
	for _, reader := range e.readers {
		if !reader.HasDoc(docID) {
			continue
		}
		rec, ok, err := reader.Doc(docID)
		if err != nil {
			return nil, false, apperrors.Newf(apperrors.ErrIndexRead, http.StatusServiceUnavailable, "segment %s: %v", filepath.Base(reader.Path()), err)
		}
		if ok {
			return rec, true, nil
		}
	}
	return nil, false, nil
}

// TermVector returns the term frequencies of field in docID. The bool is
// false when the document does not exist or has no such field.
func (e *Engine) TermVector(docID, field string) (map[string]int, bool, error) {
	rec, ok, err := e.Doc(docID)
	if err != nil || !ok {
		return nil, false, err
	}
	vec, ok := rec.Vectors[field]
	return vec, ok, nil
}

// HasDocument reports whether docID has been indexed.
func (e *Engine) HasDocument(docID string) bool {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	_, ok := e.docLengths[docID]
	return ok
}

func (e *Engine) DocLength(docID, field string) int {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	return e.docLengths[docID][field]
}

func (e *Engine) AvgDocLength(field string) float64 {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	if len(e.docIDs) == 0 {
		return 0
	}
	return float64(e.fieldTokens[field]) / float64(len(e.docIDs))
}

// FieldTokens returns the total number of tokens indexed in field.
func (e *Engine) FieldTokens(field string) int64 {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	return e.fieldTokens[field]
}

func (e *Engine) TotalDocs() int {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	return len(e.docIDs)
}

// DocIDs returns every document id in insertion order.
func (e *Engine) DocIDs() []string {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	out := make([]string, len(e.docIDs))
	copy(out, e.docIDs)
	return out
}

// Sample draws up to count distinct document ids uniformly at random.
func (e *Engine) Sample(rng *rand.Rand, count int) []string {
	ids := e.DocIDs()
	if count <= 0 || len(ids) == 0 {
		return nil
	}
	if count > len(ids) {
		count = len(ids)
	}
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(ids)-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids[:count]
}

func (e *Engine) StartFlushLoop(ctx context.Context) {
	if e.cfg.FlushInterval <= 0 {
		return
	}
	ticker := time.NewTicker(e.cfg.FlushInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final flush")
				if err := e.Flush(); err != nil {
					e.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if e.memIndex.DocCount() > 0 {
					if err := e.Flush(); err != nil {
						e.logger.Error("periodic flush failed", "error", err)
					}
				}
			}
		}
	}()
}

func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		e.logger.Error("final flush on close failed", "error", err)
	}
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
	return nil
}

func (e *Engine) loadExistingSegments() error {
	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading data directory: %w", err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".spdx") {
			segFiles = append(segFiles, entry.Name())
		}
	}
	sort.Strings(segFiles)

	for _, name := range segFiles {
		path := filepath.Join(e.cfg.DataDir, name)
		reader, err := segment.OpenReader(path)
		if err != nil {
			e.logger.Error("failed to open segment, skipping",
				"segment", name,
				"error", err,
			)
			continue
		}
		if err := e.loadSegmentStats(reader); err != nil {
			reader.Close()
			return fmt.Errorf("loading stats from %s: %w", name, err)
		}
		e.readers = append(e.readers, reader)
		e.logger.Info("loaded existing segment",
			"segment", name,
			"terms", reader.Terms(),
			"docs", reader.DocCount(),
		)
	}
	e.logger.Info("segment recovery complete",
		"segments_loaded", len(e.readers),
		"docs", len(e.docIDs),
	)
	return nil
}

func (e *Engine) loadSegmentStats(reader *segment.Reader) error {
	for _, id := range reader.DocIDs() {
		if _, exists := e.docLengths[id]; exists {
			continue
		}
		rec, ok, err := reader.Doc(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		e.docLengths[id] = rec.Lengths
		for field, n := range rec.Lengths {
			e.fieldTokens[field] += int64(n)
		}
		e.docIDs = append(e.docIDs, id)
	}
	return nil
}

func deduplicatePostings(postings index.PostingList) index.PostingList {
	if len(postings) <= 1 {
		return postings
	}
	seen := make(map[string]int)
	result := make(index.PostingList, 0, len(postings))
	for _, p := range postings {
		if idx, exists := seen[p.DocID]; exists {
			if p.Frequency > result[idx].Frequency {
				result[idx] = p
			}
		} else {
			seen[p.DocID] = len(result)
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}
