package segment

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
)

// DictEntry maps a field term to its postings offset, length, and document
// frequency in the segment file.
type DictEntry struct {
	Field      string `json:"f"`
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// DocEntry locates one serialised index.DocRecord in the data region.
type DocEntry struct {
	ID     string `json:"i"`
	Offset int64  `json:"o"`
	Len    int    `json:"l"`
}

// Dictionary is the JSON block that indexes the data region.
type Dictionary struct {
	Terms []DictEntry `json:"terms"`
	Docs  []DocEntry  `json:"docs"`
}

// Writer serialises memory-index snapshots into new .spdx segment files.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates a new segment file containing the given term
// entries and document records, which must be sorted by (field, term) and
// by id respectively. It writes to a .tmp file first and renames on success.
func (w *Writer) Write(entries []index.TermEntry, docs []index.DocRecord) (string, error) {
	if len(entries) == 0 && len(docs) == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	segmentName := fmt.Sprintf("seg_%d.spdx", time.Now().UnixNano())
	finalPath := filepath.Join(w.dataDir, segmentName)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	if err := writeSegment(f, entries, docs); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return segmentName, nil
}

// countingWriter tracks the offset of the next byte written.
type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeSegment(f *os.File, entries []index.TermEntry, docs []index.DocRecord) error {
	header := SegmentHeader{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(entries)),
		DocCount:   uint32(len(docs)),
		CreatedAt:  time.Now().Unix(),
		PostOffset: int64(HeaderSize),
	}
	out := &countingWriter{w: bufio.NewWriterSize(f, 1<<16)}
	// Placeholder; the real header is written once the offsets are known.
	if _, err := out.Write(header.encode()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	dict := Dictionary{
		Terms: make([]DictEntry, 0, len(entries)),
		Docs:  make([]DocEntry, 0, len(docs)),
	}
	for _, entry := range entries {
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for %s:%s: %w", entry.Field, entry.Term, err)
		}
		offset := out.n - header.PostOffset
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("writing postings for %s:%s: %w", entry.Field, entry.Term, err)
		}
		dict.Terms = append(dict.Terms, DictEntry{
			Field:      entry.Field,
			Term:       entry.Term,
			PostOffset: offset,
			PostLen:    len(data),
			DocFreq:    len(entry.Postings),
		})
	}
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document %q: %w", doc.ID, err)
		}
		offset := out.n - header.PostOffset
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("writing document %q: %w", doc.ID, err)
		}
		dict.Docs = append(dict.Docs, DocEntry{ID: doc.ID, Offset: offset, Len: len(data)})
	}
	header.PostSize = out.n - header.PostOffset

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	header.DictOffset = out.n
	header.DictSize = int64(len(dictData))
	if _, err := out.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	ft := footer{
		Checksum:   crc32.ChecksumIEEE(dictData),
		DocCount:   header.DocCount,
		DictOffset: header.DictOffset,
		DictSize:   header.DictSize,
		DataSize:   header.PostSize,
	}
	if _, err := out.Write(ft.encode()); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if err := out.w.Flush(); err != nil {
		return fmt.Errorf("flushing segment file: %w", err)
	}
	if _, err := f.WriteAt(header.encode(), 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing segment file: %w", err)
	}
	return nil
}
