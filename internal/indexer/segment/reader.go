package segment

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
)

type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     Dictionary
	docIndex map[string]DocEntry
	dataBase int64
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header, err := decodeHeader(headerBytes)
	if err != nil {
		f.Close()
		return nil, err
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	footerBytes := make([]byte, FooterSize)
	if _, err := f.ReadAt(footerBytes, header.DictOffset+header.DictSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	ft := decodeFooter(footerBytes)
	if ft.Checksum != crc32.ChecksumIEEE(dictBytes) {
		f.Close()
		return nil, fmt.Errorf("dictionary checksum mismatch in %s", path)
	}
	if ft.DictOffset != header.DictOffset || ft.DocCount != header.DocCount {
		f.Close()
		return nil, fmt.Errorf("footer does not match header in %s", path)
	}
	var dict Dictionary
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		f.Close()
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	docIndex := make(map[string]DocEntry, len(dict.Docs))
	for _, d := range dict.Docs {
		docIndex[d.ID] = d
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		docIndex: docIndex,
		dataBase: header.PostOffset,
	}, nil
}

func (r *Reader) Search(field, term string) (index.PostingList, error) {
	terms := r.dict.Terms
	idx := sort.Search(len(terms), func(i int) bool {
		if terms[i].Field != field {
			return terms[i].Field >= field
		}
		return terms[i].Term >= term
	})
	if idx >= len(terms) || terms[idx].Field != field || terms[idx].Term != term {
		return nil, nil
	}
	entry := terms[idx]
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.dataBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

// HasDoc reports whether the segment holds a record for docID.
func (r *Reader) HasDoc(docID string) bool {
	_, ok := r.docIndex[docID]
	return ok
}

// Doc reads the stored record for docID. The bool is false when the
// segment does not contain the document.
func (r *Reader) Doc(docID string) (*index.DocRecord, bool, error) {
	entry, ok := r.docIndex[docID]
	if !ok {
		return nil, false, nil
	}
	data := make([]byte, entry.Len)
	if _, err := r.file.ReadAt(data, r.dataBase+entry.Offset); err != nil {
		return nil, false, fmt.Errorf("reading document %q: %w", docID, err)
	}
	var rec index.DocRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("parsing document %q: %w", docID, err)
	}
	return &rec, true, nil
}

// DocIDs returns the ids of all documents in the segment, sorted.
func (r *Reader) DocIDs() []string {
	ids := make([]string, len(r.dict.Docs))
	for i, d := range r.dict.Docs {
		ids[i] = d.ID
	}
	return ids
}

func (r *Reader) Terms() int {
	return len(r.dict.Terms)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
