package segment

import (
	"encoding/binary"
	"fmt"
)

// Segment layout:
//
//	[header 64B][postings and doc records][dictionary JSON][footer 32B]
//
// All integers are little endian.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// SegmentHeader is the fixed header at the start of every segment.
// Postings and document records share one data region starting at PostOffset.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
}

func (h SegmentHeader) encode() []byte {
	buf := make([]byte, HeaderSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], h.Magic)
	le.PutUint32(buf[4:], h.Version)
	le.PutUint32(buf[8:], h.TermCount)
	le.PutUint32(buf[12:], h.DocCount)
	le.PutUint64(buf[16:], uint64(h.DictOffset))
	le.PutUint64(buf[24:], uint64(h.DictSize))
	le.PutUint64(buf[32:], uint64(h.PostOffset))
	le.PutUint64(buf[40:], uint64(h.PostSize))
	le.PutUint64(buf[48:], uint64(h.CreatedAt))
	return buf
}

func decodeHeader(buf []byte) (SegmentHeader, error) {
	if len(buf) < HeaderSize {
		return SegmentHeader{}, fmt.Errorf("short segment header: %d bytes", len(buf))
	}
	le := binary.LittleEndian
	h := SegmentHeader{
		Magic:      le.Uint32(buf[0:]),
		Version:    le.Uint32(buf[4:]),
		TermCount:  le.Uint32(buf[8:]),
		DocCount:   le.Uint32(buf[12:]),
		DictOffset: int64(le.Uint64(buf[16:])),
		DictSize:   int64(le.Uint64(buf[24:])),
		PostOffset: int64(le.Uint64(buf[32:])),
		PostSize:   int64(le.Uint64(buf[40:])),
		CreatedAt:  int64(le.Uint64(buf[48:])),
	}
	if h.Magic != MagicBytes {
		return h, fmt.Errorf("invalid segment file: bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("unsupported segment version %d", h.Version)
	}
	return h, nil
}

// footer repeats the region offsets so a reader can cross check the header.
type footer struct {
	Checksum   uint32
	DocCount   uint32
	DictOffset int64
	DictSize   int64
	DataSize   int64
}

func (f footer) encode() []byte {
	buf := make([]byte, FooterSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], f.Checksum)
	le.PutUint32(buf[4:], f.DocCount)
	le.PutUint64(buf[8:], uint64(f.DictOffset))
	le.PutUint64(buf[16:], uint64(f.DictSize))
	le.PutUint64(buf[24:], uint64(f.DataSize))
	return buf
}

func decodeFooter(buf []byte) footer {
	le := binary.LittleEndian
	return footer{
		Checksum:   le.Uint32(buf[0:]),
		DocCount:   le.Uint32(buf[4:]),
		DictOffset: int64(le.Uint64(buf[8:])),
		DictSize:   int64(le.Uint64(buf[16:])),
		DataSize:   int64(le.Uint64(buf[24:])),
	}
}
