// Package tlm implements the TileLengthMarkers writer/reader and the
// PPM/PPT packed-header storage of spec.md §4.6. It has no PLT code.
package tlm

import (
	"fmt"

	"github.com/jph2k/coreflow/internal/errs"
	"github.com/jph2k/coreflow/internal/stream"
)

// Entry is one (tile_index, tile_part_length) pair.
type Entry struct {
	TileIndex uint16
	Length    uint32
}

// Writer accumulates tile-part lengths during compression. It is
// append-only: Push is called exactly when a tile-part's Psot is patched,
// per spec.md §5 "Ordering guarantees".
type Writer struct {
	entries []Entry
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Push records one tile-part's final length.
func (w *Writer) Push(tileIndex uint16, length uint32) {
	w.entries = append(w.entries, Entry{TileIndex: tileIndex, Length: length})
}

// WriteTLM emits one or more TLM marker segments covering all pushed
// entries, sizing Ttlm/Ptlm fields to the widest observed tile index and
// largest observed length rather than always using the maximum width.
func (w *Writer) WriteTLM(s stream.Stream) bool {
	if len(w.entries) == 0 {
		return true
	}
	sizeST := byte(1)
	var maxTile uint16
	var maxLen uint32
	for _, e := range w.entries {
		if e.TileIndex > maxTile {
			maxTile = e.TileIndex
		}
		if e.Length > maxLen {
			maxLen = e.Length
		}
	}
	if maxTile > 255 {
		sizeST = 2
	}
	sizeSP := byte(0)
	if maxLen > 0xFFFF {
		sizeSP = 1
	}
	ptrLen := 2
	if sizeSP == 1 {
		ptrLen = 4
	}
	entryLen := int(sizeST) + ptrLen

	// A single TLM segment is capped at 65535 bytes (Lmrk is uint16); split
	// across multiple Ztlm-numbered segments if needed.
	const maxSegPayload = 65535 - 4
	perSeg := maxSegPayload / entryLen
	if perSeg < 1 {
		perSeg = 1
	}

	ztlm := byte(0)
	for off := 0; off < len(w.entries); off += perSeg {
		chunk := w.entries[off:min(off+perSeg, len(w.entries))]
		segLen := uint16(2 + 2 + len(chunk)*entryLen)
		if !stream.Write16(s, 0xFF55) || !stream.Write16(s, segLen) {
			return false
		}
		sp := (uint16(sizeST) << 4) | (uint16(sizeSP) << 6)
		if !s.Write([]byte{ztlm, byte(sp)}) {
			return false
		}
		for _, e := range chunk {
			if sizeST == 2 {
				if !stream.Write16(s, e.TileIndex) {
					return false
				}
			} else {
				var b [1]byte
				b[0] = byte(e.TileIndex)
				if !s.Write(b[:]) {
					return false
				}
			}
			if sizeSP == 1 {
				if !stream.Write32(s, e.Length) {
					return false
				}
			} else {
				if !stream.Write16(s, uint16(e.Length)) {
					return false
				}
			}
		}
		ztlm++
	}
	return true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Reader pops (tile_index, length) pairs during decompression, enabling
// random tile access by seeking Psot bytes forward over uninteresting
// tiles. A length mismatch observed by the caller (via Invalidate)
// permanently disables the reader.
type Reader struct {
	entries []Entry
	pos     int
	valid   bool
}

// NewReader wraps a sequence of entries parsed from one or more TLM
// segments.
func NewReader(entries []Entry) *Reader {
	return &Reader{entries: entries, valid: len(entries) > 0}
}

// HasTLM reports whether the reader is still trusted.
func (r *Reader) HasTLM() bool { return r.valid && r.pos < len(r.entries) }

// Next pops the next entry.
func (r *Reader) Next() (Entry, bool) {
	if !r.HasTLM() {
		return Entry{}, false
	}
	e := r.entries[r.pos]
	r.pos++
	return e, true
}

// Invalidate is called when the observed tile-part length diverges from
// the TLM-declared length; per spec.md §4.6 this disables the reader with
// a warning (logged by the caller, which has the tile context).
func (r *Reader) Invalidate() { r.valid = false }

// PackedHeaders accumulates PPM (main-header) or PPT (tile-header) packed
// packet-header bytes for one tile, handed to the packet iterator in place
// of reading headers inline from the tile-part data.
type PackedHeaders struct {
	data []byte
	pos  int
}

// NewPackedHeaders wraps already-concatenated PPM/PPT payload bytes.
func NewPackedHeaders(data []byte) *PackedHeaders {
	return &PackedHeaders{data: data}
}

// Next returns the next n bytes of packed header data.
func (p *PackedHeaders) Next(n int) ([]byte, error) {
	if p.pos+n > len(p.data) {
		return nil, fmt.Errorf("packed header request exceeds available data: %w", errs.ErrCorruptCodeStream)
	}
	out := p.data[p.pos : p.pos+n]
	p.pos += n
	return out, nil
}

// Remaining reports how many packed-header bytes are left.
func (p *PackedHeaders) Remaining() int { return len(p.data) - p.pos }
