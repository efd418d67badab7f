// Package stream implements the byte-addressable buffered I/O contract of
// spec.md §4.1 "Stream": read/write/skip/seek/tell/bytes_remaining/flush,
// plus an optional zero-copy view. Every marker and box reader/writer in
// this module goes through a Stream rather than a bare io.Reader/io.Writer
// so that seeking (TLM-guided tile skipping, Psot back-patching) and
// zero-copy packet slicing have one shared contract.
package stream

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/jph2k/coreflow/internal/errs"
)

// Stream is the byte-addressable sink/source contract of spec.md §4.1 and
// §6 "Stream contract". Implementations never return a partial write as
// success: a write that cannot complete in full returns ok == false and the
// stream's position is left at the last fully-written byte.
type Stream interface {
	// Read copies up to len(dst) bytes starting at the current position,
	// advancing the position by the number read. Returns the count read.
	Read(dst []byte) (n int, ok bool)
	// Write appends src at the current position, advancing by len(src).
	// Returns false (no partial write) on failure.
	Write(src []byte) (ok bool)
	// Skip advances the position by n bytes without reading them.
	Skip(n int64) (ok bool)
	// Seek moves the position to an absolute offset.
	Seek(abs int64) (ok bool)
	// Tell returns the current position.
	Tell() int64
	// BytesRemaining returns how many bytes remain from the current
	// position to the end of the backing data (0 for unbounded writers).
	BytesRemaining() uint64
	// Flush commits any buffered output to the backing medium.
	Flush() bool
}

// ZeroCopy is implemented by Stream backends that can hand back a borrowed
// slice directly into their buffer instead of copying. Per spec.md §6, the
// returned slice must not be used past the stream's next Seek or Skip call.
type ZeroCopy interface {
	// ZeroCopyPtr returns a slice of n bytes starting at the current
	// position without advancing it, or ok=false if n bytes aren't
	// available or the backend cannot avoid a copy.
	ZeroCopyPtr(n int) (p []byte, ok bool)
}

// bigEndianRW is embedded by concrete streams to provide the width-specific
// write16/24/32/64 helpers spec.md §4.1 requires, all big-endian.
type bigEndianRW struct {
	s Stream
}

func (b bigEndianRW) Write16(v uint16) bool {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return b.s.Write(buf[:])
}

func (b bigEndianRW) Write24(v uint32) bool {
	var buf [3]byte
	buf[0] = byte(v >> 16)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v)
	return b.s.Write(buf[:])
}

func (b bigEndianRW) Write32(v uint32) bool {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return b.s.Write(buf[:])
}

func (b bigEndianRW) Write64(v uint64) bool {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return b.s.Write(buf[:])
}

// Write16 is the free-function form for callers holding any Stream.
func Write16(s Stream, v uint16) bool { return bigEndianRW{s}.Write16(v) }

// Write24 writes a 24-bit big-endian value (used by box extended lengths'
// sibling fields and a handful of 3-byte marker fields).
func Write24(s Stream, v uint32) bool { return bigEndianRW{s}.Write24(v) }

// Write32 is the free-function form for callers holding any Stream.
func Write32(s Stream, v uint32) bool { return bigEndianRW{s}.Write32(v) }

// Write64 is the free-function form for callers holding any Stream.
func Write64(s Stream, v uint64) bool { return bigEndianRW{s}.Write64(v) }

// Read16 reads a big-endian uint16, returning ok=false on short read.
func Read16(s Stream) (uint16, bool) {
	var buf [2]byte
	n, ok := s.Read(buf[:])
	if !ok || n != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(buf[:]), true
}

// Read32 reads a big-endian uint32, returning ok=false on short read.
func Read32(s Stream) (uint32, bool) {
	var buf [4]byte
	n, ok := s.Read(buf[:])
	if !ok || n != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[:]), true
}

// Read64 reads a big-endian uint64, returning ok=false on short read.
func Read64(s Stream) (uint64, bool) {
	var buf [8]byte
	n, ok := s.Read(buf[:])
	if !ok || n != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(buf[:]), true
}

// ReadByte reads a single byte.
func ReadByte(s Stream) (byte, bool) {
	var buf [1]byte
	n, ok := s.Read(buf[:])
	if !ok || n != 1 {
		return 0, false
	}
	return buf[0], true
}

// MemStream is an in-memory Stream backed by a growable byte slice, used
// for encoding (tile-part assembly, packet staging) and for decoding data
// already read fully into memory (a JP2C box's contents). Supports
// zero-copy.
type MemStream struct {
	buf []byte
	pos int64
}

// NewMemStream creates an empty, writable MemStream.
func NewMemStream() *MemStream {
	return &MemStream{buf: make([]byte, 0, 4096)}
}

// NewMemStreamFromBytes creates a read-only view over an existing buffer
// without copying it.
func NewMemStreamFromBytes(b []byte) *MemStream {
	return &MemStream{buf: b}
}

// Bytes returns the stream's backing buffer.
func (m *MemStream) Bytes() []byte { return m.buf }

func (m *MemStream) Read(dst []byte) (int, bool) {
	if m.pos >= int64(len(m.buf)) {
		return 0, len(dst) == 0
	}
	n := copy(dst, m.buf[m.pos:])
	m.pos += int64(n)
	return n, n == len(dst)
}

func (m *MemStream) Write(src []byte) bool {
	if m.pos < int64(len(m.buf)) {
		// Overwrite in place (used when back-patching Psot/length fields).
		n := copy(m.buf[m.pos:], src)
		if n < len(src) {
			m.buf = append(m.buf, src[n:]...)
		}
		m.pos += int64(len(src))
		return true
	}
	m.buf = append(m.buf, src...)
	m.pos += int64(len(src))
	return true
}

func (m *MemStream) Skip(n int64) bool {
	if n < 0 || m.pos+n > int64(len(m.buf)) {
		return false
	}
	m.pos += n
	return true
}

func (m *MemStream) Seek(abs int64) bool {
	if abs < 0 || abs > int64(len(m.buf)) {
		return false
	}
	m.pos = abs
	return true
}

func (m *MemStream) Tell() int64 { return m.pos }

func (m *MemStream) BytesRemaining() uint64 {
	if m.pos >= int64(len(m.buf)) {
		return 0
	}
	return uint64(int64(len(m.buf)) - m.pos)
}

func (m *MemStream) Flush() bool { return true }

func (m *MemStream) ZeroCopyPtr(n int) ([]byte, bool) {
	if n < 0 || m.pos+int64(n) > int64(len(m.buf)) {
		return nil, false
	}
	return m.buf[m.pos : m.pos+int64(n)], true
}

// FileStream is a Stream backed by an *os.File, used when the caller
// supplies a file for input/output rather than an in-memory codestream.
type FileStream struct {
	f   *os.File
	pos int64
	end int64 // cached size for BytesRemaining; -1 if unknown (pure writer)
}

// NewFileStream wraps f. If the file is readable, its current size is
// cached for BytesRemaining.
func NewFileStream(f *os.File) *FileStream {
	end := int64(-1)
	if fi, err := f.Stat(); err == nil {
		end = fi.Size()
	}
	pos, _ := f.Seek(0, io.SeekCurrent)
	return &FileStream{f: f, pos: pos, end: end}
}

func (fs *FileStream) Read(dst []byte) (int, bool) {
	n, err := io.ReadFull(fs.f, dst)
	fs.pos += int64(n)
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, n == len(dst)
	}
	return n, n == len(dst)
}

func (fs *FileStream) Write(src []byte) bool {
	n, err := fs.f.Write(src)
	fs.pos += int64(n)
	if fs.end >= 0 && fs.pos > fs.end {
		fs.end = fs.pos
	}
	return err == nil && n == len(src)
}

func (fs *FileStream) Skip(n int64) bool {
	return fs.Seek(fs.pos + n)
}

func (fs *FileStream) Seek(abs int64) bool {
	off, err := fs.f.Seek(abs, io.SeekStart)
	if err != nil {
		return false
	}
	fs.pos = off
	return true
}

func (fs *FileStream) Tell() int64 { return fs.pos }

func (fs *FileStream) BytesRemaining() uint64 {
	if fs.end < 0 || fs.pos >= fs.end {
		return 0
	}
	return uint64(fs.end - fs.pos)
}

func (fs *FileStream) Flush() bool {
	return fs.f.Sync() == nil
}

// ReaderStream adapts a forward-only io.Reader (e.g. a network connection)
// into a Stream that supports neither Seek nor zero-copy, for streaming
// decode of a codestream whose full length is not known in advance.
type ReaderStream struct {
	r   io.Reader
	pos int64
}

// NewReaderStream wraps r.
func NewReaderStream(r io.Reader) *ReaderStream {
	return &ReaderStream{r: r}
}

func (rs *ReaderStream) Read(dst []byte) (int, bool) {
	n, err := io.ReadFull(rs.r, dst)
	rs.pos += int64(n)
	return n, err == nil
}

func (rs *ReaderStream) Write([]byte) bool { return false }

func (rs *ReaderStream) Skip(n int64) bool {
	if n < 0 {
		return false
	}
	copied, err := io.CopyN(io.Discard, rs.r, n)
	rs.pos += copied
	return err == nil
}

func (rs *ReaderStream) Seek(int64) bool { return false }

func (rs *ReaderStream) Tell() int64 { return rs.pos }

func (rs *ReaderStream) BytesRemaining() uint64 { return 0 }

func (rs *ReaderStream) Flush() bool { return true }

// ErrShortIO wraps the common "stream returned short" condition into the
// errs.ErrIoFailure kind for callers that want a Go error instead of a bool.
var ErrShortIO = errs.ErrIoFailure
