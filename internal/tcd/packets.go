package tcd

import (
	"github.com/jph2k/coreflow/internal/stream"
)

// headerBitWriter packs packet-header bits MSB-first into a stream, per
// Annex B.10.1 — no byte stuffing (that's only needed for MQ-coded data).
// A final partial byte is padded with 1 bits.
type headerBitWriter struct {
	s   stream.Stream
	buf byte
	cnt uint8
}

func (w *headerBitWriter) writeBit(b int) bool {
	w.buf = (w.buf << 1) | byte(b&1)
	w.cnt++
	if w.cnt == 8 {
		ok := w.s.Write([]byte{w.buf})
		w.buf, w.cnt = 0, 0
		return ok
	}
	return true
}

func (w *headerBitWriter) writeBits(v uint32, n int) bool {
	for i := n - 1; i >= 0; i-- {
		if !w.writeBit(int((v >> uint(i)) & 1)) {
			return false
		}
	}
	return true
}

func (w *headerBitWriter) flush() bool {
	if w.cnt == 0 {
		return true
	}
	for w.cnt != 0 {
		if !w.writeBit(1) {
			return false
		}
	}
	return true
}

// headerBitReader is the read-side counterpart of headerBitWriter.
type headerBitReader struct {
	s   stream.Stream
	buf byte
	cnt uint8
}

func (r *headerBitReader) readBit() int {
	if r.cnt == 0 {
		var b [1]byte
		if n, ok := r.s.Read(b[:]); !ok || n != 1 {
			return 0
		}
		r.buf = b[0]
		r.cnt = 8
	}
	r.cnt--
	return int((r.buf >> r.cnt) & 1)
}

func (r *headerBitReader) readBits(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = (v << 1) | uint32(r.readBit())
	}
	return v
}

func (r *headerBitReader) align() { r.cnt = 0 }

// ensureTrees lazily builds a precinct's per-band inclusion/zero-bitplane
// tag trees from the current (encode-final, or decode-in-progress)
// CodeBlock state, per Annex B.10.2.
func ensureTrees(prec *Precinct, bi int, forEncode bool) {
	if prec.InclusionTree[bi] != nil {
		return
	}
	gw, gh := prec.CBGridW[bi], prec.CBGridH[bi]
	incl := NewTagTree(gw, gh)
	imsb := NewTagTree(gw, gh)
	if forEncode {
		blocks := prec.CodeBlocks[bi]
		for i, cb := range blocks {
			x, y := i%max(gw, 1), i/max(gw, 1)
			val := cb.IncludedInLayers
			if val == 0 {
				val = int(^uint(0) >> 1) // never included: unreachable threshold
			}
			incl.SetValue(x, y, val)
			imsb.SetValue(x, y, cb.ZeroBitPlanes)
		}
		incl.Build()
		imsb.Build()
	}
	prec.InclusionTree[bi] = incl
	prec.IMSBTree[bi] = imsb
}

// writeNewPasses encodes the "number of new coding passes" value per the
// variable-length code of Annex B.10.5/Table B.3. RateAllocator only ever
// assigns whole code-blocks to a single layer, so the value passed is
// always 1, but the real table is implemented for fidelity.
func writeNewPasses(w *headerBitWriter, n int) bool {
	switch {
	case n == 1:
		return w.writeBit(0)
	case n == 2:
		return w.writeBit(1) && w.writeBit(0)
	case n >= 3 && n <= 5:
		return w.writeBit(1) && w.writeBit(1) && w.writeBits(uint32(n-3), 2)
	case n >= 6 && n <= 36:
		return w.writeBit(1) && w.writeBit(1) && w.writeBits(3, 2) && w.writeBits(uint32(n-6), 5)
	default:
		return w.writeBit(1) && w.writeBit(1) && w.writeBits(3, 2) && w.writeBits(31, 5) && w.writeBits(uint32(n-37), 7)
	}
}

func readNewPasses(r *headerBitReader) int {
	if r.readBit() == 0 {
		return 1
	}
	if r.readBit() == 0 {
		return 2
	}
	two := r.readBits(2)
	if two != 3 {
		return int(two) + 3
	}
	five := r.readBits(5)
	if five != 31 {
		return int(five) + 6
	}
	seven := r.readBits(7)
	return int(seven) + 37
}

// bitLength returns the minimum number of bits needed to represent v (0
// for v==0), used to grow Lblock per Annex B.10.7.
func bitLength(v int) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// WritePacketHeader writes one precinct/layer's packet header per Annex
// B.10: an empty-packet flag, then per band per code-block a tag-tree
// inclusion bit, and — on first inclusion — a zero-bitplane count, a
// new-passes count (always 1, see the RateAllocator doc in rate.go), and an
// Lblock-coded length field. It reports which code-blocks newly became
// included so the caller can follow with their encoded bytes.
func WritePacketHeader(s stream.Stream, res *Resolution, precIdx, layer int) (newly []*CodeBlock, ok bool) {
	prec := res.Precincts[precIdx]
	for bi := range prec.CodeBlocks {
		ensureTrees(prec, bi, true)
	}

	anyNew := false
	for _, blocks := range prec.CodeBlocks {
		for _, cb := range blocks {
			if cb.IncludedInLayers == layer+1 {
				anyNew = true
			}
		}
	}

	w := &headerBitWriter{s: s}
	if !anyNew {
		if !w.writeBit(0) {
			return nil, false
		}
		return nil, w.flush()
	}
	if !w.writeBit(1) {
		return nil, false
	}

	for bi, blocks := range prec.CodeBlocks {
		gw := prec.CBGridW[bi]
		tree := prec.InclusionTree[bi]
		imsb := prec.IMSBTree[bi]
		for i, cb := range blocks {
			x, y := i%max(gw, 1), i/max(gw, 1)
			wasKnownBefore := cb.IncludedInLayers != 0 && cb.IncludedInLayers <= layer
			if wasKnownBefore {
				continue // already fully sent in an earlier layer, per rate.go's whole-block granularity
			}
			tree.Encode(x, y, layer+1, func(bit int) { w.writeBit(bit) })
			if cb.IncludedInLayers != layer+1 {
				continue // still not included, nothing more to code this layer
			}
			imsb.Encode(x, y, cb.ZeroBitPlanes, func(bit int) { w.writeBit(bit) })
			newly = append(newly, cb)
			if !writeNewPasses(w, 1) {
				return nil, false
			}
			need := bitLength(len(cb.Data))
			for cb.Lblock < need {
				if !w.writeBit(1) {
					return nil, false
				}
				cb.Lblock++
			}
			if !w.writeBit(0) {
				return nil, false
			}
			if !w.writeBits(uint32(len(cb.Data)), cb.Lblock) {
				return nil, false
			}
		}
	}
	if !w.flush() {
		return nil, false
	}
	return newly, true
}

// WritePacketBody appends newly-included code-blocks' encoded bytes, in
// the same band/raster order WritePacketHeader enumerated them.
func WritePacketBody(s stream.Stream, newly []*CodeBlock) bool {
	for _, cb := range newly {
		if !s.Write(cb.Data) {
			return false
		}
	}
	return true
}

// ReadPacketHeader is WritePacketHeader's decode-side mirror: it parses
// one precinct/layer's packet header, discovering which code-blocks
// become newly included and how many encoded bytes each contributed, per
// Annex B.10.
func ReadPacketHeader(s stream.Stream, res *Resolution, precIdx, layer int) (newly []*CodeBlock, lengths []int, ok bool) {
	prec := res.Precincts[precIdx]
	for bi := range prec.CodeBlocks {
		ensureTrees(prec, bi, false)
	}

	r := &headerBitReader{s: s}
	if r.readBit() == 0 {
		return nil, nil, true
	}

	for bi, blocks := range prec.CodeBlocks {
		gw := prec.CBGridW[bi]
		tree := prec.InclusionTree[bi]
		imsb := prec.IMSBTree[bi]
		for i, cb := range blocks {
			x, y := i%max(gw, 1), i/max(gw, 1)
			wasKnownBefore := cb.IncludedInLayers != 0 && cb.IncludedInLayers <= layer
			if wasKnownBefore {
				continue
			}
			included := tree.Decode(x, y, layer+1, func() int { return r.readBit() })
			if !included {
				continue
			}
			cb.IncludedInLayers = layer + 1
			// The IMSB tree is resolved in one shot at an arbitrarily
			// large threshold; readNewPasses' terminating 0-bit then
			// length field bound how far Decode must actually read.
			imsb.Decode(x, y, 1<<20, func() int { return r.readBit() })
			zb, _ := imsb.leafValue(x, y)
			cb.ZeroBitPlanes = zb

			np := readNewPasses(r)
			_ = np
			for {
				bit := r.readBit()
				if bit == 0 {
					break
				}
				cb.Lblock++
			}
			length := int(r.readBits(cb.Lblock))
			newly = append(newly, cb)
			lengths = append(lengths, length)
		}
	}
	r.align()
	return newly, lengths, true
}

// ReadPacketBody reads each newly-included code-block's encoded bytes out
// of s in the order ReadPacketHeader returned them.
func ReadPacketBody(s stream.Stream, newly []*CodeBlock, lengths []int) bool {
	for i, cb := range newly {
		data := make([]byte, lengths[i])
		n, ok := s.Read(data)
		if !ok || n != lengths[i] {
			return false
		}
		cb.Data = data
	}
	return true
}

// leafValue exposes a tag tree's discovered/true leaf value, used by
// ReadPacketHeader to recover a just-resolved zero-bitplane count.
func (t *TagTree) leafValue(x, y int) (int, bool) {
	n := &t.nodes[0][y*t.width+x]
	return n.value, n.known
}
