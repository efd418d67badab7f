package markers

import (
	"golang.org/x/text/encoding/charmap"

	"github.com/jph2k/coreflow/internal/stream"
	"github.com/jph2k/coreflow/internal/types"
)

// WriteSOC writes the start-of-codestream magic.
func WriteSOC(s stream.Stream) bool {
	return stream.Write16(s, uint16(SOC))
}

// WriteEOC writes the end-of-codestream marker.
func WriteEOC(s stream.Stream) bool {
	return stream.Write16(s, uint16(EOC))
}

// WriteSIZ writes the image-and-tile-size marker segment from cp.
func WriteSIZ(s stream.Stream, cp *types.CodingParams, rsiz uint16) bool {
	csiz := len(cp.Image.Components)
	segLen := uint16(38 + 3*csiz)
	if !stream.Write16(s, uint16(SIZ)) || !stream.Write16(s, segLen) || !stream.Write16(s, rsiz) {
		return false
	}
	b := cp.Image.Bounds
	if !stream.Write32(s, uint32(b.X1)) || !stream.Write32(s, uint32(b.Y1)) ||
		!stream.Write32(s, uint32(b.X0)) || !stream.Write32(s, uint32(b.Y0)) {
		return false
	}
	g := cp.Grid
	if !stream.Write32(s, uint32(g.TW)) || !stream.Write32(s, uint32(g.TH)) ||
		!stream.Write32(s, uint32(g.TX0)) || !stream.Write32(s, uint32(g.TY0)) {
		return false
	}
	if !stream.Write16(s, uint16(csiz)) {
		return false
	}
	for _, c := range cp.Image.Components {
		ssiz := byte(c.Precision - 1)
		if c.Signed {
			ssiz |= 0x80
		}
		if !s.Write([]byte{ssiz, byte(c.Dx), byte(c.Dy)}) {
			return false
		}
	}
	return true
}

// WriteCAP writes the Part-2/HT capabilities marker.
func WriteCAP(s stream.Stream, pcap uint32) bool {
	return stream.Write16(s, uint16(CAP)) && stream.Write16(s, 8) && stream.Write32(s, pcap) && stream.Write16(s, 0)
}

// writeSPcod writes the SPcod/SPcoc body shared by COD/COC.
func writeSPcod(s stream.Stream, t types.TCCP) bool {
	numDecomp := byte(t.NumResolutions - 1)
	if !s.Write([]byte{numDecomp, t.CodeBlockWidthExp, t.CodeBlockHeightExp, t.CodeBlockStyle, byte(t.Wavelet)}) {
		return false
	}
	if t.CodeBlockStyle&0x01 != 0 {
		for r := 0; r < t.NumResolutions; r++ {
			ps := t.PrecinctSizeAt(r)
			if !s.Write([]byte{ps.PPx | (ps.PPy << 4)}) {
				return false
			}
		}
	}
	return true
}

// WriteCOD writes the main coding-style-default marker segment for tcp
// using rep as the representative (component-0) TCCP.
func WriteCOD(s stream.Stream, tcp *types.TCP, rep types.TCCP) bool {
	precinctBytes := 0
	if rep.CodeBlockStyle&0x01 != 0 {
		precinctBytes = rep.NumResolutions
	}
	segLen := uint16(12 + precinctBytes)
	if !stream.Write16(s, uint16(COD)) || !stream.Write16(s, segLen) {
		return false
	}
	scod := byte(0)
	if rep.CodeBlockStyle&0x01 != 0 {
		scod |= 0x01
	}
	if tcp.EnableSOP {
		scod |= 0x02
	}
	if tcp.EnableEPH {
		scod |= 0x04
	}
	mct := byte(0)
	if tcp.MCT != types.MCTOff {
		mct = 1
	}
	if !s.Write([]byte{scod, byte(tcp.Progression)}) || !stream.Write16(s, uint16(tcp.NumLayers)) || !s.Write([]byte{mct}) {
		return false
	}
	return writeSPcod(s, rep)
}

// WriteQCD writes the main quantization-default marker segment.
func WriteQCD(s stream.Stream, t types.TCCP) bool {
	var payload []byte
	sqcd := byte(t.QuantStyle) | byte(t.GuardBits<<5)
	payload = append(payload, sqcd)
	if t.QuantStyle == types.QuantNone {
		for _, ss := range t.StepSizes {
			payload = append(payload, ss.Exponent<<3)
		}
	} else {
		for _, ss := range t.StepSizes {
			v := uint16(ss.Exponent)<<11 | (ss.Mantissa & 0x07FF)
			payload = append(payload, byte(v>>8), byte(v))
		}
	}
	segLen := uint16(2 + len(payload))
	return stream.Write16(s, uint16(QCD)) && stream.Write16(s, segLen) && s.Write(payload)
}

// WriteCOC writes a per-component coding-style override.
func WriteCOC(s stream.Stream, compIdx int, wide bool, t types.TCCP) bool {
	precinctBytes := 0
	if t.CodeBlockStyle&0x01 != 0 {
		precinctBytes = t.NumResolutions
	}
	compBytes := 1
	if wide {
		compBytes = 2
	}
	segLen := uint16(2 + compBytes + 4 + precinctBytes)
	if !stream.Write16(s, uint16(COC)) || !stream.Write16(s, segLen) {
		return false
	}
	if wide {
		if !stream.Write16(s, uint16(compIdx)) {
			return false
		}
	} else if !s.Write([]byte{byte(compIdx)}) {
		return false
	}
	if !s.Write([]byte{0}) { // Scoc: 0 == default precincts flag folded into SPcoc style byte
		return false
	}
	return writeSPcod(s, t)
}

// WriteQCC writes a per-component quantization override.
func WriteQCC(s stream.Stream, compIdx int, wide bool, t types.TCCP) bool {
	var payload []byte
	sqcd := byte(t.QuantStyle) | byte(t.GuardBits<<5)
	payload = append(payload, sqcd)
	if t.QuantStyle == types.QuantNone {
		for _, ss := range t.StepSizes {
			payload = append(payload, ss.Exponent<<3)
		}
	} else {
		for _, ss := range t.StepSizes {
			v := uint16(ss.Exponent)<<11 | (ss.Mantissa & 0x07FF)
			payload = append(payload, byte(v>>8), byte(v))
		}
	}
	compBytes := 1
	if wide {
		compBytes = 2
	}
	segLen := uint16(2 + compBytes + len(payload))
	if !stream.Write16(s, uint16(QCC)) || !stream.Write16(s, segLen) {
		return false
	}
	if wide {
		if !stream.Write16(s, uint16(compIdx)) {
			return false
		}
	} else if !s.Write([]byte{byte(compIdx)}) {
		return false
	}
	return s.Write(payload)
}

// WriteRGN writes a region-of-interest marker segment.
func WriteRGN(s stream.Stream, compIdx int, wide bool, shift int) bool {
	compBytes := 1
	if wide {
		compBytes = 2
	}
	segLen := uint16(2 + compBytes + 2)
	if !stream.Write16(s, uint16(RGN)) || !stream.Write16(s, segLen) {
		return false
	}
	if wide {
		if !stream.Write16(s, uint16(compIdx)) {
			return false
		}
	} else if !s.Write([]byte{byte(compIdx)}) {
		return false
	}
	return s.Write([]byte{0, byte(shift)})
}

// WriteCOM writes a comment marker segment, Latin-1 encoding text when it
// can be represented that way, falling back to binary otherwise.
func WriteCOM(s stream.Stream, text string) bool {
	rcom := uint16(1)
	payload, err := charmap.ISO8859_1.NewEncoder().String(text)
	if err != nil {
		rcom = 0
		payload = text
	}
	segLen := uint16(4 + len(payload))
	return stream.Write16(s, uint16(COM)) && stream.Write16(s, segLen) && stream.Write16(s, rcom) && s.Write([]byte(payload))
}

// WriteSOT writes a start-of-tile-part marker segment.
func WriteSOT(s stream.Stream, tileIdx int, psot uint32, tpIdx, numParts uint8) bool {
	return stream.Write16(s, uint16(SOT)) && stream.Write16(s, 10) &&
		stream.Write16(s, uint16(tileIdx)) && stream.Write32(s, psot) &&
		s.Write([]byte{tpIdx, numParts})
}

// WriteSOD writes the start-of-data marker.
func WriteSOD(s stream.Stream) bool {
	return stream.Write16(s, uint16(SOD))
}

// SOTFields is a parsed start-of-tile-part marker segment.
type SOTFields struct {
	TileIndex int
	Psot      uint32
	TPIndex   uint8
	NumParts  uint8
}

// ReadSOT reads a SOT marker (code already consumed by the caller) and
// its segment body.
func ReadSOT(s stream.Stream) (SOTFields, bool) {
	segLen, ok1 := stream.Read16(s)
	tileIdx, ok2 := stream.Read16(s)
	psot, ok3 := stream.Read32(s)
	b := make([]byte, 2)
	n, ok4 := s.Read(b)
	if !(ok1 && ok2 && ok3 && ok4) || n != 2 || segLen != 10 {
		return SOTFields{}, false
	}
	return SOTFields{TileIndex: int(tileIdx), Psot: psot, TPIndex: b[0], NumParts: b[1]}, true
}

// PsotOffset is the byte offset of the Psot field within a SOT segment,
// relative to the marker code's first byte, used by writers to back-patch
// the length once a tile-part's size is known.
const PsotOffset = 6
