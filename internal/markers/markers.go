// Package markers implements the two-way MarkerCodec of spec.md §4.2: a
// state-gated dispatch table over every marker segment ISO/IEC 15444-1
// and its Part-2/HTJ2K extensions define, reading and writing them against
// a stream.Stream and mutating types.CodingParams/TCP/TCCP.
package markers

// Marker is a JPEG 2000 marker code, always of the form 0xFFxx.
type Marker uint16

const (
	SOC Marker = 0xFF4F
	SOT Marker = 0xFF90
	SOD Marker = 0xFF93
	EOC Marker = 0xFFD9

	SIZ Marker = 0xFF51

	COD Marker = 0xFF52
	COC Marker = 0xFF53
	RGN Marker = 0xFF5E
	QCD Marker = 0xFF5C
	QCC Marker = 0xFF5D
	POC Marker = 0xFF5F

	TLM Marker = 0xFF55
	PLM Marker = 0xFF57
	PLT Marker = 0xFF58
	PPM Marker = 0xFF60
	PPT Marker = 0xFF61

	SOP Marker = 0xFF91
	EPH Marker = 0xFF92

	CRG Marker = 0xFF63
	COM Marker = 0xFF64

	CAP Marker = 0xFF50
	CBD Marker = 0xFF78
	MCT Marker = 0xFF74
	MCC Marker = 0xFF75
	MCO Marker = 0xFF77
)

// String names the marker, falling back to its hex code for anything this
// codec doesn't otherwise recognize.
func (m Marker) String() string {
	switch m {
	case SOC:
		return "SOC"
	case SOT:
		return "SOT"
	case SOD:
		return "SOD"
	case EOC:
		return "EOC"
	case SIZ:
		return "SIZ"
	case COD:
		return "COD"
	case COC:
		return "COC"
	case RGN:
		return "RGN"
	case QCD:
		return "QCD"
	case QCC:
		return "QCC"
	case POC:
		return "POC"
	case TLM:
		return "TLM"
	case PLM:
		return "PLM"
	case PLT:
		return "PLT"
	case PPM:
		return "PPM"
	case PPT:
		return "PPT"
	case SOP:
		return "SOP"
	case EPH:
		return "EPH"
	case CRG:
		return "CRG"
	case COM:
		return "COM"
	case CAP:
		return "CAP"
	case CBD:
		return "CBD"
	case MCT:
		return "MCT"
	case MCC:
		return "MCC"
	case MCO:
		return "MCO"
	default:
		return "UNKNOWN"
	}
}

// HasLength reports whether the marker is followed by a two-byte length
// field and payload. SOC/SOD/EOC are bare codes and report false; every
// other marker, SOP and EPH included, reports true.
func (m Marker) HasLength() bool {
	switch m {
	case SOC, SOD, EOC:
		return false
	default:
		return true
	}
}

// IsDelimiter reports whether m is one of the framing markers that never
// carries a length field under any circumstance.
func (m Marker) IsDelimiter() bool {
	switch m {
	case SOC, SOD, EOC:
		return true
	default:
		return false
	}
}

// State is a bitmask identifying where in the codestream the parser
// currently is; each handler in the dispatch table is gated by a mask of
// the states it is legal in, per spec.md §4.2.
type State uint16

const (
	StateMHSOC  State = 1 << iota // immediately after SOC, before SIZ
	StateMHSIZ                    // immediately after SIZ
	StateMH                       // main header, after SIZ, before first SOT
	StateTPHSOT                   // immediately after a tile-part's SOT
	StateTPH                      // tile-part header, after SOT, before SOD
	StateData                     // inside tile-part packet data
	StateEOC                      // at EOC
	StateNoEOC                    // terminal: stream ended without EOC
)

// MainHeaderStates is the mask accepted by markers legal anywhere in the
// main header (after SIZ, before the first SOT).
const MainHeaderStates = StateMHSIZ | StateMH

// TileHeaderStates is the mask accepted by markers legal in a tile-part
// header (after SOT, before SOD).
const TileHeaderStates = StateTPHSOT | StateTPH

// AnyHeaderStates covers markers legal in either the main or a tile-part
// header (COD/COC/QCD/QCC/RGN/POC/COM all qualify).
const AnyHeaderStates = MainHeaderStates | TileHeaderStates

const minSegmentLength = 2 // Lmrk itself must be counted, per spec.md §4.2
