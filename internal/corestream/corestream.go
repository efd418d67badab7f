// Package corestream implements the CodeStream front-end of spec.md §4.8:
// a validation-list + procedure-list orchestrator over internal/markers'
// two-way marker codec, sequencing main-header assembly/parsing and
// per-tile-part emission the way internal/markers and internal/tcd need
// to be driven in the right order.
package corestream

import (
	"fmt"

	"github.com/jph2k/coreflow/internal/errs"
	"github.com/jph2k/coreflow/internal/markers"
	"github.com/jph2k/coreflow/internal/stream"
	"github.com/jph2k/coreflow/internal/tlm"
	"github.com/jph2k/coreflow/internal/types"
)

// Step is a nullary predicate: false aborts the validation or procedure
// list it belongs to, per spec.md §4.8.
type Step func() bool

// CodeStream orchestrates one codestream's header and tile-part
// lifecycle. Start runs the validation list then the header-writing (or,
// on decode, header-parsing) procedure list; callers drive tile-part
// emission/parsing between Start and End; End appends the write-EOC and
// TLM-finalize procedures.
type CodeStream struct {
	Params *types.CodingParams
	Codec  *markers.Codec
	TLM    *tlm.Writer

	validations []Step
	procedures  []Step

	useHT     bool
	comment   string
}

// NewCodeStream creates a front-end bound to params, for either encode or
// decode; Codec is created by StartDecode, which parses the main header
// into it. StartEncode writes markers straight from params and leaves
// Codec nil.
func NewCodeStream(params *types.CodingParams) *CodeStream {
	return &CodeStream{Params: params, TLM: tlm.NewWriter()}
}

// SetComment sets the text an encode's COM marker carries; empty means no
// COM segment is written.
func (cs *CodeStream) SetComment(c string) { cs.comment = c }

// SetHT marks the codestream as HTJ2K, causing StartEncode to emit a CAP
// marker per spec.md §4.8.
func (cs *CodeStream) SetHT(ht bool) { cs.useHT = ht }

// runAll executes steps in order, stopping at (and reporting) the first
// false — the abort contract spec.md §4.8 describes for both lists.
func runAll(steps []Step) bool {
	for _, step := range steps {
		if !step() {
			return false
		}
	}
	return true
}

// validateParams is the validation list every Start call runs first: the
// cross-cutting sanity checks a hand-built CodingParams must satisfy
// before any marker gets written or trusted.
func (cs *CodeStream) validateParams() []Step {
	p := cs.Params
	return []Step{
		func() bool { return len(p.Image.Components) > 0 && len(p.Image.Components) <= 16384 },
		func() bool { return !p.Image.Bounds.Empty() },
		func() bool { return p.Grid.TW > 0 && p.Grid.TH > 0 },
		func() bool { return len(p.TCPs) == p.NumTiles() },
		func() bool {
			for _, tcp := range p.TCPs {
				if len(tcp.TCCPs) != len(p.Image.Components) {
					return false
				}
				if tcp.NumLayers <= 0 {
					return false
				}
			}
			return true
		},
	}
}

// StartEncode runs validation then writes the main header (SOC, SIZ,
// CAP-if-HT, COD, QCD, per-component COC/QCC deltas, COM) into s, per
// spec.md §4.8. The TLM segment itself is deferred to End, once every
// tile-part's length is known.
func (cs *CodeStream) StartEncode(s stream.Stream) error {
	cs.validations = cs.validateParams()
	if !runAll(cs.validations) {
		return fmt.Errorf("codestream parameters failed validation: %w", errs.ErrCorruptCodeStream)
	}

	p := cs.Params
	mainTCP := &p.TCPs[0]
	rep := mainTCP.TCCPs[0]

	cs.procedures = []Step{
		func() bool { return markers.WriteSOC(s) },
		func() bool { return markers.WriteSIZ(s, p, 0) },
		func() bool {
			if !cs.useHT {
				return true
			}
			return markers.WriteCAP(s, 0x00020000)
		},
		func() bool { return markers.WriteCOD(s, mainTCP, rep) },
		func() bool { return markers.WriteQCD(s, rep) },
		func() bool { return cs.writeComponentDeltas(s, mainTCP, rep) },
		func() bool {
			if cs.comment == "" {
				return true
			}
			return markers.WriteCOM(s, cs.comment)
		},
	}
	if !runAll(cs.procedures) {
		return fmt.Errorf("writing main header: %w", errs.ErrCorruptCodeStream)
	}
	return nil
}

// writeComponentDeltas writes a COC/QCC pair for every component whose
// TCCP differs from the representative (component 0) one, per spec.md
// §4.2's "most specific source wins" model applied in reverse on write.
func (cs *CodeStream) writeComponentDeltas(s stream.Stream, tcp *types.TCP, rep types.TCCP) bool {
	wide := len(tcp.TCCPs) > 256
	for i := 1; i < len(tcp.TCCPs); i++ {
		t := tcp.TCCPs[i]
		if t.Wavelet != rep.Wavelet || t.NumResolutions != rep.NumResolutions ||
			t.CodeBlockWidthExp != rep.CodeBlockWidthExp || t.CodeBlockHeightExp != rep.CodeBlockHeightExp {
			if !markers.WriteCOC(s, i, wide, t) {
				return false
			}
		}
		if t.QuantStyle != rep.QuantStyle || len(t.StepSizes) != len(rep.StepSizes) {
			if !markers.WriteQCC(s, i, wide, t) {
				return false
			}
		}
	}
	return true
}

// PushTileLength records a written tile-part's (index, byte length) for
// the TLM segment End will emit.
func (cs *CodeStream) PushTileLength(tileIdx int, length uint32) {
	cs.TLM.Push(tlm.Entry{TileIndex: uint16(tileIdx), Length: length})
}

// EndEncode appends the write-EOC and TLM-finalize procedures: the TLM
// segment (if any tile lengths were pushed) is written immediately before
// EOC, since only by then is every tile-part's length known.
func (cs *CodeStream) EndEncode(s stream.Stream) error {
	steps := []Step{
		func() bool { return cs.TLM.WriteTLM(s) },
		func() bool { return markers.WriteEOC(s) },
	}
	if !runAll(steps) {
		return fmt.Errorf("writing codestream trailer: %w", errs.ErrCorruptCodeStream)
	}
	return nil
}

// StartDecode parses the main header from s via internal/markers, then
// runs the same cross-cutting validations an encode would, against the
// parsed result.
func (cs *CodeStream) StartDecode(s stream.Stream) error {
	cs.Codec = markers.NewCodec(cs.Params)
	if err := cs.Codec.ReadMainHeader(s); err != nil {
		return fmt.Errorf("parsing main header: %w", err)
	}
	cs.Codec.EnsureTileTCPs()
	cs.validations = cs.validateParams()
	if !runAll(cs.validations) {
		return fmt.Errorf("parsed codestream failed validation: %w", errs.ErrCorruptCodeStream)
	}
	return nil
}
