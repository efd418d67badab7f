package tcd

import (
	"fmt"

	"github.com/jph2k/coreflow/internal/errs"
	"github.com/jph2k/coreflow/internal/markers"
	"github.com/jph2k/coreflow/internal/packetiter"
	"github.com/jph2k/coreflow/internal/stream"
	"github.com/jph2k/coreflow/internal/types"
)

// TileProcessor drives one tile's compress or decompress lifecycle end to
// end, per spec.md §4.4: forward/inverse DWT, Tier-1 entropy dispatch,
// PCRD-bisection rate allocation (compress only), and progression-ordered
// Tier-2 packet-header/body emission or parsing through internal/markers
// and internal/packetiter.
type TileProcessor struct {
	Params *types.CodingParams
	HTJ2K  bool
	// Quality is the lossy coefficient-scaling knob, 1-100, mirroring
	// Options.Quality; 0 or Wavelet53 (reversible) leaves coefficients
	// untouched. This is deliberately not an Annex E per-subband
	// dequantization: TCCP.StepSizes is still reported in QCD/QCC for
	// codestream conformance, but the actual lossy knob here is this
	// single per-tile-component divisor.
	Quality int
}

// NewTileProcessor creates a processor bound to a codestream's coding
// parameters.
func NewTileProcessor(params *types.CodingParams) *TileProcessor {
	return &TileProcessor{Params: params}
}

// packetComponents builds the packetiter.Component slice describing tile's
// per-component, per-resolution precinct grids in the projected coordinate
// system packetiter.Iter needs for RPCL/PCRL. The projected grid origin is
// taken as the tile's own canvas origin and every component's subsampling
// as 1:1 — initPrecincts partitions each resolution's precincts relative
// to that same tile-local origin, so this lines up exactly for the
// unsubsampled, single-tile-grid case this encoder targets; LRCP/RLCP/CPRL
// (the index-driven orders, unaffected by ProjW/ProjH) are exact
// regardless.
func packetComponents(tile *Tile, tcp *types.TCP) []packetiter.Component {
	comps := make([]packetiter.Component, len(tile.Components))
	for ci, tc := range tile.Components {
		tccp := tcp.TCCPs[ci]
		numRes := len(tc.Resolutions)
		ris := make([]packetiter.ResInfo, numRes)
		for r, res := range tc.Resolutions {
			ps := tccp.PrecinctSizeAt(r)
			shift := numRes - 1 - r
			ris[r] = packetiter.ResInfo{
				GridW: res.PrecinctsX,
				GridH: res.PrecinctsY,
				ProjW: ps.Width() << shift,
				ProjH: ps.Height() << shift,
			}
		}
		comps[ci] = packetiter.Component{Dx: 1, Dy: 1, Res: ris}
	}
	return comps
}

// blockEnergy is the rate allocator's per-block distortion proxy: the
// pre-quantization coefficient energy a block's encoded bytes would
// recover, standing in for the true per-pass MSE reduction the single
// whole-block "pass" the RateAllocator doc in rate.go describes.
func blockEnergy(samples []int32) float64 {
	var sum float64
	for _, v := range samples {
		f := float64(v)
		sum += f * f
	}
	return sum
}

// layerBudgets turns tcp.Rates (spec.md §3's per-layer target expressed as
// bytes-per-sample) into absolute byte budgets for RateAllocator, one
// entry per layer, scaled by totalSamples (the tile's total sample count
// summed across components); 0 or a non-positive tcp.Rates entry means "no
// target", the single-lossless-layer shortcut.
func layerBudgets(tcp *types.TCP, totalSamples int) []int {
	budgets := make([]int, tcp.NumLayers)
	for i, r := range tcp.Rates {
		if i >= len(budgets) {
			break
		}
		if r > 0 {
			budgets[i] = int(r * float64(totalSamples))
		}
	}
	return budgets
}

// quantizeTileComponent applies the lossy coefficient scale to tc.Data in
// place, after the forward DWT and before Tier-1 extraction. Lossless
// coding (Wavelet53) and quality<=0 (or >=100, i.e. "no loss requested")
// are no-ops, matching the teacher's original quality-gated preprocess
// step now moved per-tile.
func quantizeTileComponent(tc *TileComponent, tccp types.TCCP, quality int) {
	if tccp.Wavelet != types.Wavelet97 || quality <= 0 || quality >= 100 {
		return
	}
	step := float64(101 - quality)
	if step <= 1 {
		return
	}
	for i, v := range tc.Data {
		tc.Data[i] = int32(float64(v) / step)
	}
}

// CompressTile runs one tile's encode pipeline: forward DWT, per-code-
// block Tier-1 entropy coding, PCRD-bisection rate allocation across
// tcp.NumLayers quality layers, and progression-ordered Tier-2 packet
// emission, writing a single tile-part (SOT/SOD plus every packet) to s.
// It returns the tile-part's total byte length, back-patched into the
// SOT segment's Psot field before returning.
func (tp *TileProcessor) CompressTile(s stream.Stream, tileIdx int, componentData [][]int32, ra *RateAllocator) (uint32, error) {
	p := tp.Params
	tcp := &p.TCPs[tileIdx]

	enc := NewTileEncoder(p)
	enc.SetHTJ2K(tp.HTJ2K)
	enc.InitTile(tileIdx, componentData)
	tile := enc.Tile()

	var blocks []*BlockRD
	totalSamples := 0
	for ci, tc := range tile.Components {
		enc.ApplyForwardDWT(tc)
		quantizeTileComponent(tc, tcp.TCCPs[ci], tp.Quality)
		totalSamples += (tc.X1 - tc.X0) * (tc.Y1 - tc.Y0)
		for _, res := range tc.Resolutions {
			for _, band := range res.Bands {
				for _, cb := range band.CodeBlocks {
					if cb.X1 <= cb.X0 || cb.Y1 <= cb.Y0 {
						continue
					}
					samples := ExtractCodeBlockSamples(tc, band, cb)
					enc.EncodeCodeBlock(cb, samples, band.Type)
					if len(cb.Data) == 0 {
						continue
					}
					blocks = append(blocks, &BlockRD{CB: cb, Rate: len(cb.Data), Distortion: blockEnergy(samples)})
				}
			}
		}
	}

	ra.Allocate(blocks, tcp.NumLayers, layerBudgets(tcp, totalSamples))

	start := s.Tell()
	if !markers.WriteSOT(s, tileIdx, 0, 0, 1) {
		return 0, fmt.Errorf("writing SOT: %w", errs.ErrIoFailure)
	}
	if !markers.WriteSOD(s) {
		return 0, fmt.Errorf("writing SOD: %w", errs.ErrIoFailure)
	}

	comps := packetComponents(tile, tcp)
	tileRect := types.Rect{X0: tile.X0, Y0: tile.Y0, X1: tile.X1, Y1: tile.Y1}
	it, err := packetiter.New(comps, tcp.NumLayers, nil, types.Rect{}, tileRect, false)
	if err != nil {
		return 0, fmt.Errorf("building packet iterator: %w", err)
	}
	for {
		pkt, ok := it.Next()
		if !ok {
			break
		}
		res := resolutionFor(tile, pkt)
		if res == nil || pkt.Precinct >= len(res.Precincts) {
			continue
		}
		newly, ok := WritePacketHeader(s, res, pkt.Precinct, pkt.Layer)
		if !ok {
			return 0, fmt.Errorf("writing packet header: %w", errs.ErrIoFailure)
		}
		if !WritePacketBody(s, newly) {
			return 0, fmt.Errorf("writing packet body: %w", errs.ErrIoFailure)
		}
	}

	end := s.Tell()
	length := uint32(end - start)
	if !s.Seek(start + markers.PsotOffset) {
		return 0, fmt.Errorf("seeking to back-patch Psot: %w", errs.ErrIoFailure)
	}
	if !stream.Write32(s, length) {
		return 0, fmt.Errorf("back-patching Psot: %w", errs.ErrIoFailure)
	}
	if !s.Seek(end) {
		return 0, fmt.Errorf("restoring stream position: %w", errs.ErrIoFailure)
	}
	return length, nil
}

// DecompressTile parses one already-open tile-part (positioned at its SOD,
// per a caller that has read SOT via markers.ReadSOT and the tile header
// via markers.Codec.ReadTileHeader) and returns componentData filled with
// fully reconstructed, inverse-DWT'd samples — MCT and DC level shift are
// the caller's responsibility, same as the teacher's tile decode split.
func (tp *TileProcessor) DecompressTile(s stream.Stream, tileIdx int) ([][]int32, error) {
	p := tp.Params
	tcp := &p.TCPs[tileIdx]

	dec := NewTileDecoder(p)
	dec.SetHTJ2K(tp.HTJ2K)
	dec.InitTile(tileIdx)
	tile := dec.Tile()

	if !consumeSOD(s) {
		return nil, fmt.Errorf("expected SOD marker: %w", errs.ErrCorruptCodeStream)
	}

	comps := packetComponents(tile, tcp)
	tileRect := types.Rect{X0: tile.X0, Y0: tile.Y0, X1: tile.X1, Y1: tile.Y1}
	it, err := packetiter.New(comps, tcp.NumLayers, nil, types.Rect{}, tileRect, true)
	if err != nil {
		return nil, fmt.Errorf("building packet iterator: %w", err)
	}
	for {
		pkt, ok := it.Next()
		if !ok {
			break
		}
		res := resolutionFor(tile, pkt)
		if res == nil || pkt.Precinct >= len(res.Precincts) {
			continue
		}
		newly, lengths, ok := ReadPacketHeader(s, res, pkt.Precinct, pkt.Layer)
		if !ok {
			return nil, fmt.Errorf("reading packet header: %w", errs.ErrIoFailure)
		}
		if !ReadPacketBody(s, newly, lengths) {
			return nil, fmt.Errorf("reading packet body: %w", errs.ErrIoFailure)
		}
	}

	out := make([][]int32, len(tile.Components))
	for ci, tc := range tile.Components {
		for _, res := range tc.Resolutions {
			for _, band := range res.Bands {
				for _, cb := range band.CodeBlocks {
					if err := dec.DecodeCodeBlock(cb, band.Type); err != nil {
						return nil, fmt.Errorf("decoding code-block: %w", err)
					}
					PlaceCodeBlockSamples(tc, cb)
				}
			}
		}
		dec.ApplyInverseDWT(tc)
		out[ci] = tc.Data
	}
	return out, nil
}

// resolutionFor looks up the Resolution a packetiter.Packet addresses.
func resolutionFor(tile *Tile, pkt packetiter.Packet) *Resolution {
	if pkt.Component < 0 || pkt.Component >= len(tile.Components) {
		return nil
	}
	tc := tile.Components[pkt.Component]
	if pkt.Resolution < 0 || pkt.Resolution >= len(tc.Resolutions) {
		return nil
	}
	return tc.Resolutions[pkt.Resolution]
}

// consumeSOD reads and checks the SOD marker a tile-part's packet stream
// immediately follows.
func consumeSOD(s stream.Stream) bool {
	v, ok := stream.Read16(s)
	return ok && markers.Marker(v) == markers.SOD
}
