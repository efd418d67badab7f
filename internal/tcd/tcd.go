// Package tcd implements the Tile Coder/Decoder of spec.md §4.4: the
// arena-owned Tile/TileComponent/Resolution/Band/Precinct/CodeBlock tree,
// the forward/inverse DWT steps, Tier-1 entropy coding dispatch, and (via
// rate.go and packets.go) PCRD rate allocation and Tier-2 packet headers.
package tcd

import (
	"github.com/jph2k/coreflow/internal/dwt"
	"github.com/jph2k/coreflow/internal/entropy"
	"github.com/jph2k/coreflow/internal/types"
)

// Tile represents a single tile in the image.
type Tile struct {
	// Tile index
	Index int

	// Tile bounds in image coordinates
	X0, Y0, X1, Y1 int

	// Components
	Components []*TileComponent
}

// TileComponent represents a single component within a tile.
type TileComponent struct {
	// Component index
	Index int

	// Component bounds (may differ due to subsampling)
	X0, Y0, X1, Y1 int

	// Resolution levels
	Resolutions []*Resolution

	// Coefficient data
	Data []int32

	// Floating point data for 9-7 transform
	DataFloat []float64

	// Sample precision (bits), used to derive each code-block's
	// theoretical maximum bit-plane count.
	Precision int
}

// Resolution represents a resolution level within a tile-component.
type Resolution struct {
	// Resolution level (0 = lowest resolution, LL only)
	Level int

	// Bounds at this resolution
	X0, Y0, X1, Y1 int

	// Number of bands (1 for LL, 3 for others)
	NumBands int

	// Bands at this resolution
	Bands []*Band

	// Precincts
	Precincts []*Precinct

	// Precinct grid dimensions
	PrecinctsX, PrecinctsY int
}

// Band represents a subband within a resolution level.
type Band struct {
	// Band type (LL, HL, LH, HH)
	Type int

	// Band bounds
	X0, Y0, X1, Y1 int

	// Quantization step size
	StepSize float64

	// Code-blocks
	CodeBlocks []*CodeBlock

	// Code-block grid dimensions
	CodeBlocksX, CodeBlocksY int
}

// Precinct represents a precinct for packet organization.
type Precinct struct {
	// Precinct index
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Code-blocks in this precinct, per band, in row-major order over
	// that band's local code-block sub-grid (widths/heights in
	// CBGridW/CBGridH).
	CodeBlocks [][]*CodeBlock
	CBGridW    []int
	CBGridH    []int

	// Tag trees for inclusion and IMSB, one pair per band (populated by
	// packets.go the first time a precinct's packet header is written or
	// parsed).
	InclusionTree []*TagTree
	IMSBTree      []*TagTree
}

// CodeBlock represents a code-block for entropy coding.
type CodeBlock struct {
	// Code-block index within its band
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Encoded data
	Data []byte

	// Coding passes
	Passes []CodingPass

	// Number of zero bit-planes
	ZeroBitPlanes int

	// Total number of bit-planes
	TotalBitPlanes int

	// IncludedInLayers is 0 until the block is first included in a
	// packet, then the 1-based layer index of that first inclusion; it
	// stays fixed afterward, matching Annex B.10's inclusion tag-tree
	// semantics (a block already sent needs only a "new passes" count in
	// later layers, never a repeat of the inclusion bit).
	IncludedInLayers int

	// Lblock is the per-code-block length-coding state of Annex B.10.7,
	// the running bit-width estimate a packet header's length field is
	// sized against; it only ever grows, by the amount a header's unary
	// prefix signals.
	Lblock int

	// MaxBitPlanes is the theoretical bit-plane ceiling (sample precision
	// plus guard bits) computed identically on encode and decode from
	// tccp alone; TotalBitPlanes - the bit-planes actually coded - is
	// MaxBitPlanes minus the ZeroBitPlanes a packet header transmits.
	MaxBitPlanes int

	// Decoded coefficient data
	Coefficients []int32
}

// CodingPass represents a single coding pass.
type CodingPass struct {
	// Pass type (significance, refinement, cleanup)
	Type int

	// Length in bytes
	Length int

	// Cumulative length
	CumulativeLength int

	// Rate-distortion slope
	Slope float64

	// Terminated flag
	Terminated bool
}

// Pass type constants.
const (
	PassSignificance = iota
	PassRefinement
	PassCleanup
)

// TagTree implements the incremental tag tree of Annex B.10.2: a
// quad-merge pyramid over a 2D grid of leaf values, used for both the
// per-code-block inclusion tree and the zero-bitplane ("IMSB") tree. Each
// level is half the width/height (rounded up) of the one below; the root
// is a single node holding the minimum over the whole grid.
type TagTree struct {
	width, height int
	levelWidths   []int
	levelHeights  []int
	nodes         [][]tagNode
}

type tagNode struct {
	value int // true leaf value (encode side) or discovered value (decode side)
	low   int // lower bound already established by prior Encode/Decode calls
	known bool
}

const tagTreeUnknown = int(^uint(0) >> 1) // MaxInt

// NewTagTree creates a new tag tree over a width x height leaf grid.
func NewTagTree(width, height int) *TagTree {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	t := &TagTree{width: width, height: height}

	w, h := width, height
	for {
		t.levelWidths = append(t.levelWidths, w)
		t.levelHeights = append(t.levelHeights, h)
		if w == 1 && h == 1 {
			break
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}

	t.nodes = make([][]tagNode, len(t.levelWidths))
	for l := range t.nodes {
		n := t.levelWidths[l] * t.levelHeights[l]
		t.nodes[l] = make([]tagNode, n)
		for i := range t.nodes[l] {
			t.nodes[l][i].value = tagTreeUnknown
		}
	}
	return t
}

// SetValue sets a leaf's true value (encoder side only). Call Build once
// every leaf has been set, before the first Encode call.
func (t *TagTree) SetValue(x, y, value int) {
	t.nodes[0][y*t.width+x].value = value
}

// Build recomputes every internal node as the minimum of its children,
// the encode-side bookkeeping that must run once after every leaf's
// SetValue and before any Encode call.
func (t *TagTree) Build() {
	for l := 0; l+1 < len(t.nodes); l++ {
		cw, ch := t.levelWidths[l], t.levelHeights[l]
		pw := t.levelWidths[l+1]
		for py := 0; py < t.levelHeights[l+1]; py++ {
			for px := 0; px < pw; px++ {
				m := tagTreeUnknown
				for dy := 0; dy < 2; dy++ {
					cy := py*2 + dy
					if cy >= ch {
						continue
					}
					for dx := 0; dx < 2; dx++ {
						cx := px*2 + dx
						if cx >= cw {
							continue
						}
						if v := t.nodes[l][cy*cw+cx].value; v < m {
							m = v
						}
					}
				}
				t.nodes[l+1][py*pw+px].value = m
			}
		}
	}
}

// path returns leaf (x,y)'s ancestor chain, index 0 == leaf, last == root.
func (t *TagTree) path(x, y int) []*tagNode {
	out := make([]*tagNode, 0, len(t.nodes))
	for l := 0; l < len(t.nodes); l++ {
		w := t.levelWidths[l]
		out = append(out, &t.nodes[l][y*w+x])
		x, y = x/2, y/2
	}
	return out
}

// Encode walks leaf (x,y)'s root-to-leaf ancestor chain, emitting one bit
// per increment of each ancestor's known lower bound up to threshold, and
// a final "1" bit the instant an ancestor's bound reaches its true value —
// the standard Annex B.10.2 encode traversal shared by inclusion and
// zero-bitplane coding.
func (t *TagTree) Encode(x, y, threshold int, emit func(bit int)) {
	path := t.path(x, y)
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if n.known {
			continue
		}
		for n.low < threshold && n.low < n.value {
			n.low++
			emit(0)
		}
		if n.low >= n.value {
			n.known = true
			emit(1)
		}
	}
}

// Decode mirrors Encode on the read side: next is called to pull the next
// bit from the packet header's bit-stream. It returns true once the
// leaf's value is known to be <= threshold.
func (t *TagTree) Decode(x, y, threshold int, next func() int) bool {
	path := t.path(x, y)
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if n.known {
			continue
		}
		for n.low < threshold {
			if next() == 1 {
				n.value = n.low
				n.known = true
				break
			}
			n.low++
		}
	}
	leaf := path[0]
	return leaf.known && leaf.value <= threshold
}

// Reset clears accumulated low/known state for a new layer's traversal,
// keeping true/discovered values from prior layers (tag trees are
// progressive across layers per Annex B.10.2: once known, a value stays
// known).
func (t *TagTree) Reset() {
	for l := range t.nodes {
		for i := range t.nodes[l] {
			t.nodes[l][i].low = 0
		}
	}
}

// TileDecoder decodes a single tile against a types.CodingParams /
// types.TCP pair, per spec.md §4.4.
type TileDecoder struct {
	Params  *types.CodingParams
	tileIdx int
	tcp     *types.TCP
	tile    *Tile
	htj2k   bool // True if using High-Throughput mode
}

// NewTileDecoder creates a new tile decoder bound to a codestream's
// coding parameters.
func NewTileDecoder(params *types.CodingParams) *TileDecoder {
	return &TileDecoder{Params: params}
}

// SetHTJ2K sets whether this decoder uses High-Throughput mode.
func (d *TileDecoder) SetHTJ2K(htj2k bool) {
	d.htj2k = htj2k
}

// Tile returns the current tile being decoded.
func (d *TileDecoder) Tile() *Tile {
	return d.tile
}

// InitTile initializes a tile for decoding.
func (d *TileDecoder) InitTile(tileIndex int) {
	p := d.Params
	d.tileIdx = tileIndex
	d.tcp = &p.TCPs[tileIndex]

	u := tileIndex % p.Grid.NumTilesX(p.Image.Bounds)
	v := tileIndex / p.Grid.NumTilesX(p.Image.Bounds)
	bounds := p.Grid.TileBounds(u, v, p.Image.Bounds)

	d.tile = &Tile{
		Index:      tileIndex,
		X0:         bounds.X0,
		Y0:         bounds.Y0,
		X1:         bounds.X1,
		Y1:         bounds.Y1,
		Components: make([]*TileComponent, len(p.Image.Components)),
	}

	for c := range p.Image.Components {
		comp := p.Image.Components[c]
		cb := comp.Bounds(bounds)
		tccp := d.tcp.TCCPs[c]

		tc := &TileComponent{Index: c, X0: cb.X0, Y0: cb.Y0, X1: cb.X1, Y1: cb.Y1, Precision: comp.Precision}
		tc.Data = make([]int32, cb.Width()*cb.Height())

		numRes := tccp.NumResolutions
		tc.Resolutions = make([]*Resolution, numRes)
		for r := 0; r < numRes; r++ {
			d.initResolution(tc, r, tccp)
		}
		d.tile.Components[c] = tc
	}
}

// initResolution initializes a resolution level for component tccp.
func (d *TileDecoder) initResolution(tc *TileComponent, resLevel int, tccp types.TCCP) {
	numDecomp := tccp.NumResolutions - 1
	scale := 1 << (numDecomp - resLevel)
	res := &Resolution{
		Level: resLevel,
		X0:    types.CeilDiv(tc.X0, scale),
		Y0:    types.CeilDiv(tc.Y0, scale),
		X1:    types.CeilDiv(tc.X1, scale),
		Y1:    types.CeilDiv(tc.Y1, scale),
	}

	if resLevel == 0 {
		res.NumBands = 1
		res.Bands = []*Band{d.initBand(res, entropy.BandLL, tccp, tc.Precision)}
	} else {
		res.NumBands = 3
		res.Bands = []*Band{
			d.initBand(res, entropy.BandHL, tccp, tc.Precision),
			d.initBand(res, entropy.BandLH, tccp, tc.Precision),
			d.initBand(res, entropy.BandHH, tccp, tc.Precision),
		}
	}
	initPrecincts(res, tccp)
	tc.Resolutions[resLevel] = res
}

// initBand initializes a band. MaxBitPlanes, each code-block's theoretical
// bit-plane ceiling, is approximated as precision+GuardBits-1 uniformly
// across subbands rather than the Annex E.1 per-subband dynamic-range
// formula derived from each band's quantization exponent — both sides
// compute it identically from tccp alone, which is all correctness of the
// ZeroBitPlanes/TotalBitPlanes split requires; only rate-distortion
// precision, not correctness, would benefit from the finer formula.
func (d *TileDecoder) initBand(res *Resolution, bandType int, tccp types.TCCP, precision int) *Band {
	band := &Band{Type: bandType}
	setBandBounds(band, res, bandType)

	cbWidth, cbHeight := tccp.CodeBlockWidth(), tccp.CodeBlockHeight()
	band.CodeBlocksX = types.CeilDiv(band.X1-band.X0, cbWidth)
	band.CodeBlocksY = types.CeilDiv(band.Y1-band.Y0, cbHeight)

	maxBP := precision + tccp.GuardBits - 1
	if maxBP < 1 {
		maxBP = 1
	}

	numCB := band.CodeBlocksX * band.CodeBlocksY
	band.CodeBlocks = make([]*CodeBlock, numCB)
	for i := 0; i < numCB; i++ {
		cbX := i % max(band.CodeBlocksX, 1)
		cbY := i / max(band.CodeBlocksX, 1)
		band.CodeBlocks[i] = &CodeBlock{
			Index:        i,
			X0:           band.X0 + cbX*cbWidth,
			Y0:           band.Y0 + cbY*cbHeight,
			X1:           min(band.X0+(cbX+1)*cbWidth, band.X1),
			Y1:           min(band.Y0+(cbY+1)*cbHeight, band.Y1),
			Lblock:       3,
			MaxBitPlanes: maxBP,
		}
	}
	return band
}

func setBandBounds(band *Band, res *Resolution, bandType int) {
	switch bandType {
	case entropy.BandLL:
		band.X0, band.Y0, band.X1, band.Y1 = res.X0, res.Y0, res.X1, res.Y1
	case entropy.BandHL:
		band.X0, band.Y0 = res.X0, res.Y0
		band.X1, band.Y1 = res.X1, (res.Y0+res.Y1)/2
	case entropy.BandLH:
		band.X0, band.Y0 = res.X0, res.Y0
		band.X1, band.Y1 = (res.X0+res.X1)/2, res.Y1
	case entropy.BandHH:
		band.X0, band.Y0 = (res.X0+res.X1)/2, (res.Y0+res.Y1)/2
		band.X1, band.Y1 = res.X1, res.Y1
	}
}

// initPrecincts partitions res's bands into precincts per tccp's signalled
// precinct size, so packets.go has a concrete precinct grid to address
// against for packet header construction and parsing. Each band's
// code-blocks are assigned to a precinct by intersecting the precinct's
// resolution-space rectangle against that band's own rectangle; for HH
// bands (whose origin is shifted relative to the resolution) this is an
// acceptable approximation of Annex B's band-local precinct halving when
// more than one precinct spans a resolution — the common single-precinct-
// per-resolution configuration this encoder targets is unaffected.
func initPrecincts(res *Resolution, tccp types.TCCP) {
	ps := tccp.PrecinctSizeAt(res.Level)
	pw, ph := ps.Width(), ps.Height()
	if pw <= 0 {
		pw = 1
	}
	if ph <= 0 {
		ph = 1
	}
	res.PrecinctsX = types.CeilDiv(res.X1-res.X0, pw)
	res.PrecinctsY = types.CeilDiv(res.Y1-res.Y0, ph)
	if res.PrecinctsX == 0 {
		res.PrecinctsX = 1
	}
	if res.PrecinctsY == 0 {
		res.PrecinctsY = 1
	}
	n := res.PrecinctsX * res.PrecinctsY
	res.Precincts = make([]*Precinct, n)
	for i := 0; i < n; i++ {
		px := i % res.PrecinctsX
		py := i / res.PrecinctsX
		prec := &Precinct{
			Index: i,
			X0:    res.X0 + px*pw,
			Y0:    res.Y0 + py*ph,
			X1:    min(res.X0+(px+1)*pw, res.X1),
			Y1:    min(res.Y0+(py+1)*ph, res.Y1),
		}
		prec.CodeBlocks = make([][]*CodeBlock, res.NumBands)
		prec.CBGridW = make([]int, res.NumBands)
		prec.CBGridH = make([]int, res.NumBands)
		prec.InclusionTree = make([]*TagTree, res.NumBands)
		prec.IMSBTree = make([]*TagTree, res.NumBands)
		res.Precincts[i] = prec
	}

	cbWidth, cbHeight := tccp.CodeBlockWidth(), tccp.CodeBlockHeight()
	for bi, band := range res.Bands {
		for _, prec := range res.Precincts {
			ix0, iy0 := max(prec.X0, band.X0), max(prec.Y0, band.Y0)
			ix1, iy1 := min(prec.X1, band.X1), min(prec.Y1, band.Y1)
			if ix1 <= ix0 || iy1 <= iy0 {
				continue
			}
			cbX0 := (ix0 - band.X0) / cbWidth
			cbY0 := (iy0 - band.Y0) / cbHeight
			cbX1 := types.CeilDiv(ix1-band.X0, cbWidth)
			cbY1 := types.CeilDiv(iy1-band.Y0, cbHeight)
			if cbX1 > band.CodeBlocksX {
				cbX1 = band.CodeBlocksX
			}
			if cbY1 > band.CodeBlocksY {
				cbY1 = band.CodeBlocksY
			}
			prec.CBGridW[bi] = cbX1 - cbX0
			prec.CBGridH[bi] = cbY1 - cbY0
			for y := cbY0; y < cbY1; y++ {
				for x := cbX0; x < cbX1; x++ {
					idx := y*band.CodeBlocksX + x
					if idx >= 0 && idx < len(band.CodeBlocks) {
						prec.CodeBlocks[bi] = append(prec.CodeBlocks[bi], band.CodeBlocks[idx])
					}
				}
			}
		}
	}
}

// DecodeCodeBlock decodes a single code-block.
func (d *TileDecoder) DecodeCodeBlock(cb *CodeBlock, bandType int) error {
	if len(cb.Data) == 0 {
		return nil
	}

	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	cb.TotalBitPlanes = cb.MaxBitPlanes - cb.ZeroBitPlanes
	if cb.TotalBitPlanes < 0 {
		cb.TotalBitPlanes = 0
	}

	if d.htj2k {
		htDec := entropy.GetHTDecoder(width, height)
		cb.Coefficients = htDec.Decode(cb.Data, cb.TotalBitPlanes, bandType)
		entropy.PutHTDecoder(htDec)
	} else {
		t1 := entropy.NewT1(width, height)
		cb.Coefficients = t1.Decode(cb.Data, cb.TotalBitPlanes, bandType)
	}

	return nil
}

// ApplyInverseDWT applies the inverse wavelet transform.
func (d *TileDecoder) ApplyInverseDWT(tc *TileComponent) {
	tccp := d.tcp.TCCPs[tc.Index]
	numLevels := tccp.NumResolutions - 1
	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if tccp.Wavelet == types.Wavelet53 {
		dwt.ReconstructMultiLevel53(tc.Data, width, height, numLevels)
	} else {
		tc.DataFloat = make([]float64, len(tc.Data))
		for i, v := range tc.Data {
			tc.DataFloat[i] = float64(v)
		}
		dwt.ReconstructMultiLevel97(tc.DataFloat, width, height, numLevels)
		for i, v := range tc.DataFloat {
			tc.Data[i] = int32(v + 0.5)
		}
	}
}

// TileEncoder encodes a single tile against a types.CodingParams pair.
type TileEncoder struct {
	Params  *types.CodingParams
	tileIdx int
	tcp     *types.TCP
	tile    *Tile
	htj2k   bool
}

// NewTileEncoder creates a new tile encoder.
func NewTileEncoder(params *types.CodingParams) *TileEncoder {
	return &TileEncoder{Params: params}
}

// SetHTJ2K sets whether this encoder uses High-Throughput mode.
func (e *TileEncoder) SetHTJ2K(htj2k bool) {
	e.htj2k = htj2k
}

// Tile returns the tile currently being encoded.
func (e *TileEncoder) Tile() *Tile { return e.tile }

// InitTile initializes a tile for encoding from already-DC-shifted and
// MCT-transformed component sample data.
func (e *TileEncoder) InitTile(tileIndex int, componentData [][]int32) {
	p := e.Params
	e.tileIdx = tileIndex
	e.tcp = &p.TCPs[tileIndex]

	u := tileIndex % p.Grid.NumTilesX(p.Image.Bounds)
	v := tileIndex / p.Grid.NumTilesX(p.Image.Bounds)
	bounds := p.Grid.TileBounds(u, v, p.Image.Bounds)

	e.tile = &Tile{
		Index:      tileIndex,
		X0:         bounds.X0,
		Y0:         bounds.Y0,
		X1:         bounds.X1,
		Y1:         bounds.Y1,
		Components: make([]*TileComponent, len(p.Image.Components)),
	}

	for c := range p.Image.Components {
		comp := p.Image.Components[c]
		cb := comp.Bounds(bounds)
		tccp := e.tcp.TCCPs[c]

		tc := &TileComponent{Index: c, X0: cb.X0, Y0: cb.Y0, X1: cb.X1, Y1: cb.Y1, Data: componentData[c], Precision: comp.Precision}

		numRes := tccp.NumResolutions
		tc.Resolutions = make([]*Resolution, numRes)
		for r := 0; r < numRes; r++ {
			d := &TileDecoder{Params: p, tileIdx: tileIndex, tcp: e.tcp}
			d.initResolution(tc, r, tccp)
		}
		e.tile.Components[c] = tc
	}
}

// ApplyForwardDWT applies the forward wavelet transform.
func (e *TileEncoder) ApplyForwardDWT(tc *TileComponent) {
	tccp := e.tcp.TCCPs[tc.Index]
	numLevels := tccp.NumResolutions - 1
	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if tccp.Wavelet == types.Wavelet53 {
		dwt.DecomposeMultiLevel53(tc.Data, width, height, numLevels)
	} else {
		tc.DataFloat = make([]float64, len(tc.Data))
		for i, v := range tc.Data {
			tc.DataFloat[i] = float64(v)
		}
		dwt.DecomposeMultiLevel97(tc.DataFloat, width, height, numLevels)
		for i, v := range tc.DataFloat {
			if v >= 0 {
				tc.Data[i] = int32(v + 0.5)
			} else {
				tc.Data[i] = int32(v - 0.5)
			}
		}
	}
}

// ExtractCodeBlockSamples reads cb's subband-coefficient window out of
// tc.Data, the addressing step the rest of a band's code-blocks share: tc
// holds the whole tile-component's DWT output flattened row-major, and a
// code-block's bounds are taken as offsets from the tile-component's origin
// (tc.X0, tc.Y0); band is not consulted.
func ExtractCodeBlockSamples(tc *TileComponent, band *Band, cb *CodeBlock) []int32 {
	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0
	out := make([]int32, width*height)
	tcWidth := tc.X1 - tc.X0
	for y := 0; y < height; y++ {
		srcY := (cb.Y0 - tc.Y0) + y
		srcRow := srcY*tcWidth + (cb.X0 - tc.X0)
		copy(out[y*width:(y+1)*width], tc.Data[srcRow:srcRow+width])
	}
	return out
}

// EncodeCodeBlock encodes a single code-block and records the bit-plane
// accounting (TotalBitPlanes/ZeroBitPlanes) that packets.go's Tier-2
// header codec and a later DecodeCodeBlock need.
func (e *TileEncoder) EncodeCodeBlock(cb *CodeBlock, data []int32, bandType int) {
	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	var numBPS int
	if e.htj2k {
		htEnc := entropy.GetHTEncoder(width, height)
		htEnc.SetData(data)
		cb.Data = htEnc.Encode(bandType)
		numBPS = htEnc.NumBits()
		entropy.PutHTEncoder(htEnc)
	} else {
		t1 := entropy.NewT1(width, height)
		t1.SetData(data)
		cb.Data = t1.Encode(bandType)
		numBPS = t1.NumBPS()
	}
	cb.TotalBitPlanes = numBPS
	cb.ZeroBitPlanes = cb.MaxBitPlanes - numBPS
	if cb.ZeroBitPlanes < 0 {
		cb.ZeroBitPlanes = 0
	}
}

// PlaceCodeBlockSamples writes a decoded code-block's coefficients back
// into tc.Data at the block's window, the inverse of
// ExtractCodeBlockSamples.
func PlaceCodeBlockSamples(tc *TileComponent, cb *CodeBlock) {
	if len(cb.Coefficients) == 0 {
		return
	}
	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0
	tcWidth := tc.X1 - tc.X0
	for y := 0; y < height; y++ {
		srcY := (cb.Y0 - tc.Y0) + y
		dstRow := srcY*tcWidth + (cb.X0 - tc.X0)
		copy(tc.Data[dstRow:dstRow+width], cb.Coefficients[y*width:(y+1)*width])
	}
}

// Helper functions

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
