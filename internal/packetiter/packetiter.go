// Package packetiter implements PacketIter from spec.md §4.3: given a
// tile's TCP, the image, an unreduced decode window, and a POC index, it
// produces the next (component, resolution, precinct, layer) quadruple in
// one of the five standard progression orders, or signals exhaustion.
//
// Grounded on internal/tcd/t2.go's PacketIterator (per-component/resolution
// precinct-count loop nest), generalized to the projected coordinate system
// for the position-driven orders (RPCL/PCRL/CPRL) and to multi-POC
// iteration with per-layer dedup, both absent from the teacher's version.
package packetiter

import (
	"fmt"

	"github.com/jph2k/coreflow/internal/errs"
	"github.com/jph2k/coreflow/internal/types"
)

// Packet identifies one (component, resolution, precinct, layer) quadruple.
type Packet struct {
	Component  int
	Resolution int
	Precinct   int
	Layer      int
}

// ResInfo describes one component's one resolution level: the precinct
// grid dimensions and the precinct pixel size projected onto canvas space,
// per spec.md §4.3 "Projected coordinate system".
type ResInfo struct {
	GridW, GridH   int // number of precincts across/down at this resolution
	ProjW, ProjH   int // precinct size in canvas-space pixels, dx*2^(ppx+R-1-r)
	GridX0, GridY0 int // precinct-grid origin offset
}

// Component describes one image component's per-resolution precinct grids
// plus its subsampling, as required to compute the projected coordinate
// system.
type Component struct {
	Dx, Dy int
	Res    []ResInfo // len == NumResolutions for this component/tile
}

// Iter is one PacketIter instance, scoped to a single tile and a single POC
// entry (or the implicit whole-range entry when the TCP carries no POC).
type Iter struct {
	comps     []Component
	numLayers int
	order     types.ProgressionOrder

	resStart, resEnd   int
	compStart, compEnd int
	layStart, layEnd   int

	window types.Rect // unreduced decode window in canvas space; zero Rect means "whole tile"
	tile   types.Rect

	// cursor state for LRCP/RLCP/CPRL: meaning depends on order.
	l, r, c, p int

	// cursor state for RPCL/PCRL's position-driven sweep.
	posX, posY, posIdx, posRes int
	strideX, strideY           int

	done bool

	// included records the (c,r,p) triples this Iter has emitted; it is not
	// shared with other Iters.
	included map[[3]int]bool
	dedup    bool
}

// New builds an Iter for one POC entry (or the whole-tile default range
// when poc == nil). dedup should be true whenever more than one POC/tile-part
// can touch this tile, per spec.md §4.3 "Per-layer dedup".
func New(comps []Component, numLayers int, poc *types.POC, window, tile types.Rect, dedup bool) (*Iter, error) {
	it := &Iter{comps: comps, numLayers: numLayers, window: window, tile: tile, dedup: dedup}
	if dedup {
		it.included = make(map[[3]int]bool)
	}
	numRes := 0
	for _, cp := range comps {
		if len(cp.Res) > numRes {
			numRes = len(cp.Res)
		}
	}
	it.order = types.LRCP
	it.resEnd, it.compEnd, it.layEnd = numRes, len(comps), numLayers
	if poc != nil {
		it.order = poc.Progression
		it.resStart, it.resEnd = poc.ResStart, poc.ResEnd
		it.compStart, it.compEnd = poc.CompStart, poc.CompEnd
		it.layEnd = poc.LayEnd
	}
	if it.resEnd <= it.resStart || it.compEnd <= it.compStart || it.layEnd <= it.layStart {
		return nil, fmt.Errorf("POC range empty: %w", errs.ErrCorruptCodeStream)
	}
	it.l, it.r, it.c, it.p = it.layStart, it.resStart, it.compStart, 0
	return it, nil
}

// Next returns the next (c,r,p,l) quadruple, skipping precincts outside the
// decode window (in every progression order). In dedup mode it also skips a
// layer-0 packet whose (c,r,p) this Iter has already emitted; packets of
// later layers are not checked.
// ok is false once the iterator is exhausted.
func (it *Iter) Next() (Packet, bool) {
	for {
		pkt, ok := it.step()
		if !ok {
			return Packet{}, false
		}
		if it.dedup {
			key := [3]int{pkt.Component, pkt.Resolution, pkt.Precinct}
			if pkt.Layer == 0 {
				if it.included[key] {
					continue
				}
			}
			it.included[key] = true
		}
		if !it.inWindow(pkt) {
			continue
		}
		return pkt, true
	}
}

func (it *Iter) inWindow(pkt Packet) bool {
	if it.window.Empty() {
		return true
	}
	cp := it.comps[pkt.Component]
	if pkt.Resolution >= len(cp.Res) {
		return false
	}
	ri := cp.Res[pkt.Resolution]
	if ri.GridW == 0 {
		return false
	}
	px := pkt.Precinct % ri.GridW
	py := pkt.Precinct / ri.GridW
	prect := types.Rect{
		X0: it.tile.X0 + px*ri.ProjW,
		Y0: it.tile.Y0 + py*ri.ProjH,
		X1: it.tile.X0 + (px+1)*ri.ProjW,
		Y1: it.tile.Y0 + (py+1)*ri.ProjH,
	}
	return !prect.Intersect(it.window).Empty()
}

// precinctCount returns the total number of precincts for (component,
// resolution), or 0 if that resolution is skipped (empty grid, per
// spec.md §4.3 "resolution is skipped silently").
func (it *Iter) precinctCount(c, r int) int {
	if c < 0 || c >= len(it.comps) || r < 0 || r >= len(it.comps[c].Res) {
		return 0
	}
	ri := it.comps[c].Res[r]
	return ri.GridW * ri.GridH
}

func (it *Iter) step() (Packet, bool) {
	if it.done {
		return Packet{}, false
	}
	switch it.order {
	case types.LRCP:
		return it.stepLRCP()
	case types.RLCP:
		return it.stepRLCP()
	case types.CPRL:
		return it.stepCPRL()
	case types.RPCL, types.PCRL:
		return it.stepPositionDriven()
	default:
		it.done = true
		return Packet{}, false
	}
}

// stepLRCP walks layer outermost, then resolution, component, precinct.
func (it *Iter) stepLRCP() (Packet, bool) {
	for it.l < it.layEnd {
		for it.r < it.resEnd {
			for it.c < it.compEnd {
				n := it.precinctCount(it.c, it.r)
				if it.p < n {
					pkt := Packet{Component: it.c, Resolution: it.r, Precinct: it.p, Layer: it.l}
					it.p++
					return pkt, true
				}
				it.p = 0
				it.c++
			}
			it.c = it.compStart
			it.r++
		}
		it.r = it.resStart
		it.l++
	}
	it.done = true
	return Packet{}, false
}

// stepRLCP walks resolution outermost, then layer, component, precinct.
func (it *Iter) stepRLCP() (Packet, bool) {
	for it.r < it.resEnd {
		for it.l < it.layEnd {
			for it.c < it.compEnd {
				n := it.precinctCount(it.c, it.r)
				if it.p < n {
					pkt := Packet{Component: it.c, Resolution: it.r, Precinct: it.p, Layer: it.l}
					it.p++
					return pkt, true
				}
				it.p = 0
				it.c++
			}
			it.c = it.compStart
			it.l++
		}
		it.l = it.layStart
		it.r++
	}
	it.done = true
	return Packet{}, false
}

// stepCPRL walks component outermost, then resolution, then precinct (by
// projected position within the component), then layer innermost.
func (it *Iter) stepCPRL() (Packet, bool) {
	for it.c < it.compEnd {
		for it.r < it.resEnd {
			n := it.precinctCount(it.c, it.r)
			for it.p < n {
				for it.l < it.layEnd {
					pkt := Packet{Component: it.c, Resolution: it.r, Precinct: it.p, Layer: it.l}
					it.l++
					return pkt, true
				}
				it.l = it.layStart
				it.p++
				n = it.precinctCount(it.c, it.r)
			}
			it.p = 0
			it.r++
		}
		it.r = it.resStart
		it.c++
	}
	it.done = true
	return Packet{}, false
}

// stepPositionDriven implements RPCL and PCRL: an (x,y) raster sweep over
// the projected canvas-space grid, innermost loop over (resolution,
// component, layer) at that position, driven by the gcd stride of every
// component's projected precinct size, per spec.md §4.3. RPCL and PCRL
// differ only in whether resolution or component is the outer of the two
// inner loops; both share this same position walk and both emit every
// layer for a selected precinct before advancing.
func (it *Iter) stepPositionDriven() (Packet, bool) {
	if it.strideX == 0 && it.strideY == 0 {
		it.strideX, it.strideY = it.projectedStride()
		it.posX, it.posY = it.tile.X0, it.tile.Y0
		it.posRes, it.posIdx, it.l = it.resStart, it.compStart, it.layStart
	}
	if it.strideX <= 0 || it.strideY <= 0 {
		it.done = true
		return Packet{}, false
	}
	for it.posY < it.tile.Y1 {
		for it.posX < it.tile.X1 {
			for it.posRes < it.resEnd {
				for it.posIdx < it.compEnd {
					sel, ri := it.selectedAt(it.posIdx, it.posRes, it.posX, it.posY)
					if sel {
						for it.l < it.layEnd {
							px, py := ri.gridPos(it.posX, it.posY)
							pkt := Packet{Component: it.posIdx, Resolution: it.posRes, Precinct: py*ri.GridW + px, Layer: it.l}
							it.l++
							return pkt, true
						}
					}
					it.l = it.layStart
					it.posIdx++
				}
				it.posIdx = it.compStart
				it.posRes++
			}
			it.posRes = it.resStart
			it.posX += it.strideX
		}
		it.posX = it.tile.X0
		it.posY += it.strideY
	}
	it.done = true
	return Packet{}, false
}

// gridPos converts a projected canvas (x,y) into this resolution's precinct
// grid coordinates, per spec.md §4.3.
func (ri ResInfo) gridPos(x, y int) (int, int) {
	px := x/ri.ProjW - ri.GridX0
	py := y/ri.ProjH - ri.GridY0
	return px, py
}

// selectedAt reports whether component idx at resolution r has a precinct
// selected at canvas position (x,y): x is a multiple of the projected
// precinct width (or sits on the tile's left edge) and likewise for y.
func (it *Iter) selectedAt(idx, r, x, y int) (bool, ResInfo) {
	if idx >= len(it.comps) || r >= len(it.comps[idx].Res) {
		return false, ResInfo{}
	}
	ri := it.comps[idx].Res[r]
	if ri.GridW == 0 || ri.ProjW == 0 || ri.ProjH == 0 {
		return false, ResInfo{}
	}
	xOK := x%ri.ProjW == 0 || x == it.tile.X0
	yOK := y%ri.ProjH == 0 || y == it.tile.Y0
	if !xOK || !yOK {
		return false, ResInfo{}
	}
	px, py := ri.gridPos(x, y)
	if px < 0 || px >= ri.GridW || py < 0 || py >= ri.GridH {
		return false, ResInfo{}
	}
	return true, ri
}

// projectedStride returns the gcd of every (component,resolution) pair's
// projected precinct dimensions in the active range, the step the (x,y)
// raster sweep advances by.
func (it *Iter) projectedStride() (int, int) {
	sx, sy := 0, 0
	for c := it.compStart; c < it.compEnd && c < len(it.comps); c++ {
		for r := it.resStart; r < it.resEnd && r < len(it.comps[c].Res); r++ {
			ri := it.comps[c].Res[r]
			if ri.ProjW <= 0 || ri.ProjH <= 0 {
				continue
			}
			sx = gcd(sx, ri.ProjW)
			sy = gcd(sy, ri.ProjH)
		}
	}
	return sx, sy
}

func gcd(a, b int) int {
	if a == 0 {
		return b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
