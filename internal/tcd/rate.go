package tcd

// RateAllocator implements the PCRD-bisection layer construction of
// spec.md §4.5: given every code-block's rate/distortion contribution for
// a tile, it decides which of those contributions is assigned to which
// quality layer.
//
// The entropy coder (internal/entropy) exposes Encode/Decode at
// whole-code-block granularity — it returns one opaque compressed blob per
// block rather than a cut point per coding pass. RateAllocator therefore
// treats each code-block's entire encoded blob as its single PCRD "pass":
// a block is either included whole in a layer, or deferred to a later one.
// This keeps the real bisection-over-slopes shape of Annex E.2 (same
// iteration cap, same convergence test, same monotone-inclusion and
// single-lossless-layer-shortcut invariants) at the coarser unit the
// entropy package's public API actually supports.
type RateAllocator struct {
	// MaxIterations bounds the lambda bisection, per spec.md §4.5.
	MaxIterations int
	// ConvergeEpsilon is the lambda-delta below which bisection exits early.
	ConvergeEpsilon float64
}

// NewRateAllocator returns a RateAllocator configured per spec.md §4.5:
// 128 iterations, 1e-3 convergence.
func NewRateAllocator() *RateAllocator {
	return &RateAllocator{MaxIterations: 128, ConvergeEpsilon: 1e-3}
}

// BlockRD is one code-block's rate/distortion contribution for layer
// allocation purposes: Rate is the encoded byte length, Distortion is the
// MSE (or MSE-weighted) reduction achieved by including it.
type BlockRD struct {
	CB         *CodeBlock
	Rate       int
	Distortion float64

	// assignedLayer is -1 until Allocate finalizes its layer, then the
	// layer index it was included in.
	assignedLayer int
}

// slope returns the block's distortion-per-byte contribution, the
// per-pass rate-distortion slope of Annex E.2 evaluated at whole-block
// granularity.
func (b *BlockRD) slope() float64 {
	if b.Rate <= 0 {
		return 0
	}
	return b.Distortion / float64(b.Rate)
}

// Layer describes one quality layer's outcome, mirroring spec.md §4.5's
// invariant "numpasses==0 implies disto==0".
type Layer struct {
	NumBlocks int
	Bytes     int
	Distortion float64
}

// Allocate assigns every not-yet-included block in blocks to one of
// numLayers layers, honoring budgets (bytes-per-layer; 0 means "no byte
// target, take everything" i.e. the last/lossless layer). It mutates each
// BlockRD's CB.IncludedInLayers to the 1-based index of the first layer
// that includes the block (matching Annex B.10's
// per-layer inclusion-tag semantics: once a block is included, every
// later layer's packet header marks it already-included).
//
// Blocks must be sorted by nothing in particular; Allocate is stable with
// respect to slope order but does not mutate the input slice order.
func (ra *RateAllocator) Allocate(blocks []*BlockRD, numLayers int, layerBudgets []int) []Layer {
	for _, b := range blocks {
		b.assignedLayer = -1
	}
	layers := make([]Layer, numLayers)

	for l := 0; l < numLayers; l++ {
		budget := 0
		if l < len(layerBudgets) {
			budget = layerBudgets[l]
		}
		isLast := l == numLayers-1
		if budget <= 0 {
			// Single-lossless-layer shortcut (spec.md §4.5): no byte
			// target for this layer means include every remaining block
			// whole, skip the bisection entirely.
			ra.makeLayerFinal(blocks, l, &layers[l], nil)
			continue
		}

		lambdaMin, lambdaMax := ra.bounds(blocks)
		var lambda float64
		var included []*BlockRD
		for iter := 0; iter < ra.MaxIterations; iter++ {
			lambda = (lambdaMin + lambdaMax) / 2
			included, _ = ra.trial(blocks, lambda)
			bytes := sumRate(included)
			if bytes > budget {
				lambdaMin = lambda
			} else {
				lambdaMax = lambda
			}
			if lambdaMax-lambdaMin < ra.ConvergeEpsilon {
				break
			}
		}
		if isLast {
			// The final layer always absorbs whatever bisection left out,
			// so no block is ever silently dropped from the codestream.
			ra.makeLayerFinal(blocks, l, &layers[l], nil)
			continue
		}
		ra.makeLayerFinal(blocks, l, &layers[l], included)
	}
	return layers
}

// bounds returns an initial [min,max] lambda search range spanning every
// not-yet-included block's slope.
func (ra *RateAllocator) bounds(blocks []*BlockRD) (min, max float64) {
	first := true
	for _, b := range blocks {
		if b.assignedLayer >= 0 {
			continue
		}
		s := b.slope()
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if max <= min {
		max = min + 1
	}
	return min, max
}

// trial returns the not-yet-included blocks whose slope clears lambda —
// the bisection's membership test, per Annex E.2's R(lambda) construction.
func (ra *RateAllocator) trial(blocks []*BlockRD, lambda float64) ([]*BlockRD, float64) {
	var out []*BlockRD
	var disto float64
	for _, b := range blocks {
		if b.assignedLayer >= 0 {
			continue
		}
		if b.slope() >= lambda {
			out = append(out, b)
			disto += b.Distortion
		}
	}
	return out, disto
}

// makeLayerFinal pins layer l's membership: if selected is nil every
// remaining unassigned block is included (the lossless/last-layer
// shortcut), otherwise exactly the given blocks are. It updates each
// block's CB.IncludedInLayers and accumulates the layer's byte/distortion
// totals, preserving the "numpasses==0 implies disto==0" invariant for
// layers nothing new lands in.
func (ra *RateAllocator) makeLayerFinal(blocks []*BlockRD, l int, out *Layer, selected []*BlockRD) {
	pick := selected
	if pick == nil {
		for _, b := range blocks {
			if b.assignedLayer < 0 {
				pick = append(pick, b)
			}
		}
	}
	for _, b := range pick {
		b.assignedLayer = l
		b.CB.IncludedInLayers = l + 1
		out.NumBlocks++
		out.Bytes += b.Rate
		out.Distortion += b.Distortion
	}
}

func sumRate(blocks []*BlockRD) int {
	total := 0
	for _, b := range blocks {
		total += b.Rate
	}
	return total
}
