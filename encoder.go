package jpeg2000

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/jph2k/coreflow/internal/box"
	"github.com/jph2k/coreflow/internal/corestream"
	"github.com/jph2k/coreflow/internal/mct"
	"github.com/jph2k/coreflow/internal/stream"
	"github.com/jph2k/coreflow/internal/tcd"
	"github.com/jph2k/coreflow/internal/types"
)

// encoder handles JPEG 2000 encoding.
type encoder struct {
	w       io.Writer
	img     image.Image
	options *Options

	// Image parameters
	width         int
	height        int
	numComponents int
	precision     int
	signed        bool

	// Component data
	componentData [][]int32
}

// newEncoder creates a new encoder.
func newEncoder(w io.Writer, img image.Image, options *Options) *encoder {
	bounds := img.Bounds()
	return &encoder{
		w:       w,
		img:     img,
		options: options,
		width:   bounds.Dx(),
		height:  bounds.Dy(),
	}
}

// encode encodes the image.
func (e *encoder) encode() error {
	// Extract image data
	if err := e.extractImageData(); err != nil {
		return fmt.Errorf("extracting image data: %w", err)
	}

	// Apply preprocessing
	if err := e.preprocess(); err != nil {
		return fmt.Errorf("preprocessing: %w", err)
	}

	// Generate codestream
	cs, err := e.generateCodestream()
	if err != nil {
		return fmt.Errorf("generating codestream: %w", err)
	}

	// Write output based on format
	switch e.options.Format {
	case FormatJP2:
		return e.writeJP2(cs)
	case FormatJ2K:
		_, err := e.w.Write(cs)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", e.options.Format)
	}
}

// extractImageData extracts pixel data from the source image.
func (e *encoder) extractImageData() error {
	bounds := e.img.Bounds()

	// Determine image properties based on type
	switch img := e.img.(type) {
	case *image.Gray:
		e.numComponents = 1
		e.precision = 8
		e.componentData = make([][]int32, 1)
		e.componentData[0] = make([]int32, e.width*e.height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				e.componentData[0][idx] = int32(img.GrayAt(x, y).Y)
			}
		}

	case *image.Gray16:
		e.numComponents = 1
		e.precision = 16
		e.componentData = make([][]int32, 1)
		e.componentData[0] = make([]int32, e.width*e.height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				e.componentData[0][idx] = int32(img.Gray16At(x, y).Y)
			}
		}

	case *image.RGBA:
		e.numComponents = 3 // We'll ignore alpha for now
		e.precision = 8
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.RGBAAt(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
			}
		}

	case *image.RGBA64:
		e.numComponents = 3
		e.precision = 16
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.RGBA64At(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
			}
		}

	case *image.NRGBA:
		e.numComponents = 4
		e.precision = 8
		e.componentData = make([][]int32, 4)
		for c := 0; c < 4; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.NRGBAAt(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
				e.componentData[3][idx] = int32(c.A)
			}
		}

	case *image.NRGBA64:
		e.numComponents = 4
		e.precision = 16
		e.componentData = make([][]int32, 4)
		for c := 0; c < 4; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.NRGBA64At(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
				e.componentData[3][idx] = int32(c.A)
			}
		}

	default:
		// Generic fallback - convert to RGBA
		e.numComponents = 3
		e.precision = 8
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				r, g, b, _ := e.img.At(x, y).RGBA()
				e.componentData[0][idx] = int32(r >> 8)
				e.componentData[1][idx] = int32(g >> 8)
				e.componentData[2][idx] = int32(b >> 8)
			}
		}
	}

	// Apply precision override if specified
	if e.options.Precision > 0 && e.options.Precision <= 16 && e.options.Precision != e.precision {
		targetPrecision := e.options.Precision
		srcMax := int32((1 << e.precision) - 1)
		dstMax := int32((1 << targetPrecision) - 1)

		for c := 0; c < e.numComponents; c++ {
			for i := range e.componentData[c] {
				// Scale from source precision to target precision
				e.componentData[c][i] = e.componentData[c][i] * dstMax / srcMax
			}
		}
		e.precision = targetPrecision
	}

	return nil
}

// preprocess applies the whole-image transforms that precede tiling: DC
// level shift and the multiple-component transform. The wavelet transform
// and quantization move per-tile, into tcd.TileProcessor.CompressTile.
func (e *encoder) preprocess() error {
	for c := 0; c < e.numComponents; c++ {
		mct.DCLevelShiftForward(e.componentData[c], e.precision)
	}

	if e.numComponents >= 3 {
		if e.options.Lossless {
			mct.ForwardRCT(e.componentData[0], e.componentData[1], e.componentData[2])
		} else {
			compFloat := make([][]float64, 3)
			for c := 0; c < 3; c++ {
				compFloat[c] = make([]float64, len(e.componentData[c]))
				for i, v := range e.componentData[c] {
					compFloat[c][i] = float64(v)
				}
			}
			mct.ForwardICT(compFloat[0], compFloat[1], compFloat[2])
			for c := 0; c < 3; c++ {
				for i, v := range compFloat[c] {
					if v >= 0 {
						e.componentData[c][i] = int32(v + 0.5)
					} else {
						e.componentData[c][i] = int32(v - 0.5)
					}
				}
			}
		}
	}

	return nil
}

// buildCodingParams translates Options plus the already-extracted image
// properties into the shared internal/types coding-parameter model
// internal/markers, internal/corestream, and internal/tcd all consume,
// replacing what generateSIZ/generateCOD/generateQCD once hand-assembled
// directly into marker bytes.
func (e *encoder) buildCodingParams() *types.CodingParams {
	x0, y0 := e.options.ImageOffset.X, e.options.ImageOffset.Y

	components := make([]types.Component, e.numComponents)
	for c := range components {
		components[c] = types.Component{Dx: 1, Dy: 1, Precision: e.precision, Signed: e.signed}
	}

	tileWidth, tileHeight := e.width, e.height
	if e.options.TileSize.X > 0 {
		tileWidth = e.options.TileSize.X
	}
	if e.options.TileSize.Y > 0 {
		tileHeight = e.options.TileSize.Y
	}

	p := &types.CodingParams{
		Image: types.Image{
			Bounds:     types.Rect{X0: x0, Y0: y0, X1: x0 + e.width, Y1: y0 + e.height},
			Components: components,
		},
		Grid: types.TileGrid{
			TX0: e.options.TileOffset.X,
			TY0: e.options.TileOffset.Y,
			TW:  tileWidth,
			TH:  tileHeight,
		},
	}

	rep := e.buildTCCP()
	tcp := e.buildTCP(rep)
	numTiles := p.NumTiles()
	if numTiles <= 0 {
		numTiles = 1
	}
	p.TCPs = make([]types.TCP, numTiles)
	for i := range p.TCPs {
		p.TCPs[i] = tcp.Clone()
	}
	return p
}

// buildTCCP builds the representative (component 0) coding style every
// component shares, mirroring generateCOD/generateQCD's all-components-
// identical assumption.
func (e *encoder) buildTCCP() types.TCCP {
	numRes := e.options.NumResolutions
	if numRes <= 0 {
		numRes = 6
	}

	// cbWidth/cbHeight are log2 block dimensions (6 == 64x64, matching
	// Options.CodeBlockSize's documented units); TCCP stores the marker
	// exponent, which is this value minus 2.
	cbWidth := e.options.CodeBlockSize.X
	cbHeight := e.options.CodeBlockSize.Y
	cbStyle := uint8(0)
	if e.options.HighThroughput {
		htWidth := e.options.HTBlockWidth
		htHeight := e.options.HTBlockHeight
		if htWidth == 0 {
			htWidth = 128
		}
		if htHeight == 0 {
			htHeight = 128
		}
		switch htWidth {
		case 32:
			cbWidth = 5
		default:
			cbWidth = 7
		}
		switch htHeight {
		case 32:
			cbHeight = 5
		default:
			cbHeight = 7
		}
		cbStyle |= 0x40 // code-block style HT flag, per spec.md §4.2
	} else {
		if cbWidth <= 0 {
			cbWidth = 6
		}
		if cbHeight <= 0 {
			cbHeight = 6
		}
	}

	wavelet := types.Wavelet97
	if e.options.Lossless {
		wavelet = types.Wavelet53
	}

	quantStyle := types.QuantScalarDerived
	guardBits := 1
	var steps []types.StepSize
	numBands := 3*(numRes-1) + 1
	if e.options.Lossless {
		quantStyle = types.QuantNone
		steps = make([]types.StepSize, numBands)
		for i := range steps {
			steps[i] = types.StepSize{Exponent: uint8(e.precision + i/3)}
		}
	} else {
		steps = []types.StepSize{{Exponent: uint8(e.precision + (numRes - 1))}}
	}

	return types.TCCP{
		CodeBlockWidthExp:  uint8(cbWidth - 2),
		CodeBlockHeightExp: uint8(cbHeight - 2),
		CodeBlockStyle:     cbStyle,
		Wavelet:            wavelet,
		NumResolutions:     numRes,
		QuantStyle:         quantStyle,
		GuardBits:          guardBits,
		StepSizes:          steps,
		DCLevelShift:       1 << (e.precision - 1),
	}
}

func (e *encoder) buildTCP(rep types.TCCP) types.TCP {
	numLayers := e.options.NumLayers
	if numLayers <= 0 {
		numLayers = 1
	}

	tccps := make([]types.TCCP, e.numComponents)
	for i := range tccps {
		tccps[i] = rep
	}

	rates := make([]float64, numLayers)
	if !e.options.Lossless {
		// Final layer always keeps everything (see internal/tcd/rate.go's
		// RateAllocator.Allocate), so only earlier layers get a byte-per-
		// sample target derived from Quality.
		q := e.options.Quality
		if q <= 0 {
			q = 75
		}
		target := float64(q) / 800.0
		for i := 0; i < numLayers-1; i++ {
			rates[i] = target * float64(i+1) / float64(numLayers)
		}
	}

	return types.TCP{
		Progression: e.options.ProgressionOrder,
		NumLayers:   numLayers,
		TCCPs:       tccps,
		MCT:         mctMode(e.numComponents, e.options.Lossless),
		Rates:       rates,
		EnableSOP:   e.options.EnableSOP,
		EnableEPH:   e.options.EnableEPH,
	}
}

func mctMode(numComponents int, lossless bool) types.MCTMode {
	if numComponents < 3 {
		return types.MCTOff
	}
	return types.MCTFixed
}

// extractTileComponentData windows e.componentData (full-canvas,
// DC-shifted and MCT'd) down to one tile's per-component sample slices,
// the shape tcd.TileEncoder.InitTile expects.
func (e *encoder) extractTileComponentData(bounds types.Rect) [][]int32 {
	out := make([][]int32, e.numComponents)
	w := bounds.Width()
	h := bounds.Height()
	for c := 0; c < e.numComponents; c++ {
		data := make([]int32, w*h)
		for y := 0; y < h; y++ {
			srcY := bounds.Y0 + y
			if srcY < 0 || srcY >= e.height {
				continue
			}
			for x := 0; x < w; x++ {
				srcX := bounds.X0 + x
				if srcX < 0 || srcX >= e.width {
					continue
				}
				data[y*w+x] = e.componentData[c][srcY*e.width+srcX]
			}
		}
		out[c] = data
	}
	return out
}

// generateCodestream drives internal/corestream's CodeStream (main header)
// and internal/tcd's TileProcessor/RateAllocator (per-tile DWT, Tier-1,
// PCRD-bisection rate allocation, and progression-ordered Tier-2 packet
// emission through internal/markers and internal/packetiter) to produce
// one complete codestream.
func (e *encoder) generateCodestream() ([]byte, error) {
	params := e.buildCodingParams()

	s := stream.NewMemStream()
	cs := corestream.NewCodeStream(params)
	cs.SetHT(e.options.HighThroughput)
	cs.SetComment(e.options.Comment)

	if err := cs.StartEncode(s); err != nil {
		return nil, fmt.Errorf("writing main header: %w", err)
	}

	proc := tcd.NewTileProcessor(params)
	proc.HTJ2K = e.options.HighThroughput
	if !e.options.Lossless {
		proc.Quality = e.options.Quality
	}
	ra := tcd.NewRateAllocator()

	numTilesX := params.Grid.NumTilesX(params.Image.Bounds)
	for tileIdx := range params.TCPs {
		u := tileIdx % numTilesX
		v := tileIdx / numTilesX
		bounds := params.Grid.TileBounds(u, v, params.Image.Bounds)
		tileData := e.extractTileComponentData(bounds)

		length, err := proc.CompressTile(s, tileIdx, tileData, ra)
		if err != nil {
			return nil, fmt.Errorf("encoding tile %d: %w", tileIdx, err)
		}
		cs.PushTileLength(tileIdx, length)
	}

	if err := cs.EndEncode(s); err != nil {
		return nil, fmt.Errorf("writing codestream trailer: %w", err)
	}
	return s.Bytes(), nil
}

// writeJP2 writes a JP2 file.
func (e *encoder) writeJP2(codestream []byte) error {
	boxWriter := box.NewWriter(e.w)

	// Write signature
	if err := boxWriter.WriteSignature(); err != nil {
		return err
	}

	// Write file type box
	ftypBox := box.CreateFileTypeBox()
	if err := boxWriter.WriteBox(ftypBox); err != nil {
		return err
	}

	// Determine colorspace from options or default based on components
	var colorspace uint32
	switch e.options.ColorSpace {
	case ColorSpaceBilevel:
		colorspace = box.CSBilevel1
	case ColorSpaceGray:
		colorspace = box.CSGray
	case ColorSpaceSRGB:
		colorspace = box.CSSRGB
	case ColorSpaceSYCC:
		colorspace = box.CSYCbCr1
	case ColorSpaceYCbCr2:
		colorspace = box.CSYCbCr2
	case ColorSpaceYCbCr3:
		colorspace = box.CSYCbCr3
	case ColorSpacePhotoYCC:
		colorspace = box.CSPhotoYCC
	case ColorSpaceCMY:
		colorspace = box.CSCMY
	case ColorSpaceCMYK:
		colorspace = box.CSCMYK
	case ColorSpaceYCCK:
		colorspace = box.CSYCCK
	case ColorSpaceCIELab:
		colorspace = box.CSCIELab
	case ColorSpaceCIEJab:
		colorspace = box.CSCIEJab
	case ColorSpaceESRGB:
		colorspace = box.CSeSRGB
	case ColorSpaceROMMRGB:
		colorspace = box.CSROMMRGB
	case ColorSpaceYPbPr60:
		colorspace = box.CSYPbPr1125
	case ColorSpaceYPbPr50:
		colorspace = box.CSYPbPr1250
	case ColorSpaceEYCC:
		colorspace = box.CSeSYCC
	default:
		// Default based on number of components
		if e.numComponents == 1 {
			colorspace = box.CSGray
		} else {
			// 3 or 4 components default to sRGB (4th component is alpha)
			colorspace = box.CSSRGB
		}
	}

	// Write JP2 header
	jp2hBox := box.CreateJP2Header(
		uint32(e.width),
		uint32(e.height),
		uint16(e.numComponents),
		uint8(e.precision-1),
		colorspace,
	)
	if err := boxWriter.WriteBox(jp2hBox); err != nil {
		return err
	}

	// Write codestream
	jp2cBox := box.CreateCodestreamBox(codestream)
	if err := boxWriter.WriteBox(jp2cBox); err != nil {
		return err
	}

	return nil
}

// Ensure encoder implements required interfaces
var _ color.Model = (*encoder)(nil).colorModel()

func (e *encoder) colorModel() color.Model {
	return nil
}
