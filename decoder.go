package jpeg2000

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/jph2k/coreflow/internal/box"
	"github.com/jph2k/coreflow/internal/corestream"
	"github.com/jph2k/coreflow/internal/mct"
	"github.com/jph2k/coreflow/internal/markers"
	"github.com/jph2k/coreflow/internal/stream"
	"github.com/jph2k/coreflow/internal/tcd"
	"github.com/jph2k/coreflow/internal/types"
	"github.com/jph2k/coreflow/internal/xlog"
)

// decoder handles JPEG 2000 decoding.
type decoder struct {
	r          *bufio.Reader
	format     Format
	cs         *corestream.CodeStream
	stream     stream.Stream
	jp2Header  *box.JP2Header
	codestream []byte
}

// newDecoder creates a new decoder.
func newDecoder(r io.Reader) *decoder {
	return &decoder{
		r: bufio.NewReader(r),
	}
}

// decode decodes the image.
func (d *decoder) decode(cfg *Config) (image.Image, error) {
	// Detect format and read headers
	if err := d.readFormat(); err != nil {
		return nil, fmt.Errorf("reading format: %w", err)
	}

	// Parse codestream header
	if err := d.parseCodestream(); err != nil {
		return nil, fmt.Errorf("parsing codestream: %w", err)
	}

	// Decode tiles
	img, err := d.decodeTiles(cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding tiles: %w", err)
	}

	return img, nil
}

// readMetadata reads only the metadata without decoding.
func (d *decoder) readMetadata() (*Metadata, error) {
	if err := d.readFormat(); err != nil {
		return nil, err
	}

	if err := d.parseCodestream(); err != nil {
		return nil, err
	}

	p := d.cs.Params
	mainTCP := d.cs.Codec.MainTCP()
	numComp := len(p.Image.Components)
	m := &Metadata{
		Format:           d.format,
		Width:            p.Image.Bounds.Width(),
		Height:           p.Image.Bounds.Height(),
		NumComponents:    numComp,
		BitsPerComponent: make([]int, numComp),
		Signed:           make([]bool, numComp),
		Profile:          Profile(d.cs.Codec.Rsiz),
		NumResolutions:   mainTCP.TCCPs[0].NumResolutions,
		NumQualityLayers: mainTCP.NumLayers,
		TileWidth:        p.Grid.TW,
		TileHeight:       p.Grid.TH,
		NumTilesX:        p.Grid.NumTilesX(p.Image.Bounds),
		NumTilesY:        p.Grid.NumTilesY(p.Image.Bounds),
		Comment:          d.cs.Codec.LastComment,
		ColorSpace:       ColorSpaceUnspecified, // Default for J2K without JP2 container
	}

	for i, c := range p.Image.Components {
		m.BitsPerComponent[i] = c.Precision
		m.Signed[i] = c.Signed
	}

	// Get color space from JP2 header if available
	if d.jp2Header != nil && d.jp2Header.ColorSpec != nil {
		switch d.jp2Header.ColorSpec.EnumeratedColorspace {
		case box.CSBilevel1, box.CSBilevel2:
			m.ColorSpace = ColorSpaceBilevel
		case box.CSGray:
			m.ColorSpace = ColorSpaceGray
		case box.CSSRGB:
			m.ColorSpace = ColorSpaceSRGB
		case box.CSYCbCr1, box.CSsYCC:
			m.ColorSpace = ColorSpaceSYCC
		case box.CSYCbCr2:
			m.ColorSpace = ColorSpaceYCbCr2
		case box.CSYCbCr3:
			m.ColorSpace = ColorSpaceYCbCr3
		case box.CSPhotoYCC:
			m.ColorSpace = ColorSpacePhotoYCC
		case box.CSCMY:
			m.ColorSpace = ColorSpaceCMY
		case box.CSCMYK:
			m.ColorSpace = ColorSpaceCMYK
		case box.CSYCCK:
			m.ColorSpace = ColorSpaceYCCK
		case box.CSCIELab:
			m.ColorSpace = ColorSpaceCIELab
		case box.CSCIEJab:
			m.ColorSpace = ColorSpaceCIEJab
		case box.CSeSRGB:
			m.ColorSpace = ColorSpaceESRGB
		case box.CSROMMRGB:
			m.ColorSpace = ColorSpaceROMMRGB
		case box.CSYPbPr1125:
			m.ColorSpace = ColorSpaceYPbPr60
		case box.CSYPbPr1250:
			m.ColorSpace = ColorSpaceYPbPr50
		case box.CSeSYCC:
			m.ColorSpace = ColorSpaceEYCC
		default:
			// Unknown enumcs value - not supported
			m.ColorSpace = ColorSpaceUnknown
		}
		m.ICCProfile = d.jp2Header.ColorSpec.ICCProfile
	}

	return m, nil
}

// getColorSpace returns the ColorSpace from the JP2 header.
func (d *decoder) getColorSpace() ColorSpace {
	if d.jp2Header == nil || d.jp2Header.ColorSpec == nil {
		return ColorSpaceUnspecified
	}

	switch d.jp2Header.ColorSpec.EnumeratedColorspace {
	case box.CSBilevel1, box.CSBilevel2:
		return ColorSpaceBilevel
	case box.CSGray:
		return ColorSpaceGray
	case box.CSSRGB:
		return ColorSpaceSRGB
	case box.CSYCbCr1, box.CSsYCC:
		return ColorSpaceSYCC
	case box.CSYCbCr2:
		return ColorSpaceYCbCr2
	case box.CSYCbCr3:
		return ColorSpaceYCbCr3
	case box.CSPhotoYCC:
		return ColorSpacePhotoYCC
	case box.CSCMY:
		return ColorSpaceCMY
	case box.CSCMYK:
		return ColorSpaceCMYK
	case box.CSYCCK:
		return ColorSpaceYCCK
	case box.CSCIELab:
		return ColorSpaceCIELab
	case box.CSCIEJab:
		return ColorSpaceCIEJab
	case box.CSeSRGB:
		return ColorSpaceESRGB
	case box.CSROMMRGB:
		return ColorSpaceROMMRGB
	case box.CSYPbPr1125:
		return ColorSpaceYPbPr60
	case box.CSYPbPr1250:
		return ColorSpaceYPbPr50
	case box.CSeSYCC:
		return ColorSpaceEYCC
	default:
		return ColorSpaceUnknown
	}
}

// readFormat detects the file format and reads file-level structures.
func (d *decoder) readFormat() error {
	// Peek at first bytes to detect format
	magic, err := d.r.Peek(12)
	if err != nil {
		return err
	}

	// Check for JP2 signature
	if len(magic) >= 12 &&
		magic[0] == 0x00 && magic[1] == 0x00 && magic[2] == 0x00 && magic[3] == 0x0C &&
		magic[4] == 'j' && magic[5] == 'P' && magic[6] == ' ' && magic[7] == ' ' {
		d.format = FormatJP2
		return d.readJP2()
	}

	// Check for J2K codestream (SOC marker)
	if len(magic) >= 2 && magic[0] == 0xFF && magic[1] == 0x4F {
		d.format = FormatJ2K
		return d.readJ2K()
	}

	return fmt.Errorf("unrecognized file format")
}

// readJP2 reads a JP2 file.
func (d *decoder) readJP2() error {
	boxReader := box.NewReader(d.r)
	ftypSeen := false

	for {
		b, err := boxReader.ReadBox()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch b.Type {
		case box.TypeJP2Signature:
			// Verify signature
			if len(b.Contents) < 4 ||
				b.Contents[0] != 0x0D || b.Contents[1] != 0x0A ||
				b.Contents[2] != 0x87 || b.Contents[3] != 0x0A {
				return fmt.Errorf("invalid JP2 signature")
			}

		case box.TypeFileType:
			// Parse file type box
			ftyp := &box.FileTypeBox{}
			if err := ftyp.Parse(b.Contents); err != nil {
				return err
			}
			ftypSeen = true

		case box.TypeJP2Header:
			// Parse JP2 header
			var err error
			d.jp2Header, err = box.ParseJP2Header(b.Contents)
			if err != nil {
				return err
			}

		case box.TypeContCodestream:
			// Store codestream for later parsing
			d.codestream = b.Contents
			return nil

		default:
			if !ftypSeen && b.Type != box.TypeJP2Signature {
				return fmt.Errorf("unknown box %s before FTYP", b.Type)
			}
			xlog.Warnf("skipping unrecognized box", "type", b.Type.String())
		}
	}

	if d.codestream == nil {
		return fmt.Errorf("no codestream found in JP2 file")
	}
	return nil
}

// readJ2K reads a raw J2K codestream.
func (d *decoder) readJ2K() error {
	// Read entire codestream
	data, err := io.ReadAll(d.r)
	if err != nil {
		return err
	}
	d.codestream = data
	return nil
}

// parseCodestream parses the codestream main header through
// internal/corestream, leaving d.stream positioned right before the first
// tile-part's SOT so decodeTiles can keep reading from it.
func (d *decoder) parseCodestream() error {
	if d.codestream == nil {
		return fmt.Errorf("no codestream available")
	}

	s := stream.NewMemStreamFromBytes(d.codestream)
	cs := corestream.NewCodeStream(&types.CodingParams{})
	if err := cs.StartDecode(s); err != nil {
		return err
	}
	d.cs = cs
	d.stream = s
	return nil
}

// decodeTiles decodes all tiles and assembles the output image.
func (d *decoder) decodeTiles(cfg *Config) (image.Image, error) {
	p := d.cs.Params

	// Calculate output dimensions
	width := p.Image.Bounds.Width()
	height := p.Image.Bounds.Height()

	if cfg != nil && cfg.ReduceResolution > 0 {
		// Reduce resolution
		for i := 0; i < cfg.ReduceResolution; i++ {
			width = (width + 1) / 2
			height = (height + 1) / 2
		}
	}

	numComp := len(p.Image.Components)
	if numComp == 0 {
		return nil, fmt.Errorf("invalid image: no components")
	}
	precision := p.Image.Components[0].Precision
	signed := p.Image.Components[0].Signed

	// Allocate component data
	componentData := make([][]int32, numComp)
	for c := 0; c < numComp; c++ {
		componentData[c] = make([]int32, width*height)
	}

	proc := tcd.NewTileProcessor(p)
	numTiles := p.NumTiles()

	for tileIdx := 0; tileIdx < numTiles; tileIdx++ {
		if err := d.decodeTile(proc, tileIdx, componentData, width, height); err != nil {
			return nil, fmt.Errorf("decoding tile %d: %w", tileIdx, err)
		}
	}

	mainTCP := d.cs.Codec.MainTCP()
	// Apply inverse MCT if needed
	if mainTCP.MCT != types.MCTOff && numComp >= 3 {
		if mainTCP.TCCPs[0].Wavelet == types.Wavelet53 {
			mct.InverseRCT(componentData[0], componentData[1], componentData[2])
		} else {
			// Convert to float for ICT
			compFloat := make([][]float64, 3)
			for c := 0; c < 3; c++ {
				compFloat[c] = make([]float64, len(componentData[c]))
				for i, v := range componentData[c] {
					compFloat[c][i] = float64(v)
				}
			}
			mct.InverseICT(compFloat[0], compFloat[1], compFloat[2])
			for c := 0; c < 3; c++ {
				for i, v := range compFloat[c] {
					componentData[c][i] = int32(v + 0.5)
				}
			}
		}
	}

	// Apply DC level shift
	for c := 0; c < numComp; c++ {
		if !p.Image.Components[c].Signed {
			mct.DCLevelShiftInverse(componentData[c], p.Image.Components[c].Precision)
		}
	}

	// Apply color space conversion if needed
	if d.jp2Header != nil && d.jp2Header.ColorSpec != nil {
		cs := d.getColorSpace()
		if conv := getColorConversion(cs); conv != nil {
			conv(componentData, precision)
		}
	}

	// Create output image
	return d.createImage(componentData, width, height, numComp, precision, signed)
}

// decodeTile reads one tile-part's SOT, tile header, and packet data from
// d.stream via internal/markers, runs the real Tier-1/Tier-2 decode
// through tcd.TileProcessor.DecompressTile, and places the reconstructed
// samples into the output component buffers.
func (d *decoder) decodeTile(
	proc *tcd.TileProcessor,
	tileIdx int,
	componentData [][]int32,
	imgWidth, imgHeight int,
) error {
	s := d.stream

	v, ok := stream.Read16(s)
	if !ok || markers.Marker(v) != markers.SOT {
		return fmt.Errorf("expected SOT for tile %d", tileIdx)
	}
	sot, ok := markers.ReadSOT(s)
	if !ok {
		return fmt.Errorf("reading SOT for tile %d", tileIdx)
	}
	if err := d.cs.Codec.ReadTileHeader(s, sot.TileIndex); err != nil {
		return fmt.Errorf("reading tile header: %w", err)
	}

	data, err := proc.DecompressTile(s, sot.TileIndex)
	if err != nil {
		return fmt.Errorf("decompressing tile: %w", err)
	}

	p := proc.Params
	u := sot.TileIndex % p.Grid.NumTilesX(p.Image.Bounds)
	v2 := sot.TileIndex / p.Grid.NumTilesX(p.Image.Bounds)
	bounds := p.Grid.TileBounds(u, v2, p.Image.Bounds)

	d.placeTileData(data, bounds, componentData, imgWidth, imgHeight)
	return nil
}

// placeTileData copies one fully decoded tile's per-component samples
// (tile-local, row-major within bounds) into the image-wide output
// buffers, clipping to the requested output dimensions.
func (d *decoder) placeTileData(
	data [][]int32,
	bounds types.Rect,
	componentData [][]int32,
	imgWidth, imgHeight int,
) {
	w := bounds.Width()
	for c := 0; c < len(data) && c < len(componentData); c++ {
		tcData := data[c]
		for y := bounds.Y0; y < bounds.Y1; y++ {
			dstY := y
			if dstY < 0 || dstY >= imgHeight {
				continue
			}
			for x := bounds.X0; x < bounds.X1; x++ {
				dstX := x
				if dstX < 0 || dstX >= imgWidth {
					continue
				}
				srcIdx := (y-bounds.Y0)*w + (x - bounds.X0)
				if srcIdx < 0 || srcIdx >= len(tcData) {
					continue
				}
				componentData[c][dstY*imgWidth+dstX] = tcData[srcIdx]
			}
		}
	}
}

// createImage creates the output image from component data.
func (d *decoder) createImage(
	componentData [][]int32,
	width, height int,
	numComp int,
	precision int,
	signed bool,
) (image.Image, error) {
	// Determine scaling factor
	maxVal := int32((1 << precision) - 1)

	switch numComp {
	case 1:
		// Grayscale
		if precision <= 8 {
			img := image.NewGray(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					v := componentData[0][idx]
					if v < 0 {
						v = 0
					}
					if v > maxVal {
						v = maxVal
					}
					// Scale to 8-bit
					if precision != 8 {
						v = v * 255 / maxVal
					}
					img.SetGray(x, y, color.Gray{Y: uint8(v)})
				}
			}
			return img, nil
		}
		// 16-bit grayscale
		img := image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				v := componentData[0][idx]
				if v < 0 {
					v = 0
				}
				if v > maxVal {
					v = maxVal
				}
				// Scale to 16-bit
				v = v * 65535 / maxVal
				img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
			}
		}
		return img, nil

	case 3:
		// RGB
		if precision <= 8 {
			img := image.NewRGBA(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					r := componentData[0][idx]
					g := componentData[1][idx]
					b := componentData[2][idx]

					// Clamp values
					r = clampInt32(r, 0, maxVal)
					g = clampInt32(g, 0, maxVal)
					b = clampInt32(b, 0, maxVal)

					// Scale to 8-bit
					if precision != 8 {
						r = r * 255 / maxVal
						g = g * 255 / maxVal
						b = b * 255 / maxVal
					}

					img.SetRGBA(x, y, color.RGBA{
						R: uint8(r),
						G: uint8(g),
						B: uint8(b),
						A: 255,
					})
				}
			}
			return img, nil
		}
		// 16-bit RGB
		img := image.NewRGBA64(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				r := componentData[0][idx]
				g := componentData[1][idx]
				b := componentData[2][idx]

				r = clampInt32(r, 0, maxVal)
				g = clampInt32(g, 0, maxVal)
				b = clampInt32(b, 0, maxVal)

				// Scale to 16-bit
				r = r * 65535 / maxVal
				g = g * 65535 / maxVal
				b = b * 65535 / maxVal

				img.SetRGBA64(x, y, color.RGBA64{
					R: uint16(r),
					G: uint16(g),
					B: uint16(b),
					A: 65535,
				})
			}
		}
		return img, nil

	case 4:
		// RGBA
		if precision <= 8 {
			img := image.NewRGBA(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					r := clampInt32(componentData[0][idx], 0, maxVal)
					g := clampInt32(componentData[1][idx], 0, maxVal)
					b := clampInt32(componentData[2][idx], 0, maxVal)
					a := clampInt32(componentData[3][idx], 0, maxVal)

					if precision != 8 {
						r = r * 255 / maxVal
						g = g * 255 / maxVal
						b = b * 255 / maxVal
						a = a * 255 / maxVal
					}

					img.SetRGBA(x, y, color.RGBA{
						R: uint8(r),
						G: uint8(g),
						B: uint8(b),
						A: uint8(a),
					})
				}
			}
			return img, nil
		}
		// 16-bit RGBA
		img := image.NewRGBA64(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				r := clampInt32(componentData[0][idx], 0, maxVal)
				g := clampInt32(componentData[1][idx], 0, maxVal)
				b := clampInt32(componentData[2][idx], 0, maxVal)
				a := clampInt32(componentData[3][idx], 0, maxVal)

				r = r * 65535 / maxVal
				g = g * 65535 / maxVal
				b = b * 65535 / maxVal
				a = a * 65535 / maxVal

				img.SetRGBA64(x, y, color.RGBA64{
					R: uint16(r),
					G: uint16(g),
					B: uint16(b),
					A: uint16(a),
				})
			}
		}
		return img, nil

	default:
		return nil, fmt.Errorf("unsupported number of components: %d", numComp)
	}
}

// Helper function
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
