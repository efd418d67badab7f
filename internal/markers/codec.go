package markers

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/jph2k/coreflow/internal/errs"
	"github.com/jph2k/coreflow/internal/stream"
	"github.com/jph2k/coreflow/internal/types"
	"github.com/jph2k/coreflow/internal/xlog"
)

// handler parses or writes one marker segment's payload (length and code
// already consumed/reserved). A state-gated handler table implements the
// dispatch spec.md §4.2 describes; ReadMainHeader and ReadTileHeader just
// walk the table.
type handler struct {
	mask State
	read func(c *Codec, s stream.Stream, segLen int) error
}

// Codec is the two-way MarkerCodec. One Codec is created per CodeStream and
// shared by main-header and every tile-part-header parse so that QCD/QCC
// and COD/COC scoping state persists across tile-parts.
type Codec struct {
	Params *types.CodingParams
	state  State

	// curTile tracks which TCP a COD/QCD/RGN/POC currently being parsed
	// applies to: -1 means "main header defaults", otherwise a tile index.
	curTile int

	// mainTCP holds the main-header defaults that seed every tile's TCP
	// the first time that tile is touched.
	mainTCP types.TCP

	// htSignalled records CAP/SIZ Rsiz bit 0x4000, per spec.md §6.
	htSignalled bool
	// Rsiz is the SIZ marker's profile/capability field, as read.
	Rsiz uint16
	// Pcap is the raw CAP marker capability bitfield, if one was read.
	Pcap uint32
	// LastComment holds the most recently parsed COM marker's text.
	LastComment string

	table map[Marker]handler
}

// NewCodec creates a Codec around params, which must already have its
// Image/Grid/TCPs slice sized (TCPs populated lazily as SIZ/COD are read).
func NewCodec(params *types.CodingParams) *Codec {
	c := &Codec{Params: params, state: StateMHSOC, curTile: -1}
	c.table = map[Marker]handler{
		SIZ: {StateMHSOC, (*Codec).readSIZ},
		COD: {AnyHeaderStates, (*Codec).readCOD},
		COC: {AnyHeaderStates, (*Codec).readCOC},
		QCD: {AnyHeaderStates, (*Codec).readQCD},
		QCC: {AnyHeaderStates, (*Codec).readQCC},
		RGN: {AnyHeaderStates, (*Codec).readRGN},
		POC: {AnyHeaderStates, (*Codec).readPOC},
		TLM: {MainHeaderStates, (*Codec).readTLM},
		PLM: {MainHeaderStates, (*Codec).readSkip},
		PLT: {TileHeaderStates, (*Codec).readPLT},
		PPM: {MainHeaderStates, (*Codec).readPPM},
		PPT: {TileHeaderStates, (*Codec).readPPT},
		CRG: {MainHeaderStates, (*Codec).readSkip},
		COM: {AnyHeaderStates, (*Codec).readCOM},
		CAP: {MainHeaderStates, (*Codec).readCAP},
		CBD: {MainHeaderStates, (*Codec).readCBD},
		MCT: {AnyHeaderStates, (*Codec).readMCT},
		MCC: {AnyHeaderStates, (*Codec).readMCC},
		MCO: {AnyHeaderStates, (*Codec).readMCO},
	}
	return c
}

// ReadMainHeader consumes SOC, SIZ, and every subsequent marker segment up
// to (not including) the first SOT, per spec.md §4.2/§4.8.
func (c *Codec) ReadMainHeader(s stream.Stream) error {
	m, err := c.readMarker(s)
	if err != nil {
		return err
	}
	if m != SOC {
		return fmt.Errorf("first marker %s is not SOC: %w", m, errs.ErrCorruptCodeStream)
	}
	c.state = StateMHSOC

	for {
		pos := s.Tell()
		m, err := c.readMarker(s)
		if err != nil {
			return err
		}
		if m == SOT {
			s.Seek(pos)
			c.state = StateMH
			return nil
		}
		if err := c.dispatch(s, m); err != nil {
			return err
		}
	}
}

// ReadTileHeader consumes one tile-part's header, from just after its SOT
// up to (not including) SOD, dispatching COD/COC/QCD/QCC/RGN/POC/PLT/PPT/COM
// overrides scoped to tile. Returns an error if a marker is illegal or the
// stream is short; on success the stream is left positioned at SOD.
func (c *Codec) ReadTileHeader(s stream.Stream, tileIdx int) error {
	c.curTile = tileIdx
	c.state = StateTPHSOT
	defer func() { c.curTile = -1 }()

	for {
		pos := s.Tell()
		m, err := c.readMarker(s)
		if err != nil {
			return err
		}
		if m == SOD {
			s.Seek(pos)
			return nil
		}
		c.state = StateTPH
		if err := c.dispatch(s, m); err != nil {
			return err
		}
	}
}

func (c *Codec) dispatch(s stream.Stream, m Marker) error {
	h, ok := c.table[m]
	if !ok {
		xlog.Warnf("unknown marker segment, skipping", "marker", m.String())
		segLen, err := c.readSegLen(s)
		if err != nil {
			return err
		}
		return c.readSkip(s, segLen-2)
	}
	if c.state&h.mask == 0 {
		return fmt.Errorf("marker %s illegal in current state: %w", m, errs.ErrCorruptCodeStream)
	}
	segLen, err := c.readSegLen(s)
	if err != nil {
		return err
	}
	remaining := s.BytesRemaining()
	if uint64(segLen-2) > remaining {
		return fmt.Errorf("marker %s segment length exceeds stream: %w", m, errs.ErrCorruptCodeStream)
	}
	return h.read(c, s, segLen-2)
}

func (c *Codec) readMarker(s stream.Stream) (Marker, error) {
	v, ok := stream.Read16(s)
	if !ok {
		return 0, fmt.Errorf("reading marker code: %w", errs.ErrIoFailure)
	}
	return Marker(v), nil
}

func (c *Codec) readSegLen(s stream.Stream) (int, error) {
	v, ok := stream.Read16(s)
	if !ok {
		return 0, fmt.Errorf("reading segment length: %w", errs.ErrIoFailure)
	}
	if v < minSegmentLength {
		return 0, fmt.Errorf("segment length %d below minimum: %w", v, errs.ErrCorruptCodeStream)
	}
	return int(v), nil
}

// readSkip discards segLen bytes of a recognized-but-unhandled segment
// (PLM, CRG), per spec.md §7 non-fatal conditions. It logs nothing itself.
func (c *Codec) readSkip(s stream.Stream, segLen int) error {
	if segLen > 0 && !s.Skip(int64(segLen)) {
		return fmt.Errorf("skipping marker segment: %w", errs.ErrIoFailure)
	}
	return nil
}

// EnsureTileTCPs pads Params.TCPs up to the full tile count with clones of
// the main-header defaults, for any tile a COD/QCD/COC/QCC/RGN/POC
// override never touched. Call once after ReadMainHeader, before relying
// on Params.TCPs having one entry per tile.
func (c *Codec) EnsureTileTCPs() {
	for len(c.Params.TCPs) < c.Params.NumTiles() {
		c.Params.TCPs = append(c.Params.TCPs, c.mainTCP.Clone())
	}
}

// MainTCP returns the main-header default TCP, used by an encoder that
// builds a Codec purely to reuse its handler table without ever calling
// ReadMainHeader.
func (c *Codec) MainTCP() types.TCP { return c.mainTCP }

func (c *Codec) tcp() *types.TCP {
	if c.curTile < 0 {
		return &c.mainTCP
	}
	for len(c.Params.TCPs) <= c.curTile {
		c.Params.TCPs = append(c.Params.TCPs, c.mainTCP.Clone())
	}
	return &c.Params.TCPs[c.curTile]
}

func (c *Codec) readSIZ(s stream.Stream, segLen int) error {
	rsiz, ok1 := stream.Read16(s)
	xsiz, ok2 := stream.Read32(s)
	ysiz, ok3 := stream.Read32(s)
	xosiz, ok4 := stream.Read32(s)
	yosiz, ok5 := stream.Read32(s)
	xtsiz, ok6 := stream.Read32(s)
	ytsiz, ok7 := stream.Read32(s)
	xtosiz, ok8 := stream.Read32(s)
	ytosiz, ok9 := stream.Read32(s)
	csiz, ok10 := stream.Read16(s)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8 && ok9 && ok10) {
		return fmt.Errorf("reading SIZ fixed fields: %w", errs.ErrIoFailure)
	}
	if csiz < 1 || csiz > 16384 {
		return fmt.Errorf("SIZ numcomps %d out of range: %w", csiz, errs.ErrCorruptCodeStream)
	}
	c.Params.Image.Bounds = types.Rect{X0: int(xosiz), Y0: int(yosiz), X1: int(xsiz), Y1: int(ysiz)}
	c.Params.Grid = types.TileGrid{TX0: int(xtosiz), TY0: int(ytosiz), TW: int(xtsiz), TH: int(ytsiz)}
	c.Params.Image.Components = make([]types.Component, csiz)
	c.Rsiz = rsiz
	c.htSignalled = rsiz&0x4000 != 0

	for i := 0; i < int(csiz); i++ {
		ssiz, ok1 := stream.ReadByte(s)
		xr, ok2 := stream.ReadByte(s)
		yr, ok3 := stream.ReadByte(s)
		if !(ok1 && ok2 && ok3) {
			return fmt.Errorf("reading SIZ component %d: %w", i, errs.ErrIoFailure)
		}
		c.Params.Image.Components[i] = types.Component{
			Dx:        int(xr),
			Dy:        int(yr),
			Precision: int(ssiz&0x7F) + 1,
			Signed:    ssiz&0x80 != 0,
		}
	}
	if tiles := c.Params.NumTiles(); tiles > 65535 {
		return fmt.Errorf("tile count %d exceeds 65535: %w", tiles, errs.ErrCorruptCodeStream)
	}
	c.mainTCP = types.TCP{TCCPs: make([]types.TCCP, csiz)}
	c.state = StateMHSIZ
	return nil
}

func (c *Codec) readCOD(s stream.Stream, segLen int) error {
	scod, ok1 := stream.ReadByte(s)
	sgcodProg, ok2 := stream.ReadByte(s)
	numLayers, ok3 := stream.Read16(s)
	mct, ok4 := stream.ReadByte(s)
	if !(ok1 && ok2 && ok3 && ok4) {
		return fmt.Errorf("reading COD: %w", errs.ErrIoFailure)
	}
	tccp, err := c.readSPcod(s)
	if err != nil {
		return err
	}
	scope := types.ScopeDefault
	if c.curTile >= 0 {
		scope = types.ScopeTileHeader
	}
	tcp := c.tcp()
	tcp.Progression = types.ProgressionOrder(sgcodProg)
	tcp.NumLayers = int(numLayers)
	tcp.EnableSOP = scod&0x02 != 0
	tcp.EnableEPH = scod&0x04 != 0
	if mct != 0 {
		tcp.MCT = types.MCTFixed
	}
	for i := range tcp.TCCPs {
		if tcp.TCCPs[i].CodScope > scope {
			continue
		}
		tccp.CodScope = scope
		tcp.TCCPs[i] = *tccp
	}
	return nil
}

func (c *Codec) readCOC(s stream.Stream, segLen int) error {
	tcp := c.tcp()
	var compIdx int
	if len(c.Params.Image.Components) > 256 {
		v, ok := stream.Read16(s)
		if !ok {
			return fmt.Errorf("reading COC Ccoc: %w", errs.ErrIoFailure)
		}
		compIdx = int(v)
	} else {
		v, ok := stream.ReadByte(s)
		if !ok {
			return fmt.Errorf("reading COC Ccoc: %w", errs.ErrIoFailure)
		}
		compIdx = int(v)
	}
	scoc, ok := stream.ReadByte(s)
	if !ok {
		return fmt.Errorf("reading COC Scoc: %w", errs.ErrIoFailure)
	}
	tccp, err := c.readSPcod(s)
	if err != nil {
		return err
	}
	if compIdx < 0 || compIdx >= len(tcp.TCCPs) {
		return fmt.Errorf("COC component %d out of range: %w", compIdx, errs.ErrCorruptCodeStream)
	}
	scope := types.ScopeComponent
	if c.curTile >= 0 {
		scope = types.ScopeTileComponent
	}
	if tcp.TCCPs[compIdx].CodScope > scope {
		return nil
	}
	_ = scoc
	tccp.CodScope = scope
	tcp.TCCPs[compIdx] = *tccp
	return nil
}

// readSPcod reads the shared SPcod/SPcoc body common to COD/COC: number of
// decomposition levels, code-block exponents/style, wavelet id, and
// optional per-resolution precinct sizes.
func (c *Codec) readSPcod(s stream.Stream) (*types.TCCP, error) {
	numDecomp, ok1 := stream.ReadByte(s)
	cblkwExp, ok2 := stream.ReadByte(s)
	cblkhExp, ok3 := stream.ReadByte(s)
	cblkStyle, ok4 := stream.ReadByte(s)
	wavelet, ok5 := stream.ReadByte(s)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return nil, fmt.Errorf("reading SPcod/SPcoc: %w", errs.ErrIoFailure)
	}
	if cblkwExp > 8 || cblkhExp > 8 || int(cblkwExp)+int(cblkhExp) > 8 {
		return nil, fmt.Errorf("code-block exponents out of range: %w", errs.ErrInvalidParameters)
	}
	tccp := &types.TCCP{
		NumResolutions:       int(numDecomp) + 1,
		CodeBlockWidthExp:    cblkwExp,
		CodeBlockHeightExp:   cblkhExp,
		CodeBlockStyle:       cblkStyle,
		Wavelet:              types.WaveletTransform(wavelet),
	}
	if cblkStyle&0x01 != 0 { // precincts signalled, not default
		tccp.PrecinctSizes = make([]types.PrecinctSize, tccp.NumResolutions)
		for r := 0; r < tccp.NumResolutions; r++ {
			b, ok := stream.ReadByte(s)
			if !ok {
				return nil, fmt.Errorf("reading precinct size at res %d: %w", r, errs.ErrIoFailure)
			}
			tccp.PrecinctSizes[r] = types.PrecinctSize{PPx: b & 0x0F, PPy: b >> 4}
		}
	}
	return tccp, nil
}

func (c *Codec) readQCD(s stream.Stream, segLen int) error {
	tcp := c.tcp()
	style, guard, steps, err := c.readSPqcd(s, segLen)
	if err != nil {
		return err
	}
	scope := types.ScopeDefault
	if c.curTile >= 0 {
		scope = types.ScopeTileHeader
	}
	for i := range tcp.TCCPs {
		if tcp.TCCPs[i].QuantScope > scope {
			continue
		}
		tcp.TCCPs[i].QuantStyle = style
		tcp.TCCPs[i].GuardBits = guard
		tcp.TCCPs[i].StepSizes = steps
		tcp.TCCPs[i].QuantScope = scope
	}
	return nil
}

func (c *Codec) readQCC(s stream.Stream, segLen int) error {
	tcp := c.tcp()
	var compIdx int
	var consumed int
	if len(c.Params.Image.Components) > 256 {
		v, ok := stream.Read16(s)
		if !ok {
			return fmt.Errorf("reading QCC Cqcc: %w", errs.ErrIoFailure)
		}
		compIdx, consumed = int(v), 2
	} else {
		v, ok := stream.ReadByte(s)
		if !ok {
			return fmt.Errorf("reading QCC Cqcc: %w", errs.ErrIoFailure)
		}
		compIdx, consumed = int(v), 1
	}
	style, guard, steps, err := c.readSPqcd(s, segLen-consumed)
	if err != nil {
		return err
	}
	if compIdx < 0 || compIdx >= len(tcp.TCCPs) {
		return fmt.Errorf("QCC component %d out of range: %w", compIdx, errs.ErrCorruptCodeStream)
	}
	scope := types.ScopeComponent
	if c.curTile >= 0 {
		scope = types.ScopeTileComponent
	}
	if tcp.TCCPs[compIdx].QuantScope > scope {
		return nil
	}
	tcp.TCCPs[compIdx].QuantStyle = style
	tcp.TCCPs[compIdx].GuardBits = guard
	tcp.TCCPs[compIdx].StepSizes = steps
	tcp.TCCPs[compIdx].QuantScope = scope
	return nil
}

func (c *Codec) readSPqcd(s stream.Stream, segLen int) (types.QuantStyle, int, []types.StepSize, error) {
	sqcd, ok := stream.ReadByte(s)
	if !ok {
		return 0, 0, nil, fmt.Errorf("reading Sqcd: %w", errs.ErrIoFailure)
	}
	style := types.QuantStyle(sqcd & 0x1F)
	guard := int(sqcd >> 5)
	if guard > 7 {
		return 0, 0, nil, fmt.Errorf("guard bits %d exceed 7: %w", guard, errs.ErrInvalidParameters)
	}
	remaining := segLen - 1
	var steps []types.StepSize
	if style == types.QuantNone {
		n := remaining
		steps = make([]types.StepSize, n)
		for i := 0; i < n; i++ {
			b, ok := stream.ReadByte(s)
			if !ok {
				return 0, 0, nil, fmt.Errorf("reading reversible exponent %d: %w", i, errs.ErrIoFailure)
			}
			steps[i] = types.StepSize{Exponent: b >> 3}
		}
	} else {
		n := remaining / 2
		steps = make([]types.StepSize, n)
		for i := 0; i < n; i++ {
			v, ok := stream.Read16(s)
			if !ok {
				return 0, 0, nil, fmt.Errorf("reading stepsize %d: %w", i, errs.ErrIoFailure)
			}
			steps[i] = types.StepSize{Mantissa: v & 0x07FF, Exponent: byte(v >> 11)}
		}
	}
	return style, guard, steps, nil
}

func (c *Codec) readRGN(s stream.Stream, segLen int) error {
	tcp := c.tcp()
	var compIdx int
	if len(c.Params.Image.Components) > 256 {
		v, ok := stream.Read16(s)
		if !ok {
			return fmt.Errorf("reading RGN Crgn: %w", errs.ErrIoFailure)
		}
		compIdx = int(v)
	} else {
		v, ok := stream.ReadByte(s)
		if !ok {
			return fmt.Errorf("reading RGN Crgn: %w", errs.ErrIoFailure)
		}
		compIdx = int(v)
	}
	srgn, ok1 := stream.ReadByte(s)
	shift, ok2 := stream.ReadByte(s)
	if !(ok1 && ok2) {
		return fmt.Errorf("reading RGN: %w", errs.ErrIoFailure)
	}
	if srgn != 0 {
		return fmt.Errorf("RGN Srgn %d not implicit (Part-1 only supports 0): %w", srgn, errs.ErrUnsupportedFeature)
	}
	if shift >= 32 {
		return fmt.Errorf("RGN shift %d >= 32: %w", shift, errs.ErrCorruptCodeStream)
	}
	if compIdx < 0 || compIdx >= len(tcp.TCCPs) {
		return fmt.Errorf("RGN component %d out of range: %w", compIdx, errs.ErrCorruptCodeStream)
	}
	tcp.TCCPs[compIdx].RoiShift = int(shift)
	return nil
}

func (c *Codec) readPOC(s stream.Stream, segLen int) error {
	tcp := c.tcp()
	wide := len(c.Params.Image.Components) > 256
	entryLen := 7
	if wide {
		entryLen = 9
	}
	n := segLen / entryLen
	for i := 0; i < n; i++ {
		resS, ok1 := stream.ReadByte(s)
		var compS, compE int
		var ok2, ok5 bool
		if wide {
			v, ok := stream.Read16(s)
			compS, ok2 = int(v), ok
		} else {
			v, ok := stream.ReadByte(s)
			compS, ok2 = int(v), ok
		}
		layE, ok3 := stream.Read16(s)
		resE, ok4 := stream.ReadByte(s)
		if wide {
			v, ok := stream.Read16(s)
			compE, ok5 = int(v), ok
		} else {
			v, ok := stream.ReadByte(s)
			compE, ok5 = int(v), ok
		}
		prog, ok6 := stream.ReadByte(s)
		if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
			return fmt.Errorf("reading POC entry %d: %w", i, errs.ErrIoFailure)
		}
		tcp.POCs = append(tcp.POCs, types.POC{
			ResStart:    int(resS),
			CompStart:   compS,
			LayEnd:      int(layE),
			ResEnd:      int(resE),
			CompEnd:     compE,
			Progression: types.ProgressionOrder(prog),
		})
	}
	return nil
}

func (c *Codec) readTLM(s stream.Stream, segLen int) error {
	ztlm, ok1 := stream.ReadByte(s)
	sp, ok2 := stream.ReadByte(s)
	if !(ok1 && ok2) {
		return fmt.Errorf("reading TLM header: %w", errs.ErrIoFailure)
	}
	_ = ztlm
	sizeST := (sp >> 4) & 0x3
	sizeSP := (sp >> 6) & 0x1
	ptrLen := 2
	if sizeSP == 1 {
		ptrLen = 4
	}
	entryLen := int(sizeST) + ptrLen
	if entryLen <= 0 {
		return c.readSkip(s, segLen-2)
	}
	remaining := segLen - 2
	for remaining >= entryLen {
		if sizeST > 0 {
			if !s.Skip(int64(sizeST)) {
				return fmt.Errorf("skipping TLM Ttlm: %w", errs.ErrIoFailure)
			}
		}
		if !s.Skip(int64(ptrLen)) {
			return fmt.Errorf("skipping TLM Ptlm: %w", errs.ErrIoFailure)
		}
		remaining -= entryLen
	}
	return c.readSkip(s, remaining)
}

func (c *Codec) readPLT(s stream.Stream, segLen int) error {
	zplt, ok := stream.ReadByte(s)
	if !ok {
		return fmt.Errorf("reading PLT Zplt: %w", errs.ErrIoFailure)
	}
	_ = zplt
	return c.readSkip(s, segLen-1)
}

func (c *Codec) readPPM(s stream.Stream, segLen int) error {
	zppm, ok := stream.ReadByte(s)
	if !ok {
		return fmt.Errorf("reading PPM Zppm: %w", errs.ErrIoFailure)
	}
	_ = zppm
	return c.readSkip(s, segLen-1)
}

func (c *Codec) readPPT(s stream.Stream, segLen int) error {
	tcp := c.tcp()
	zppt, ok := stream.ReadByte(s)
	if !ok {
		return fmt.Errorf("reading PPT Zppt: %w", errs.ErrIoFailure)
	}
	_ = zppt
	data := make([]byte, segLen-1)
	n, ok := s.Read(data)
	if !ok || n != len(data) {
		return fmt.Errorf("reading PPT data: %w", errs.ErrIoFailure)
	}
	tcp.PPTData = append(tcp.PPTData, data...)
	return nil
}

// readCOM reads a comment segment, decoding Latin-1 text comments through
// x/text so non-ASCII COM text round-trips instead of being mangled.
func (c *Codec) readCOM(s stream.Stream, segLen int) error {
	rcom, ok := stream.Read16(s)
	if !ok {
		return fmt.Errorf("reading COM Rcom: %w", errs.ErrIoFailure)
	}
	data := make([]byte, segLen-2)
	n, ok := s.Read(data)
	if !ok || n != len(data) {
		return fmt.Errorf("reading COM text: %w", errs.ErrIoFailure)
	}
	if len(data) == 0 {
		xlog.Warnf("empty COM marker")
		return nil
	}
	if rcom == 1 {
		text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err == nil {
			c.LastComment = string(text)
			return nil
		}
	}
	c.LastComment = string(data)
	return nil
}

func (c *Codec) readCAP(s stream.Stream, segLen int) error {
	pcap, ok := stream.Read32(s)
	if !ok {
		return fmt.Errorf("reading CAP Pcap: %w", errs.ErrIoFailure)
	}
	c.Pcap = pcap
	nbits := 0
	for b := uint32(1); b != 0; b <<= 1 {
		if pcap&b != 0 {
			nbits++
		}
	}
	return c.readSkip(s, segLen-4-2*nbits)
}

func (c *Codec) readCBD(s stream.Stream, segLen int) error {
	ncbd, ok := stream.Read16(s)
	if !ok {
		return fmt.Errorf("reading CBD Ncbd: %w", errs.ErrIoFailure)
	}
	n := int(ncbd & 0x7FFF)
	for i := 0; i < n && i < len(c.Params.Image.Components); i++ {
		b, ok := stream.ReadByte(s)
		if !ok {
			return fmt.Errorf("reading CBD component %d: %w", i, errs.ErrIoFailure)
		}
		c.Params.Image.Components[i].Precision = int(b&0x7F) + 1
		c.Params.Image.Components[i].Signed = b&0x80 != 0
	}
	return nil
}

func (c *Codec) readMCT(s stream.Stream, segLen int) error {
	tcp := c.tcp()
	zmct, ok1 := stream.Read16(s)
	imct, ok2 := stream.ReadByte(s)
	if !(ok1 && ok2) {
		return fmt.Errorf("reading MCT header: %w", errs.ErrIoFailure)
	}
	_ = zmct
	data := make([]byte, segLen-3)
	n, ok := s.Read(data)
	if !ok || n != len(data) {
		return fmt.Errorf("reading MCT array data: %w", errs.ErrIoFailure)
	}
	tcp.MCTRecords = append(tcp.MCTRecords, types.MCTRecord{
		Index:       imct & 0xFF,
		ArrayType:   (imct >> 0) & 0x03,
		ElementType: 0,
		Data:        data,
	})
	tcp.MCT = types.MCTCustom
	return nil
}

func (c *Codec) readMCC(s stream.Stream, segLen int) error {
	return c.readSkip(s, segLen)
}

func (c *Codec) readMCO(s stream.Stream, segLen int) error {
	tcp := c.tcp()
	nmco, ok := stream.ReadByte(s)
	if !ok {
		return fmt.Errorf("reading MCO Nmco: %w", errs.ErrIoFailure)
	}
	rec := types.MCORecord{StageMCCIndices: make([]byte, 0, nmco)}
	for i := 0; i < int(nmco); i++ {
		b, ok := stream.ReadByte(s)
		if !ok {
			return fmt.Errorf("reading MCO stage %d: %w", i, errs.ErrIoFailure)
		}
		rec.StageMCCIndices = append(rec.StageMCCIndices, b)
	}
	tcp.MCORecords = append(tcp.MCORecords, rec)
	return nil
}
