package box

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/jph2k/coreflow/internal/errs"
	"github.com/jph2k/coreflow/internal/xlog"
)

// Parse decodes a PCLR box's palette entries, per spec.md §4.7: NE entries,
// NPC columns, one bit-depth byte per column, unsigned-only.
func (b *PaletteBox) Parse(data []byte) error {
	if len(data) < 3 {
		return fmt.Errorf("palette box too short: %w", errs.ErrCorruptBox)
	}
	b.NumEntries = binary.BigEndian.Uint16(data[0:2])
	b.NumColumns = data[2]
	if len(data) < 3+int(b.NumColumns) {
		return fmt.Errorf("palette box missing bit-depth bytes: %w", errs.ErrCorruptBox)
	}
	b.BitsPerEntry = make([]uint8, b.NumColumns)
	copy(b.BitsPerEntry, data[3:3+int(b.NumColumns)])
	for _, bpe := range b.BitsPerEntry {
		if bpe&0x80 != 0 {
			return fmt.Errorf("palette box signed channel unsupported: %w", errs.ErrUnsupportedFeature)
		}
		if int(bpe&0x7F)+1 > 38 {
			return fmt.Errorf("palette precision exceeds supported maximum: %w", errs.ErrCorruptBox)
		}
	}
	pos := 3 + int(b.NumColumns)
	b.Entries = make([][]uint32, b.NumEntries)
	for e := 0; e < int(b.NumEntries); e++ {
		row := make([]uint32, b.NumColumns)
		for col := 0; col < int(b.NumColumns); col++ {
			bits := int(b.BitsPerEntry[col]&0x7F) + 1
			nbytes := (bits + 7) / 8
			if pos+nbytes > len(data) {
				return fmt.Errorf("palette box truncated at entry %d: %w", e, errs.ErrCorruptBox)
			}
			var v uint32
			for i := 0; i < nbytes; i++ {
				v = v<<8 | uint32(data[pos+i])
			}
			row[col] = v
			pos += nbytes
		}
		b.Entries[e] = row
	}
	return nil
}

// Parse decodes a CMAP box's component mappings, 4 bytes each.
func (b *ComponentMapBox) Parse(data []byte) error {
	if len(data)%4 != 0 {
		return fmt.Errorf("component map box length not a multiple of 4: %w", errs.ErrCorruptBox)
	}
	n := len(data) / 4
	b.Mappings = make([]ComponentMapping, n)
	for i := 0; i < n; i++ {
		off := i * 4
		b.Mappings[i] = ComponentMapping{
			Component:     binary.BigEndian.Uint16(data[off : off+2]),
			MappingType:   data[off+2],
			PaletteColumn: data[off+3],
		}
	}
	return nil
}

// Parse decodes a CDEF box's channel definitions, 6 bytes each, and
// validates that (type, association) pairs and channel ids are unique per
// spec.md §4.7.
func (b *ChannelDefBox) Parse(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("channel def box too short: %w", errs.ErrCorruptBox)
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) != 2+n*6 {
		return fmt.Errorf("channel def box length mismatch: %w", errs.ErrCorruptBox)
	}
	b.Definitions = make([]ChannelDefinition, n)
	seenChan := make(map[uint16]bool, n)
	seenPair := make(map[[2]uint16]bool, n)
	for i := 0; i < n; i++ {
		off := 2 + i*6
		d := ChannelDefinition{
			Channel:     binary.BigEndian.Uint16(data[off : off+2]),
			Type:        binary.BigEndian.Uint16(data[off+2 : off+4]),
			Association: binary.BigEndian.Uint16(data[off+4 : off+6]),
		}
		if seenChan[d.Channel] {
			return fmt.Errorf("channel def box duplicate channel %d: %w", d.Channel, errs.ErrCorruptBox)
		}
		pair := [2]uint16{d.Type, d.Association}
		if seenPair[pair] {
			return fmt.Errorf("channel def box duplicate (type,association) pair: %w", errs.ErrCorruptBox)
		}
		seenChan[d.Channel] = true
		seenPair[pair] = true
		b.Definitions[i] = d
	}
	return nil
}

// Parse decodes a RES box's capture/display resolution sub-boxes.
func (b *ResolutionBox) Parse(data []byte) error {
	r := NewReader(&byteReader{data: data})
	for {
		sub, err := r.ReadBox()
		if err != nil {
			break
		}
		vrn, vrd, hrn, hrd, vre, hre, err := parseResSub(sub.Contents)
		if err != nil {
			xlog.Warnf("skipping malformed resolution sub-box", "type", sub.Type.String())
			continue
		}
		vr := resValue(vrn, vrd, vre)
		hr := resValue(hrn, hrd, hre)
		switch sub.Type {
		case TypeCaptureRes:
			b.CaptureResY, b.CaptureResX = vr, hr
		case TypeDisplayRes:
			b.DisplayResY, b.DisplayResX = vr, hr
		}
	}
	return nil
}

func parseResSub(data []byte) (vrn, vrd, hrn, hrd uint16, vre, hre int8, err error) {
	if len(data) < 10 {
		return 0, 0, 0, 0, 0, 0, fmt.Errorf("resolution sub-box too short: %w", errs.ErrCorruptBox)
	}
	vrn = binary.BigEndian.Uint16(data[0:2])
	vrd = binary.BigEndian.Uint16(data[2:4])
	hrn = binary.BigEndian.Uint16(data[4:6])
	hrd = binary.BigEndian.Uint16(data[6:8])
	vre = int8(data[8])
	hre = int8(data[9])
	return
}

func resValue(num, den uint16, exp int8) uint32 {
	if den == 0 {
		return 0
	}
	v := float64(num) / float64(den)
	if exp >= 0 {
		v *= float64(uint64(1) << uint(exp))
	} else {
		v /= float64(uint64(1) << uint(-exp))
	}
	return uint32(v)
}

// UUIDBox is a UUID box (spec.md §4.7): a 16-byte identity plus opaque
// vendor data, using google/uuid for the identity value so comparisons and
// string forms don't need a hand-rolled byte-array formatter.
type UUIDBox struct {
	ID   uuid.UUID
	Data []byte
}

// Parse decodes a UUID box's 16-byte identity and trailing payload.
func (b *UUIDBox) Parse(data []byte) error {
	if len(data) < 16 {
		return fmt.Errorf("uuid box too short: %w", errs.ErrCorruptBox)
	}
	id, err := uuid.FromBytes(data[:16])
	if err != nil {
		return fmt.Errorf("parsing uuid box identity: %w", errs.ErrCorruptBox)
	}
	b.ID = id
	b.Data = append([]byte(nil), data[16:]...)
	return nil
}

// Bytes re-serializes the UUID box.
func (b *UUIDBox) Bytes() []byte {
	out := make([]byte, 16+len(b.Data))
	idBytes, _ := b.ID.MarshalBinary()
	copy(out, idBytes)
	copy(out[16:], b.Data)
	return out
}

// AssocBox is an ASOC (association) super-box: a nested tree pairing a
// label/metadata box with one or more associated boxes, per spec.md §4.7.
type AssocBox struct {
	Children []*Box
}

// Parse walks an ASOC box's direct children. Nested ASOC boxes are left as
// raw *Box entries; callers recurse by re-invoking Parse on a child whose
// Type == TypeAssoc.
func (b *AssocBox) Parse(data []byte) error {
	r := NewReader(&byteReader{data: data})
	for {
		child, err := r.ReadBox()
		if err != nil {
			break
		}
		b.Children = append(b.Children, child)
	}
	return nil
}
