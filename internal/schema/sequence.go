package schema

import (
	"fmt"

	"github.com/jchantrell/rpaktool/internal/rpak"
)

// SeqHeader is the normalized sequence (aseq) asset header.
type SeqHeader struct {
	Version          uint32
	Name             rpak.Pointer
	Animation        rpak.Pointer
	ModelRefs        rpak.Pointer
	Settings         rpak.Pointer
	ExternalData     rpak.Pointer
	ModelCount       uint32
	SettingsCount    uint32
	ExternalDataSize uint32
}

// HasExternalData reports whether the sequence carries an external data
// block.
func (h *SeqHeader) HasExternalData() bool {
	return h.ExternalData.Index != 0 || h.ExternalDataSize != 0
}

type seqHeaderV7 struct {
	Name          rpak.Pointer
	Animation     rpak.Pointer
	ModelRefs     rpak.Pointer
	Settings      rpak.Pointer
	ModelCount    uint32
	SettingsCount uint32
	_             uint64
}

type seqHeaderV71 struct {
	Name          rpak.Pointer
	Animation     rpak.Pointer
	ModelRefs     rpak.Pointer
	Settings      rpak.Pointer
	ExternalData  rpak.Pointer
	ModelCount    uint32
	SettingsCount uint32
	_             uint64
}

type seqHeaderV10 struct {
	Name             rpak.Pointer
	Animation        rpak.Pointer
	ModelRefs        rpak.Pointer
	Settings         rpak.Pointer
	ExternalData     rpak.Pointer
	ModelCount       uint32
	SettingsCount    uint32
	ExternalDataSize uint32
	_                uint32
	_                uint64
}

// seqHeaderSizes lists the sub-header sizes each version may declare.
var seqHeaderSizes = map[uint32][]uint32{
	7:  {0x30, 0x38},
	10: {0x40},
	11: {0x40},
	12: {0x40},
}

// ParseSeqHeader reads a sequence header at addr. Version 7 comes in two
// sizes; the declared sub-header size must be one the version allows.
func ParseSeqHeader(c *rpak.Cursor, addr uint64, version, subHeaderSize uint32) (*SeqHeader, error) {
	sizes, ok := seqHeaderSizes[version]
	if !ok {
		return nil, fmt.Errorf("%w: sequence version %d", ErrUnsupportedVersion, version)
	}
	known := false
	for _, s := range sizes {
		known = known || s == subHeaderSize
	}
	if !known {
		return nil, fmt.Errorf("%w: sequence version %d with sub-header size 0x%x", ErrUnsupportedVersion, version, subHeaderSize)
	}

	h := &SeqHeader{Version: version}
	switch subHeaderSize {
	case 0x30:
		var raw seqHeaderV7
		if err := readAt(c, addr, &raw, "sequence header"); err != nil {
			return nil, err
		}
		h.Name, h.Animation, h.ModelRefs, h.Settings = raw.Name, raw.Animation, raw.ModelRefs, raw.Settings
		h.ModelCount, h.SettingsCount = raw.ModelCount, raw.SettingsCount
	case 0x38:
		var raw seqHeaderV71
		if err := readAt(c, addr, &raw, "sequence header"); err != nil {
			return nil, err
		}
		h.Name, h.Animation, h.ModelRefs, h.Settings = raw.Name, raw.Animation, raw.ModelRefs, raw.Settings
		h.ExternalData = raw.ExternalData
		h.ModelCount, h.SettingsCount = raw.ModelCount, raw.SettingsCount
	case 0x40:
		var raw seqHeaderV10
		if err := readAt(c, addr, &raw, "sequence header"); err != nil {
			return nil, err
		}
		h.Name, h.Animation, h.ModelRefs, h.Settings = raw.Name, raw.Animation, raw.ModelRefs, raw.Settings
		h.ExternalData, h.ExternalDataSize = raw.ExternalData, raw.ExternalDataSize
		h.ModelCount, h.SettingsCount = raw.ModelCount, raw.SettingsCount
	}
	return h, nil
}

// SeqDesc is the normalized sequence descriptor. Index fields are offsets
// relative to the descriptor's own address.
type SeqDesc struct {
	Layout            Layout
	LabelIndex        uint32
	ActivityNameIndex uint32
	Flags             uint32
	NumBlends         uint32
	AnimIndexIndex    uint32
	GroupSize         [2]int32
}

type seqDescV7 struct {
	BasePtr           int32
	LabelIndex        int32
	ActivityNameIndex int32
	Flags             int32
	Activity          int32
	ActWeight         int32
	NumEvents         int32
	EventIndex        int32
	BBMin             [3]float32
	BBMax             [3]float32
	NumBlends         int32
	AnimIndexIndex    int32
	MovementIndex     int32
	GroupSize         [2]int32
	ParamIndex        [2]int32
	ParamStart        [2]float32
	ParamEnd          [2]float32
	ParamParent       int32
}

type seqDescV11 struct {
	LabelIndex        uint16
	ActivityNameIndex uint16
	Flags             int32
	Activity          int16
	ActWeight         int16
	EventIndex        uint16
	NumEvents         int16
	BBMin             [3]float32
	BBMax             [3]float32
	NumBlends         int16
	AnimIndexIndex    uint16
	MovementIndex     int16
	GroupSize         [2]int16
	ParamIndex        [2]int16
	_                 uint16
	ParamStart        [2]float32
	ParamEnd          [2]float32
}

// ParseSeqDesc reads the sequence descriptor at addr. Versions from 11
// use 16-bit index fields and a 16-bit blend index table.
func ParseSeqDesc(c *rpak.Cursor, addr uint64, version uint32) (*SeqDesc, error) {
	layout, err := SequenceLayout(version)
	if err != nil {
		return nil, err
	}

	d := &SeqDesc{Layout: layout}
	switch layout {
	case LayoutLegacy:
		var raw seqDescV7
		if err := readAt(c, addr, &raw, "sequence descriptor"); err != nil {
			return nil, err
		}
		d.LabelIndex = uint32(raw.LabelIndex)
		d.ActivityNameIndex = uint32(raw.ActivityNameIndex)
		d.Flags = uint32(raw.Flags)
		d.NumBlends = uint32(raw.NumBlends)
		d.AnimIndexIndex = uint32(raw.AnimIndexIndex)
		d.GroupSize = raw.GroupSize
	case LayoutV16:
		var raw seqDescV11
		if err := readAt(c, addr, &raw, "sequence descriptor"); err != nil {
			return nil, err
		}
		d.LabelIndex = fixOffset(raw.LabelIndex)
		d.ActivityNameIndex = uint32(raw.ActivityNameIndex)
		d.Flags = uint32(raw.Flags)
		d.NumBlends = uint32(uint16(raw.NumBlends))
		d.AnimIndexIndex = uint32(raw.AnimIndexIndex)
		d.GroupSize = [2]int32{int32(raw.GroupSize[0]), int32(raw.GroupSize[1])}
	}
	return d, nil
}

// BlendOffset reads entry i of the blend index table: the offset of the
// blend's animation descriptor relative to the sequence descriptor.
func (d *SeqDesc) BlendOffset(c *rpak.Cursor, seqAddr uint64, i uint32) (uint64, error) {
	if i >= d.NumBlends {
		return 0, fmt.Errorf("blend %d out of range (%d blends)", i, d.NumBlends)
	}

	if d.Layout == LayoutV16 {
		if err := c.Seek(seqAddr + uint64(d.AnimIndexIndex) + 2*uint64(i)); err != nil {
			return 0, err
		}
		v, err := c.Uint16()
		if err != nil {
			return 0, fmt.Errorf("reading blend index %d: %w", i, err)
		}
		return uint64(v), nil
	}

	if err := c.Seek(seqAddr + uint64(d.AnimIndexIndex) + 4*uint64(i)); err != nil {
		return 0, err
	}
	v, err := c.Int32()
	if err != nil {
		return 0, fmt.Errorf("reading blend index %d: %w", i, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("blend %d has negative descriptor offset %d", i, v)
	}
	return uint64(v), nil
}
