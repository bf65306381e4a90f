package schema

import (
	"github.com/jchantrell/rpaktool/internal/rpak"
)

// Animation descriptor flags.
const (
	// FlagDelta marks an additive animation.
	FlagDelta uint32 = 0x4

	// FlagAllZeros marks an animation with no data.
	FlagAllZeros uint32 = 0x20

	// FlagRLE marks an animation stored as bone flag chunks. Blends
	// without it are not exported.
	FlagRLE uint32 = 0x20000
)

// BlendDesc is the normalized animation descriptor of one blend.
//
// Section parameters use one naming for both layouts: StaticFrames is the
// length of the irregular leading section and SectionFrames the length of
// every following one. Legacy descriptors store them as sectionframes and
// mediancount.
type BlendDesc struct {
	Layout        Layout
	NameIndex     uint32
	Fps           float32
	Flags         uint32
	NumFrames     uint32
	AnimIndex     int32
	SectionIndex  int32
	StaticFrames  uint32
	SectionFrames uint32

	// ExternalBase is an alternate streaming base for legacy external
	// chunks. Zero means the payload base is used.
	ExternalBase uint64
}

// Additive reports whether samples are deltas against the rest pose.
func (d *BlendDesc) Additive() bool {
	return d.Flags&FlagDelta != 0
}

// Empty reports whether the blend is flagged as holding no data.
func (d *BlendDesc) Empty() bool {
	return d.Flags&FlagAllZeros != 0
}

// Exportable reports whether the blend carries bone flag chunks.
func (d *BlendDesc) Exportable() bool {
	return d.Flags&FlagRLE != 0
}

// Chunked reports whether the blend is split into sections.
func (d *BlendDesc) Chunked() bool {
	return d.SectionFrames != 0
}

// SectionEntrySize is the byte size of one section table entry.
func (d *BlendDesc) SectionEntrySize() uint64 {
	if d.Layout == LayoutV16 {
		return 4
	}
	return 8
}

type animDescV7 struct {
	BasePtr             int32
	NameIndex           int32
	Fps                 float32
	Flags               int32
	NumFrames           int32
	NumMovements        int32
	MovementIndex       int32
	FrameMovementIndex  int32
	AnimIndex           int32
	NumIKRules          int32
	IKRuleIndex         int32
	NumLocalHierarchy   int32
	LocalHierarchyIndex int32
	SectionIndex        int32
	SectionFrames       int32
	MedianCount         int32
	SomeDataOffset      uint64
}

type animDescV16 struct {
	BasePtr             int32
	NameIndex           int32
	Fps                 float32
	Flags               int32
	NumFrames           int32
	NumMovements        int32
	FrameMovementIndex  int32
	AnimIndex           int32
	NumIKRules          int32
	IKRuleIndex         int32
	SectionIndex        int32
	SectionStaticFrames uint16
	SectionFrames       uint16
}

// ParseBlendDesc reads the animation descriptor at addr using the layout
// of the owning sequence descriptor.
func ParseBlendDesc(c *rpak.Cursor, addr uint64, layout Layout) (*BlendDesc, error) {
	d := &BlendDesc{Layout: layout}
	switch layout {
	case LayoutV16:
		var raw animDescV16
		if err := readAt(c, addr, &raw, "animation descriptor"); err != nil {
			return nil, err
		}
		d.NameIndex = fixOffset(uint16(raw.NameIndex))
		d.Fps = raw.Fps
		d.Flags = uint32(raw.Flags)
		d.NumFrames = uint32(raw.NumFrames)
		d.AnimIndex = raw.AnimIndex
		d.SectionIndex = raw.SectionIndex
		d.StaticFrames = uint32(raw.SectionStaticFrames)
		d.SectionFrames = uint32(raw.SectionFrames)
	default:
		var raw animDescV7
		if err := readAt(c, addr, &raw, "animation descriptor"); err != nil {
			return nil, err
		}
		d.NameIndex = uint32(raw.NameIndex)
		d.Fps = raw.Fps
		d.Flags = uint32(raw.Flags)
		d.NumFrames = uint32(raw.NumFrames)
		d.AnimIndex = raw.AnimIndex
		d.SectionIndex = raw.SectionIndex
		d.StaticFrames = uint32(raw.SectionFrames)
		d.SectionFrames = uint32(raw.MedianCount)
		d.ExternalBase = raw.SomeDataOffset
	}
	return d, nil
}

// BlendName reads the blend's name.
func BlendName(c *rpak.Cursor, descAddr uint64, d *BlendDesc) (string, error) {
	return c.CStringAt(descAddr + uint64(d.NameIndex))
}
