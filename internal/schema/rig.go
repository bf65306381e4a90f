package schema

import (
	"github.com/jchantrell/rpaktool/internal/rpak"
)

// RigHeader is the normalized animation rig (arig) header.
type RigHeader struct {
	Version      uint32
	Layout       Layout
	Name         rpak.Pointer
	StudioData   rpak.Pointer
	AnimSeqs     rpak.Pointer
	AnimSeqCount uint32
}

// SkeletonVersion returns the skeleton schema the rig's studio data uses.
func (h *RigHeader) SkeletonVersion() uint32 {
	if h.Layout == LayoutV16 {
		return SkeletonBoundary
	}
	return SkeletonLegacy
}

type rigHeaderV4 struct {
	Name         rpak.Pointer
	StudioData   rpak.Pointer
	AnimSeqCount uint32
	_            uint32
	AnimSeqs     rpak.Pointer
}

type rigHeaderV5 struct {
	StudioData   rpak.Pointer
	Name         rpak.Pointer
	_            uint32
	AnimSeqCount uint32
	AnimSeqs     rpak.Pointer
	_            uint64
}

// ParseRigHeader reads a rig header at addr. Versions below 5 use the
// legacy layout.
func ParseRigHeader(c *rpak.Cursor, addr uint64, version uint32) (*RigHeader, error) {
	layout, err := RigLayout(version)
	if err != nil {
		return nil, err
	}

	h := &RigHeader{Version: version, Layout: layout}
	switch layout {
	case LayoutLegacy:
		var raw rigHeaderV4
		if err := readAt(c, addr, &raw, "rig header"); err != nil {
			return nil, err
		}
		h.Name, h.StudioData, h.AnimSeqs, h.AnimSeqCount = raw.Name, raw.StudioData, raw.AnimSeqs, raw.AnimSeqCount
	case LayoutV16:
		var raw rigHeaderV5
		if err := readAt(c, addr, &raw, "rig header"); err != nil {
			return nil, err
		}
		h.Name, h.StudioData, h.AnimSeqs, h.AnimSeqCount = raw.Name, raw.StudioData, raw.AnimSeqs, raw.AnimSeqCount
	}
	return h, nil
}
