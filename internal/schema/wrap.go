package schema

import (
	"bytes"
	"fmt"

	"github.com/jchantrell/rpaktool/internal/rpak"
)

// WrapFlagCompressed marks a compressed wrap payload from version 8.
const WrapFlagCompressed uint16 = 0x1

// wrapCodecMagic is the two byte block header that marks a compressed
// payload in version 7 wraps, which have no flag for it.
var wrapCodecMagic = []byte{0x8C, 0x06}

// WrapHeader is the header of a wrapped raw file.
type WrapHeader struct {
	Version    uint32
	Name       rpak.Pointer
	Data       rpak.Pointer
	CmpSize    uint32
	DcmpSize   uint32
	Flags      uint16
	NameLength uint16
}

type wrapHeaderV7 struct {
	Name       rpak.Pointer
	Data       rpak.Pointer
	CmpSize    uint32
	DcmpSize   uint32
	Flags      uint16
	NameLength uint16
	_          uint32
}

// ParseWrapHeader reads a wrap header at addr.
func ParseWrapHeader(c *rpak.Cursor, addr uint64, version uint32) (*WrapHeader, error) {
	if !wrapVersions[version] {
		return nil, fmt.Errorf("%w: wrap version %d", ErrUnsupportedVersion, version)
	}

	var raw wrapHeaderV7
	if err := readAt(c, addr, &raw, "wrap header"); err != nil {
		return nil, err
	}
	return &WrapHeader{
		Version:    version,
		Name:       raw.Name,
		Data:       raw.Data,
		CmpSize:    raw.CmpSize,
		DcmpSize:   raw.DcmpSize,
		Flags:      raw.Flags,
		NameLength: raw.NameLength,
	}, nil
}

// Compressed reports whether the payload needs the codec. Version 7
// wraps are sniffed by their leading bytes; later versions use the flag.
// A payload that is not smaller than its decompressed size is stored.
func (h *WrapHeader) Compressed(head []byte) bool {
	if h.CmpSize >= h.DcmpSize {
		return false
	}
	if h.Version == 7 {
		return bytes.HasPrefix(head, wrapCodecMagic)
	}
	return h.Flags&WrapFlagCompressed != 0
}
