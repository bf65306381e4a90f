package rpak

import (
	"fmt"
)

// Pointer is a logical (segment index, offset) reference. It is only
// meaningful relative to the container whose asset produced it.
type Pointer struct {
	Index  uint32
	Offset uint32
}

func (p Pointer) String() string {
	return fmt.Sprintf("%d:0x%x", p.Index, p.Offset)
}

// AssetType is the four character code identifying an asset kind.
type AssetType uint32

const (
	TypeAnimRig  AssetType = 0x67697261 // arig
	TypeAnimSeq  AssetType = 0x71657361 // aseq
	TypeWrap     AssetType = 0x70617277 // wrap
	TypeTexture  AssetType = 0x72747874 // txtr
	TypeMaterial AssetType = 0x6c74616d // matl
	TypeModel    AssetType = 0x5f6c646d // mdl_
)

func (t AssetType) String() string {
	b := []byte{byte(t), byte(t >> 8), byte(t >> 16), byte(t >> 24)}
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = '?'
		}
	}
	return string(b)
}

// ParseAssetType converts a four character code such as "aseq".
func ParseAssetType(s string) (AssetType, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("asset type %q must be four characters", s)
	}
	return AssetType(uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24), nil
}

// NotStreamed marks an asset streaming offset that is not in use.
const NotStreamed = ^uint64(0)

// streamFlagMask covers the low byte of a streaming offset. The byte is
// reserved and masked off before the offset is used as an address.
const streamFlagMask = 0xFF

// StreamKind names where an asset payload lives.
type StreamKind int

const (
	StreamInline StreamKind = iota
	StreamStandard
	StreamOptimal
)

func (k StreamKind) String() string {
	switch k {
	case StreamStandard:
		return "standard"
	case StreamOptimal:
		return "optimal"
	default:
		return "inline"
	}
}

// Asset is one entry of a container's asset table. It is immutable once
// loaded.
type Asset struct {
	GUID             uint64
	SubHeader        Pointer
	RawData          Pointer
	StarpakOffset    uint64
	OptStarpakOffset uint64
	PageEnd          uint16
	SubHeaderSize    uint32
	Version          uint32
	Type             AssetType

	container *Container
}

// Container returns the container that holds the asset.
func (a *Asset) Container() *Container {
	return a.container
}

// Resolve turns a pointer found in this asset's data into an absolute
// address inside the asset's container.
func (a *Asset) Resolve(p Pointer) (uint64, error) {
	return a.container.Resolve(p)
}

// Stream reports which streaming file holds the asset payload, if any,
// and the address of the payload inside it. The optimal file wins when
// both are set.
func (a *Asset) Stream() (StreamKind, uint64) {
	if a.OptStarpakOffset != NotStreamed {
		return StreamOptimal, a.OptStarpakOffset &^ streamFlagMask
	}
	if a.StarpakOffset != NotStreamed {
		return StreamStandard, a.StarpakOffset &^ streamFlagMask
	}
	return StreamInline, 0
}

func (a *Asset) String() string {
	return fmt.Sprintf("%s 0x%x (v%d)", a.Type, a.GUID, a.Version)
}
