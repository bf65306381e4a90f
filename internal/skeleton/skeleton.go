// Package skeleton extracts bone hierarchies from rig studio data.
package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/schema"
)

// MaxBones is the largest skeleton animations can be decoded for.
const MaxBones = 256

// Bone is one joint with its local rest pose.
type Bone struct {
	Name     string
	Parent   int
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Clone returns an independent copy of a skeleton.
func Clone(bones []Bone) []Bone {
	out := make([]Bone, len(bones))
	copy(out, bones)
	return out
}

// StudioHeader is the part of a studio header needed to walk the bones and
// to dump the raw skeleton.
type StudioHeader struct {
	Version   uint32
	NumBones  uint32
	BoneIndex uint32

	// BoneHdrIndex is only used by the v16 layout, which splits bones into
	// a name table and a pose table.
	BoneHdrIndex uint32

	// Length is the number of bytes the skeleton occupies.
	Length uint32
}

type studioHeaderLegacy struct {
	ID            int32
	Version       int32
	Checksum      int32
	NameIndex     int32
	Name          [64]byte
	Length        int32
	EyePosition   [3]float32
	IllumPosition [3]float32
	HullMin       [3]float32
	HullMax       [3]float32
	ViewBBMin     [3]float32
	ViewBBMax     [3]float32
	Flags         int32
	NumBones      int32
	BoneIndex     int32
}

type studioHeaderV16 struct {
	Flags            int32
	Checksum         int32
	NameIndex        uint16
	SurfacePropIndex uint16
	KeyValueIndex    uint16
	NumBones         uint16
	BoneHdrIndex     uint16
	BoneDataIndex    uint16
	Length           int32
}

type boneLegacy struct {
	NameIndex int32
	Parent    int32
	Pos       [3]float32
	Quat      [4]float32
	Flags     int32
}

type boneHdrV16 struct {
	NameIndex int32
	Flags     int32
}

type boneDataV16 struct {
	Parent int16
	_      uint16
	Pos    [3]float32
	Quat   [4]float32
}

const (
	boneLegacySize  = 0x28
	boneHdrV16Size  = 0x8
	boneDataV16Size = 0x20
)

// checkTable fails unless count entries of size bytes fit between at and
// the end of the store.
func checkTable(c *rpak.Cursor, at uint64, count uint32, size uint64) error {
	end := uint64(c.Size())
	if at > end || uint64(count)*size > end-at {
		return fmt.Errorf("%w: %d bones of %d bytes at 0x%x", rpak.ErrOutOfBounds, count, size, at)
	}
	return nil
}

// ReadHeader reads the studio header at offset. Versions from 16 use the
// compact layout.
func ReadHeader(c *rpak.Cursor, offset uint64, version uint32) (*StudioHeader, error) {
	if err := c.Seek(offset); err != nil {
		return nil, err
	}

	if version >= schema.SkeletonBoundary {
		var raw studioHeaderV16
		if err := c.ReadStruct(&raw); err != nil {
			return nil, fmt.Errorf("reading v16 studio header at 0x%x: %w", offset, err)
		}
		h := &StudioHeader{
			Version:      version,
			NumBones:     uint32(raw.NumBones),
			BoneIndex:    uint32(raw.BoneDataIndex),
			BoneHdrIndex: uint32(raw.BoneHdrIndex),
			Length:       uint32(raw.BoneDataIndex) + boneDataV16Size*uint32(raw.NumBones),
		}
		if err := checkTable(c, offset+uint64(h.BoneHdrIndex), h.NumBones, boneHdrV16Size); err != nil {
			return nil, err
		}
		if err := checkTable(c, offset+uint64(h.BoneIndex), h.NumBones, boneDataV16Size); err != nil {
			return nil, err
		}
		return h, nil
	}

	var raw studioHeaderLegacy
	if err := c.ReadStruct(&raw); err != nil {
		return nil, fmt.Errorf("reading studio header at 0x%x: %w", offset, err)
	}
	if raw.NumBones < 0 || raw.BoneIndex < 0 || raw.Length < 0 {
		return nil, fmt.Errorf("studio header at 0x%x has negative counts", offset)
	}
	h := &StudioHeader{
		Version:   version,
		NumBones:  uint32(raw.NumBones),
		BoneIndex: uint32(raw.BoneIndex),
		Length:    uint32(raw.Length),
	}
	if err := checkTable(c, offset+uint64(h.BoneIndex), h.NumBones, boneLegacySize); err != nil {
		return nil, err
	}
	return h, nil
}

// Extract reads the skeleton whose studio header is at offset.
func Extract(c *rpak.Cursor, offset uint64, version uint32) ([]Bone, error) {
	h, err := ReadHeader(c, offset, version)
	if err != nil {
		return nil, err
	}

	bones := make([]Bone, h.NumBones)
	if version >= schema.SkeletonBoundary {
		err = extractV16(c, offset, h, bones)
	} else {
		err = extractLegacy(c, offset, h, bones)
	}
	if err != nil {
		return nil, err
	}

	for i, b := range bones {
		if b.Parent >= len(bones) || b.Parent == i {
			return nil, fmt.Errorf("bone %d (%s) has invalid parent %d", i, b.Name, b.Parent)
		}
	}
	return bones, nil
}

func extractLegacy(c *rpak.Cursor, offset uint64, h *StudioHeader, bones []Bone) error {
	raw := make([]boneLegacy, len(bones))
	if err := c.Seek(offset + uint64(h.BoneIndex)); err != nil {
		return err
	}
	if err := c.ReadStruct(raw); err != nil {
		return fmt.Errorf("reading %d bones: %w", len(bones), err)
	}

	for i, r := range raw {
		entry := offset + uint64(h.BoneIndex) + uint64(i)*boneLegacySize
		name, err := c.CStringAt(entry + uint64(r.NameIndex))
		if err != nil {
			return fmt.Errorf("reading name of bone %d: %w", i, err)
		}
		bones[i] = Bone{
			Name:     name,
			Parent:   int(r.Parent),
			Position: mgl32.Vec3(r.Pos),
			Rotation: quat(r.Quat),
		}
	}
	return nil
}

func extractV16(c *rpak.Cursor, offset uint64, h *StudioHeader, bones []Bone) error {
	hdrs := make([]boneHdrV16, len(bones))
	if err := c.Seek(offset + uint64(h.BoneHdrIndex)); err != nil {
		return err
	}
	if err := c.ReadStruct(hdrs); err != nil {
		return fmt.Errorf("reading %d bone headers: %w", len(bones), err)
	}

	data := make([]boneDataV16, len(bones))
	if err := c.Seek(offset + uint64(h.BoneIndex)); err != nil {
		return err
	}
	if err := c.ReadStruct(data); err != nil {
		return fmt.Errorf("reading %d bone poses: %w", len(bones), err)
	}

	for i := range bones {
		entry := offset + uint64(h.BoneHdrIndex) + uint64(i)*boneHdrV16Size
		name, err := c.CStringAt(entry + uint64(hdrs[i].NameIndex))
		if err != nil {
			return fmt.Errorf("reading name of bone %d: %w", i, err)
		}
		bones[i] = Bone{
			Name:     name,
			Parent:   int(data[i].Parent),
			Position: mgl32.Vec3(data[i].Pos),
			Rotation: quat(data[i].Quat),
		}
	}
	return nil
}

// quat converts file order (x, y, z, w).
func quat(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// Raw returns the skeleton's bytes as stored, header included.
func Raw(c *rpak.Cursor, offset uint64, version uint32) ([]byte, error) {
	h, err := ReadHeader(c, offset, version)
	if err != nil {
		return nil, err
	}
	if err := c.Seek(offset); err != nil {
		return nil, err
	}
	return c.Bytes(int(h.Length))
}
