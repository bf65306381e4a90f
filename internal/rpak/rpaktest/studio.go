package rpaktest

import (
	"bytes"
)

// Bone describes one joint of a test skeleton.
type Bone struct {
	Name   string
	Parent int
	Pos    [3]float32
	Quat   [4]float32 // x, y, z, w
}

const (
	studioLegacySize = 0xA8
	boneLegacySize   = 0x28
	studioV16Size    = 0x18
	boneHdrV16Size   = 0x8
	boneDataV16Size  = 0x20
)

// StudioLegacy encodes a pre-v16 studio header followed by its bones and
// their names.
func StudioLegacy(bones []Bone) []byte {
	namesAt := studioLegacySize + boneLegacySize*len(bones)
	names, nameOffsets := nameBlock(bones)
	length := namesAt + len(names)

	var buf bytes.Buffer
	buf.Write(LE(int32(0x54534449), int32(10), int32(0)))
	buf.Write(LE(int32(0)))
	buf.Write(make([]byte, 64))
	buf.Write(LE(int32(length)))
	buf.Write(make([]byte, 6*12))
	buf.Write(LE(int32(0), int32(len(bones)), int32(studioLegacySize)))

	for i, b := range bones {
		entry := studioLegacySize + boneLegacySize*i
		buf.Write(LE(int32(namesAt+nameOffsets[i]-entry), int32(b.Parent), b.Pos, b.Quat, int32(0)))
	}
	buf.Write(names)
	return buf.Bytes()
}

// StudioV16 encodes a v16 studio header, bone name table, bone pose table
// and names.
func StudioV16(bones []Bone) []byte {
	hdrAt := studioV16Size
	dataAt := hdrAt + boneHdrV16Size*len(bones)
	namesAt := dataAt + boneDataV16Size*len(bones)
	names, nameOffsets := nameBlock(bones)

	var buf bytes.Buffer
	buf.Write(LE(int32(0), int32(0)))
	buf.Write(LE(uint16(0), uint16(0), uint16(0), uint16(len(bones)), uint16(hdrAt), uint16(dataAt)))
	buf.Write(LE(int32(namesAt + len(names))))

	for i := range bones {
		entry := hdrAt + boneHdrV16Size*i
		buf.Write(LE(int32(namesAt+nameOffsets[i]-entry), int32(0)))
	}
	for _, b := range bones {
		buf.Write(LE(int16(b.Parent), uint16(0), b.Pos, b.Quat))
	}
	buf.Write(names)
	return buf.Bytes()
}

func nameBlock(bones []Bone) ([]byte, []int) {
	var buf bytes.Buffer
	offsets := make([]int, len(bones))
	for i, b := range bones {
		offsets[i] = buf.Len()
		buf.WriteString(b.Name)
		buf.WriteByte(0)
	}
	return buf.Bytes(), offsets
}
