package rpaktest

import (
	"encoding/binary"

	"github.com/jchantrell/rpaktool/internal/rpak"
)

const (
	seqDescV7Size   = 0x68
	seqDescV11Size  = 0x48
	animDescV7Size  = 0x48
	animDescV16Size = 0x30
)

// Blend is an unchunked v16 animation descriptor and its bone chunk.
type Blend struct {
	Name      string
	Flags     uint32
	Fps       float32
	NumFrames uint32
	Chunk     []byte
}

// RigV5 encodes a version 5 rig header.
func RigV5(name, studio, seqs rpak.Pointer, seqCount uint32) []byte {
	return LE(studio, name, uint32(0), seqCount, seqs, uint64(0))
}

// RigV4 encodes a version 4 rig header.
func RigV4(name, studio, seqs rpak.Pointer, seqCount uint32) []byte {
	return LE(name, studio, seqCount, uint32(0), seqs)
}

// SeqHeaderV7 encodes a 0x30 byte version 7 sequence header.
func SeqHeaderV7(name, seqDesc rpak.Pointer) []byte {
	return LE(name, seqDesc, rpak.Pointer{}, rpak.Pointer{}, uint32(0), uint32(0), uint64(0))
}

// SeqHeaderV10 encodes a 0x40 byte sequence header.
func SeqHeaderV10(name, seqDesc rpak.Pointer) []byte {
	return LE(name, seqDesc, rpak.Pointer{}, rpak.Pointer{}, rpak.Pointer{},
		uint32(0), uint32(0), uint32(0), uint32(0), uint64(0))
}

// WrapHeader encodes a wrap header.
func WrapHeader(name, data rpak.Pointer, cmpSize, dcmpSize uint32, flags, nameLength uint16) []byte {
	return LE(name, data, cmpSize, dcmpSize, flags, nameLength, uint32(0))
}

// SeqDescV11 encodes a version 11 sequence descriptor followed by its
// blend table, activity name, descriptors, names and chunks. Every offset
// is relative to the start of the returned block.
func SeqDescV11(activity string, blends []Blend) []byte {
	out := make([]byte, seqDescV11Size)

	tableAt := len(out)
	out = append(out, make([]byte, pad8(2*len(blends)))...)

	activityAt := len(out)
	out = append(out, evenString(activity)...)
	out = append(out, make([]byte, pad8(len(out))-len(out))...)

	for i, b := range blends {
		at := len(out)
		binary.LittleEndian.PutUint16(out[tableAt+2*i:], uint16(at))

		name := evenString(b.Name)
		chunkAt := animDescV16Size + len(name)
		out = append(out, LE(
			int32(0), int32(animDescV16Size), b.Fps, b.Flags, int32(b.NumFrames),
			int32(0), int32(0), int32(chunkAt), int32(0), int32(0), int32(0),
			uint16(0), uint16(0))...)
		out = append(out, name...)
		out = append(out, b.Chunk...)
		out = append(out, make([]byte, pad8(len(out))-len(out))...)
	}

	copy(out, LE(uint16(0), uint16(activityAt), int32(0), int16(0), int16(0),
		uint16(0), int16(0), [6]float32{}, int16(len(blends)), uint16(tableAt)))
	return out
}

// SeqDescV7 encodes a legacy sequence descriptor with a 32-bit blend
// table and legacy animation descriptors, laid out like SeqDescV11.
func SeqDescV7(activity string, blends []Blend) []byte {
	out := make([]byte, seqDescV7Size)

	tableAt := len(out)
	out = append(out, make([]byte, pad8(4*len(blends)))...)

	activityAt := len(out)
	out = append(out, evenString(activity)...)
	out = append(out, make([]byte, pad8(len(out))-len(out))...)

	for i, b := range blends {
		at := len(out)
		binary.LittleEndian.PutUint32(out[tableAt+4*i:], uint32(at))

		name := evenString(b.Name)
		chunkAt := animDescV7Size + len(name)
		out = append(out, LE(
			int32(0), int32(animDescV7Size), b.Fps, b.Flags, int32(b.NumFrames),
			int32(0), int32(0), int32(0), int32(chunkAt), int32(0), int32(0),
			int32(0), int32(0), int32(0), int32(0), int32(0), uint64(0))...)
		out = append(out, name...)
		out = append(out, b.Chunk...)
		out = append(out, make([]byte, pad8(len(out))-len(out))...)
	}

	copy(out, LE(int32(0), int32(0), int32(activityAt), int32(0), int32(0), int32(0), int32(0), int32(0),
		[6]float32{}, int32(len(blends)), int32(tableAt)))
	return out
}

// evenString NUL-terminates s and pads it to an even length so the
// offset after it survives the v16 name offset encoding.
func evenString(s string) []byte {
	b := append([]byte(s), 0)
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	return b
}

func pad8(n int) int {
	return (n + 7) &^ 7
}
