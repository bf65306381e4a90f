package rpaktest

import (
	"bytes"

	"github.com/x448/float16"
)

// Bitmap encodes a channel bitmap, one nibble per bone.
func Bitmap(flags ...uint8) []byte {
	out := make([]byte, ((4*len(flags)+7)/8+1)&^1)
	for b, f := range flags {
		out[b/2] |= (f & 0xF) << (4 * (b % 2))
	}
	return out
}

// Run encodes a run header followed by channel streams.
func Run(posScale float32, channels ...[]byte) []byte {
	stream := bytes.Join(channels, nil)
	return append(LE(posScale, int16(8+len(stream)), uint16(0)), stream...)
}

// RawVector encodes a constant position or scale channel.
func RawVector(x, y, z float32) []byte {
	return LE(uint16(0x8000),
		float16.Fromfloat32(x).Bits(),
		float16.Fromfloat32(y).Bits(),
		float16.Fromfloat32(z).Bits())
}

// RawRotation encodes a constant rotation channel from components scaled
// by 32767.
func RawRotation(x, y, z, w int16) []byte {
	return LE(uint16(0x8000), x, y, z, w)
}

// Animated encodes an animated channel from per-component value lists.
func Animated(components ...[]uint16) []byte {
	var buf bytes.Buffer
	buf.Write(LE(uint16(0)))
	for _, words := range components {
		buf.Write(LE(uint16(len(words))))
		buf.Write(LE(words))
	}
	return buf.Bytes()
}

// Values encodes one run holding a value per frame.
func Values(values ...int16) []uint16 {
	n := uint16(len(values))
	words := []uint16{n<<8 | n}
	for _, v := range values {
		words = append(words, uint16(v))
	}
	return words
}
