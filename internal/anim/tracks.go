package anim

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/skeleton"
)

// ErrTooManyBones is returned for skeletons larger than skeleton.MaxBones.
var ErrTooManyBones = errors.New("too many bones")

// Channel bits of a bone's nibble in the channel bitmap.
const (
	ChannelPosition uint8 = 0x1
	ChannelRotation uint8 = 0x2
	ChannelScale    uint8 = 0x4

	channelMask = ChannelPosition | ChannelRotation | ChannelScale
)

// RunHeaderSize is the encoded size of a RunHeader.
const RunHeaderSize = 8

// RunHeader precedes the value stream of each flagged bone. Size counts
// the header itself.
type RunHeader struct {
	PosScale float32
	Size     int16
	Flags    uint16
}

// StreamLength returns the number of value stream bytes after the header.
func (h RunHeader) StreamLength() int {
	if h.Size <= RunHeaderSize {
		return 0
	}
	return int(h.Size) - RunHeaderSize
}

// BitmapSize returns the channel bitmap length for a bone count: one
// nibble per bone, rounded to an even number of bytes.
func BitmapSize(bones int) int {
	return ((4*bones+7)/8 + 1) &^ 1
}

// ChannelBitmap holds one nibble per bone, two bones per byte, low nibble
// first.
type ChannelBitmap []byte

// Flags returns the channel bits of a bone.
func (b ChannelBitmap) Flags(bone int) uint8 {
	return (b[bone/2] >> (4 * (bone % 2))) & channelMask
}

// Run is one bone's data for one frame, handed to a ChannelDecoder.
type Run struct {
	Header      RunHeader
	Bone        int
	LocalFrame  uint32
	GlobalFrame uint32
	Additive    bool
}

// ChannelDecoder turns a bone's value stream into samples. The three
// methods are called in position, rotation, scale order on the same
// stream, each consuming its own part of it.
type ChannelDecoder interface {
	DecodePosition(run *Run, stream *rpak.Cursor, out *Animation) error
	DecodeRotation(run *Run, stream *rpak.Cursor, out *Animation) error
	DecodeScale(run *Run, stream *rpak.Cursor, out *Animation) error
}

// Frame places a decoded chunk: the frame inside the chunk and in the
// whole animation.
type Frame struct {
	Local  uint32
	Global uint32
}

// DecodeChunk reads the channel bitmap at addr and the run of every
// flagged bone that follows it, passing each set channel to dec.
func DecodeChunk(c *rpak.Cursor, addr uint64, bones int, frame Frame, additive bool, dec ChannelDecoder, out *Animation) error {
	if bones > skeleton.MaxBones {
		return fmt.Errorf("%w: %d bones, at most %d supported", ErrTooManyBones, bones, skeleton.MaxBones)
	}

	if err := c.Seek(addr); err != nil {
		return fmt.Errorf("seeking to chunk at 0x%x: %w", addr, err)
	}
	raw, err := c.Bytes(BitmapSize(bones))
	if err != nil {
		return fmt.Errorf("reading channel bitmap at 0x%x: %w", addr, err)
	}
	bitmap := ChannelBitmap(raw)

	for b := 0; b < bones; b++ {
		flags := bitmap.Flags(b)
		if flags == 0 {
			continue
		}

		var h RunHeader
		if err := c.ReadStruct(&h); err != nil {
			return fmt.Errorf("reading run header of bone %d: %w", b, err)
		}
		data, err := c.Bytes(h.StreamLength())
		if err != nil {
			return fmt.Errorf("reading %d byte value stream of bone %d: %w", h.StreamLength(), b, err)
		}

		run := &Run{
			Header:      h,
			Bone:        b,
			LocalFrame:  frame.Local,
			GlobalFrame: frame.Global,
			Additive:    additive,
		}
		stream := rpak.NewCursor(bytes.NewReader(data))

		if flags&ChannelPosition != 0 {
			if err := dec.DecodePosition(run, stream, out); err != nil {
				return fmt.Errorf("bone %d position: %w", b, err)
			}
		}
		if flags&ChannelRotation != 0 {
			if err := dec.DecodeRotation(run, stream, out); err != nil {
				return fmt.Errorf("bone %d rotation: %w", b, err)
			}
		}
		if flags&ChannelScale != 0 {
			if err := dec.DecodeScale(run, stream, out); err != nil {
				return fmt.Errorf("bone %d scale: %w", b, err)
			}
		}
	}
	return nil
}
