package anim

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"

	"github.com/jchantrell/rpaktool/internal/rpak"
)

// ErrMalformedValues is returned for value streams that end early or
// describe zero-length runs.
var ErrMalformedValues = errors.New("malformed value stream")

const (
	// channelRaw marks a channel stored as one constant value.
	channelRaw uint16 = 0x8000

	rotationScale = 1.0 / 32767.0
	scaleScale    = 1.0 / 4096.0
)

// RLEDecoder is the default ChannelDecoder. Each set channel starts with a
// u16 header. Raw channels hold a single value; animated channels hold
// one run-length encoded value list per component.
type RLEDecoder struct{}

var _ ChannelDecoder = RLEDecoder{}

func (RLEDecoder) DecodePosition(run *Run, stream *rpak.Cursor, out *Animation) error {
	raw, err := readChannelHeader(stream)
	if err != nil {
		return err
	}

	var pos mgl32.Vec3
	if raw {
		if pos, err = readHalf3(stream); err != nil {
			return err
		}
	} else {
		rest := out.Bones[run.Bone].Position
		for i := range pos {
			v, err := readComponent(stream, run.LocalFrame)
			if err != nil {
				return fmt.Errorf("component %d: %w", i, err)
			}
			pos[i] = float32(v) * run.Header.PosScale
			if !run.Additive {
				pos[i] += rest[i]
			}
		}
	}

	for i, p := range []Property{TranslateX, TranslateY, TranslateZ} {
		if err := out.AppendScalar(run.Bone, p, run.GlobalFrame, pos[i]); err != nil {
			return err
		}
	}
	return nil
}

func (RLEDecoder) DecodeRotation(run *Run, stream *rpak.Cursor, out *Animation) error {
	raw, err := readChannelHeader(stream)
	if err != nil {
		return err
	}

	var c [4]float32
	for i := range c {
		var v int16
		if raw {
			v, err = stream.Int16()
		} else {
			v, err = readComponent(stream, run.LocalFrame)
		}
		if err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		c[i] = float32(v) * rotationScale
	}

	q := mgl32.Quat{W: c[3], V: mgl32.Vec3{c[0], c[1], c[2]}}.Normalize()
	return out.AppendRotation(run.Bone, run.GlobalFrame, q)
}

func (RLEDecoder) DecodeScale(run *Run, stream *rpak.Cursor, out *Animation) error {
	raw, err := readChannelHeader(stream)
	if err != nil {
		return err
	}

	var s mgl32.Vec3
	if raw {
		if s, err = readHalf3(stream); err != nil {
			return err
		}
	} else {
		for i := range s {
			v, err := readComponent(stream, run.LocalFrame)
			if err != nil {
				return fmt.Errorf("component %d: %w", i, err)
			}
			s[i] = float32(v) * scaleScale
		}
	}

	for i, p := range []Property{ScaleX, ScaleY, ScaleZ} {
		if err := out.AppendScalar(run.Bone, p, run.GlobalFrame, s[i]); err != nil {
			return err
		}
	}
	return nil
}

func readChannelHeader(stream *rpak.Cursor) (bool, error) {
	h, err := stream.Uint16()
	if err != nil {
		return false, fmt.Errorf("%w: channel header: %v", ErrMalformedValues, err)
	}
	return h&channelRaw != 0, nil
}

func readHalf3(stream *rpak.Cursor) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i := range v {
		bits, err := stream.Uint16()
		if err != nil {
			return v, fmt.Errorf("%w: half float %d: %v", ErrMalformedValues, i, err)
		}
		v[i] = float16.Frombits(bits).Float32()
	}
	return v, nil
}

// readComponent reads one component's value list and returns its value
// at frame. The list is a word count followed by runs, each a header word
// (valid count low byte, total count high byte) and valid value words. A
// frame past the valid values of its run repeats the run's last value.
func readComponent(stream *rpak.Cursor, frame uint32) (int16, error) {
	count, err := stream.Uint16()
	if err != nil {
		return 0, fmt.Errorf("%w: word count: %v", ErrMalformedValues, err)
	}
	words := make([]uint16, count)
	for i := range words {
		if words[i], err = stream.Uint16(); err != nil {
			return 0, fmt.Errorf("%w: word %d of %d: %v", ErrMalformedValues, i, count, err)
		}
	}
	return ExtractValue(words, frame)
}

// ExtractValue returns the value at frame from a run-length encoded list.
func ExtractValue(words []uint16, frame uint32) (int16, error) {
	k := frame
	i := 0
	for {
		if i >= len(words) {
			return 0, fmt.Errorf("%w: frame %d past end of values", ErrMalformedValues, frame)
		}
		valid := uint32(words[i] & 0xFF)
		total := uint32(words[i] >> 8)
		if total == 0 || valid == 0 {
			return 0, fmt.Errorf("%w: empty run at word %d", ErrMalformedValues, i)
		}
		if k < total {
			idx := i + 1 + int(min(k, valid-1))
			if idx >= len(words) {
				return 0, fmt.Errorf("%w: run at word %d overruns values", ErrMalformedValues, i)
			}
			return int16(words[idx]), nil
		}
		k -= total
		i += int(valid) + 1
	}
}
