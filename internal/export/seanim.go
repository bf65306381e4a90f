package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/jchantrell/rpaktool/internal/anim"
)

const (
	seanimVersion    uint16 = 1
	seanimHeaderSize uint16 = 0x1C

	seanimAbsolute uint8 = 0
	seanimAdditive uint8 = 1

	seanimBoneLoc   uint8 = 0x1
	seanimBoneRot   uint8 = 0x2
	seanimBoneScale uint8 = 0x4
)

var seanimMagic = [6]byte{'S', 'E', 'A', 'n', 'i', 'm'}

type seanimHeader struct {
	Magic        [6]byte
	Version      uint16
	HeaderSize   uint16
	AnimType     uint8
	Flags        uint8
	DataPresence uint8
	DataProperty uint8
	_            [2]byte
	FrameRate    float32
	FrameCount   uint32
	BoneCount    uint32
	ModCount     uint8
	_            [3]byte
	NoteCount    uint32
}

// SEAnimExporter writes SEAnim files.
type SEAnimExporter struct{}

func (SEAnimExporter) Name() string      { return "seanim" }
func (SEAnimExporter) Extension() string { return ".seanim" }

func (e SEAnimExporter) ExportAnimation(a *anim.Animation, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := e.write(w, a); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func (SEAnimExporter) write(w *bufio.Writer, a *anim.Animation) error {
	h := seanimHeader{
		Magic:      seanimMagic,
		Version:    seanimVersion,
		HeaderSize: seanimHeaderSize,
		AnimType:   seanimAbsolute,
		FrameRate:  a.FrameRate,
		FrameCount: a.FrameCount,
		BoneCount:  uint32(len(a.Bones)),
	}
	if a.Mode == anim.Additive {
		h.AnimType = seanimAdditive
	}
	if h.FrameRate == 0 {
		h.FrameRate = 30
	}

	for b := range a.Bones {
		for _, c := range a.Curves(b) {
			switch c.Property {
			case anim.RotateQuaternion:
				h.DataPresence |= seanimBoneRot
			case anim.TranslateX, anim.TranslateY, anim.TranslateZ:
				h.DataPresence |= seanimBoneLoc
			default:
				h.DataPresence |= seanimBoneScale
			}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	for _, b := range a.Bones {
		w.WriteString(b.Name)
		w.WriteByte(0)
	}

	frameWidth := seanimFrameWidth(a.FrameCount)
	for b, bone := range a.Bones {
		// per-bone flags, unused
		w.WriteByte(0)

		if h.DataPresence&seanimBoneLoc != 0 {
			def := [3]float32{}
			if a.Mode == anim.Absolute {
				def = bone.Position
			}
			frames, values := sampleVectors(a, b, [3]anim.Property{anim.TranslateX, anim.TranslateY, anim.TranslateZ}, def)
			if err := writeVectorKeys(w, frameWidth, frames, values); err != nil {
				return err
			}
		}

		if h.DataPresence&seanimBoneRot != 0 {
			var keys []anim.RotationKey
			if c := rotationCurve(a, b); c != nil {
				keys = c.Rotations
			}
			if err := writeFrame(w, frameWidth, uint32(len(keys))); err != nil {
				return err
			}
			for _, k := range keys {
				if err := writeFrame(w, frameWidth, k.Frame); err != nil {
					return err
				}
				q := [4]float32{k.Value.V[0], k.Value.V[1], k.Value.V[2], k.Value.W}
				if err := binary.Write(w, binary.LittleEndian, q); err != nil {
					return err
				}
			}
		}

		if h.DataPresence&seanimBoneScale != 0 {
			frames, values := sampleVectors(a, b, [3]anim.Property{anim.ScaleX, anim.ScaleY, anim.ScaleZ}, [3]float32{1, 1, 1})
			if err := writeVectorKeys(w, frameWidth, frames, values); err != nil {
				return err
			}
		}
	}
	return nil
}

// seanimFrameWidth is the byte width of frame numbers and key counts.
func seanimFrameWidth(frames uint32) int {
	switch {
	case frames <= 0xFF:
		return 1
	case frames <= 0xFFFF:
		return 2
	}
	return 4
}

func writeFrame(w *bufio.Writer, width int, v uint32) error {
	switch width {
	case 1:
		return w.WriteByte(uint8(v))
	case 2:
		return binary.Write(w, binary.LittleEndian, uint16(v))
	}
	return binary.Write(w, binary.LittleEndian, v)
}

func writeVectorKeys(w *bufio.Writer, width int, frames []uint32, values [][3]float32) error {
	if err := writeFrame(w, width, uint32(len(frames))); err != nil {
		return err
	}
	for i, f := range frames {
		if err := writeFrame(w, width, f); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, values[i]); err != nil {
			return err
		}
	}
	return nil
}
