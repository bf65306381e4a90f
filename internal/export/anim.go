package export

import (
	"fmt"
	"path/filepath"

	"github.com/jchantrell/rpaktool/internal/anim"
)

// AnimExporter writes a decoded animation to disk.
type AnimExporter interface {
	Name() string
	Extension() string
	ExportAnimation(a *anim.Animation, path string) error
}

// Formats lists the animation formats by name.
var Formats = map[string]func() AnimExporter{
	"seanim": func() AnimExporter { return SEAnimExporter{} },
	"json":   func() AnimExporter { return JSONExporter{Indent: true} },
}

// NewAnimExporter returns the exporter for a format name.
func NewAnimExporter(format string) (AnimExporter, error) {
	newExporter, ok := Formats[format]
	if !ok {
		return nil, fmt.Errorf("unknown animation format %q", format)
	}
	return newExporter(), nil
}

// AnimationPath returns dir/<sequence>_<blend><ext>.
func AnimationPath(dir, sequence string, blend uint32, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", sequence, blend, ext))
}

// sampleVectors merges three per-axis curves into one vector per frame.
// Axes without a sample on a frame keep def.
func sampleVectors(a *anim.Animation, bone int, axes [3]anim.Property, def [3]float32) ([]uint32, [][3]float32) {
	index := make(map[uint32]int)
	var frames []uint32
	var values [][3]float32

	for _, c := range a.Curves(bone) {
		axis := -1
		for i, p := range axes {
			if c.Property == p {
				axis = i
			}
		}
		if axis < 0 {
			continue
		}
		for _, k := range c.Keys {
			i, ok := index[k.Frame]
			if !ok {
				i = len(frames)
				index[k.Frame] = i
				frames = append(frames, k.Frame)
				values = append(values, def)
			}
			values[i][axis] = k.Value
		}
	}

	sortFrames(frames, values)
	return frames, values
}

func sortFrames(frames []uint32, values [][3]float32) {
	// insertion sort; curves are already in frame order so this is linear
	for i := 1; i < len(frames); i++ {
		for j := i; j > 0 && frames[j] < frames[j-1]; j-- {
			frames[j], frames[j-1] = frames[j-1], frames[j]
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

func rotationCurve(a *anim.Animation, bone int) *anim.Curve {
	for _, c := range a.Curves(bone) {
		if c.Property == anim.RotateQuaternion {
			return c
		}
	}
	return nil
}
