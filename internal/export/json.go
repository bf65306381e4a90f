package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jchantrell/rpaktool/internal/anim"
)

// JSONExporter writes animations as JSON documents.
type JSONExporter struct {
	Indent bool
}

func (JSONExporter) Name() string      { return "json" }
func (JSONExporter) Extension() string { return ".json" }

type jsonAnimation struct {
	Name       string      `json:"name"`
	FrameRate  float32     `json:"frame_rate"`
	FrameCount uint32      `json:"frame_count"`
	Mode       string      `json:"mode"`
	Bones      []jsonBone  `json:"bones"`
	Curves     []jsonCurve `json:"curves"`
}

type jsonBone struct {
	Name     string     `json:"name"`
	Parent   int        `json:"parent"`
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"`
}

type jsonCurve struct {
	Bone     string       `json:"bone"`
	Property string       `json:"property"`
	Frames   []uint32     `json:"frames"`
	Values   []float32    `json:"values,omitempty"`
	Quats    [][4]float32 `json:"quats,omitempty"`
}

func (e JSONExporter) ExportAnimation(a *anim.Animation, path string) error {
	doc := jsonAnimation{
		Name:       a.Name,
		FrameRate:  a.FrameRate,
		FrameCount: a.FrameCount,
		Mode:       a.Mode.String(),
		Bones:      make([]jsonBone, len(a.Bones)),
		Curves:     []jsonCurve{},
	}

	for i, b := range a.Bones {
		doc.Bones[i] = jsonBone{
			Name:     b.Name,
			Parent:   b.Parent,
			Position: b.Position,
			Rotation: [4]float32{b.Rotation.V[0], b.Rotation.V[1], b.Rotation.V[2], b.Rotation.W},
		}

		for _, c := range a.Curves(i) {
			jc := jsonCurve{Bone: b.Name, Property: c.Property.String()}
			if c.Property == anim.RotateQuaternion {
				for _, k := range c.Rotations {
					jc.Frames = append(jc.Frames, k.Frame)
					jc.Quats = append(jc.Quats, [4]float32{k.Value.V[0], k.Value.V[1], k.Value.V[2], k.Value.W})
				}
			} else {
				for _, k := range c.Keys {
					jc.Frames = append(jc.Frames, k.Frame)
					jc.Values = append(jc.Values, k.Value)
				}
			}
			doc.Curves = append(doc.Curves, jc)
		}
	}

	var data []byte
	var err error
	if e.Indent {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encoding animation %s: %w", a.Name, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
