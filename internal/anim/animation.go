// Package anim decodes chunked bone animation data into curves.
package anim

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/rpaktool/internal/skeleton"
)

// ErrFrameOrder is returned when a sample would go before the last one
// already on its curve.
var ErrFrameOrder = errors.New("frame out of order")

// Property is the bone attribute a curve animates.
type Property int

const (
	RotateQuaternion Property = iota
	TranslateX
	TranslateY
	TranslateZ
	ScaleX
	ScaleY
	ScaleZ

	propertyCount
)

var propertyNames = [propertyCount]string{"rotq", "tx", "ty", "tz", "sx", "sy", "sz"}

func (p Property) String() string {
	if p < 0 || p >= propertyCount {
		return fmt.Sprintf("property(%d)", int(p))
	}
	return propertyNames[p]
}

// CurveMode says how samples combine with the rest pose.
type CurveMode int

const (
	Absolute CurveMode = iota
	Additive
)

func (m CurveMode) String() string {
	if m == Additive {
		return "additive"
	}
	return "absolute"
}

// Key is a scalar sample.
type Key struct {
	Frame uint32
	Value float32
}

// RotationKey is a quaternion sample.
type RotationKey struct {
	Frame uint32
	Value mgl32.Quat
}

// Curve holds the samples of one property of one bone. Rotation curves
// use Rotations, every other property uses Keys.
type Curve struct {
	Bone      int
	Property  Property
	Mode      CurveMode
	Keys      []Key
	Rotations []RotationKey
}

// Len returns the number of samples.
func (c *Curve) Len() int {
	if c.Property == RotateQuaternion {
		return len(c.Rotations)
	}
	return len(c.Keys)
}

func (c *Curve) lastFrame() (uint32, bool) {
	if c.Property == RotateQuaternion {
		if len(c.Rotations) == 0 {
			return 0, false
		}
		return c.Rotations[len(c.Rotations)-1].Frame, true
	}
	if len(c.Keys) == 0 {
		return 0, false
	}
	return c.Keys[len(c.Keys)-1].Frame, true
}

// Animation is a skeleton plus its curves. It owns a private copy of the
// bones it was created from.
type Animation struct {
	Name       string
	FrameRate  float32
	FrameCount uint32
	Mode       CurveMode
	Bones      []skeleton.Bone

	// curves[bone][property]; nil once pruned
	curves [][]*Curve
}

// NewAnimation copies bones and seeds one empty curve for every bone and
// property so decoding can write samples sparsely.
func NewAnimation(bones []skeleton.Bone, mode CurveMode) *Animation {
	a := &Animation{
		Mode:   mode,
		Bones:  skeleton.Clone(bones),
		curves: make([][]*Curve, len(bones)),
	}
	for b := range a.curves {
		a.curves[b] = make([]*Curve, propertyCount)
		for p := Property(0); p < propertyCount; p++ {
			a.curves[b][p] = &Curve{Bone: b, Property: p, Mode: mode}
		}
	}
	return a
}

func (a *Animation) curve(bone int, p Property) (*Curve, error) {
	if bone < 0 || bone >= len(a.curves) {
		return nil, fmt.Errorf("bone %d out of range (%d bones)", bone, len(a.curves))
	}
	if p < 0 || p >= propertyCount {
		return nil, fmt.Errorf("unknown property %d", int(p))
	}
	c := a.curves[bone][p]
	if c == nil {
		return nil, fmt.Errorf("curve %s of bone %d was pruned", p, bone)
	}
	return c, nil
}

func (a *Animation) checkOrder(c *Curve, frame uint32) error {
	if last, ok := c.lastFrame(); ok && frame < last {
		return fmt.Errorf("%w: %s of bone %d at frame %d after %d", ErrFrameOrder, c.Property, c.Bone, frame, last)
	}
	if frame >= a.FrameCount {
		a.FrameCount = frame + 1
	}
	return nil
}

// AppendScalar adds a sample to a translation or scale curve.
func (a *Animation) AppendScalar(bone int, p Property, frame uint32, v float32) error {
	if p == RotateQuaternion {
		return fmt.Errorf("rotation samples need AppendRotation")
	}
	c, err := a.curve(bone, p)
	if err != nil {
		return err
	}
	if err := a.checkOrder(c, frame); err != nil {
		return err
	}
	c.Keys = append(c.Keys, Key{Frame: frame, Value: v})
	return nil
}

// AppendRotation adds a sample to the rotation curve of a bone.
func (a *Animation) AppendRotation(bone int, frame uint32, q mgl32.Quat) error {
	c, err := a.curve(bone, RotateQuaternion)
	if err != nil {
		return err
	}
	if err := a.checkOrder(c, frame); err != nil {
		return err
	}
	c.Rotations = append(c.Rotations, RotationKey{Frame: frame, Value: q})
	return nil
}

// PruneEmpty drops every curve without samples.
func (a *Animation) PruneEmpty() {
	for b := range a.curves {
		for p, c := range a.curves[b] {
			if c != nil && c.Len() == 0 {
				a.curves[b][p] = nil
			}
		}
	}
}

// Curves returns the remaining curves of a bone in property order.
func (a *Animation) Curves(bone int) []*Curve {
	if bone < 0 || bone >= len(a.curves) {
		return nil
	}
	var out []*Curve
	for _, c := range a.curves[bone] {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// CurveCount returns the number of remaining curves.
func (a *Animation) CurveCount() int {
	n := 0
	for b := range a.curves {
		n += len(a.Curves(b))
	}
	return n
}
