package anim

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/rpak/rpaktest"
	"github.com/jchantrell/rpaktool/internal/schema"
	"github.com/jchantrell/rpaktool/internal/skeleton"
)

var testSkeleton = []skeleton.Bone{
	{Name: "root", Parent: -1, Position: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.QuatIdent()},
	{Name: "spine", Parent: 0, Position: mgl32.Vec3{0, 0, 10}, Rotation: mgl32.QuatIdent()},
	{Name: "head", Parent: 1, Position: mgl32.Vec3{0, 0, 5}, Rotation: mgl32.QuatIdent()},
}

func TestBitmap(t *testing.T) {
	t.Parallel()

	Convey("BitmapSize", t, func() {
		for bones := 1; bones <= 256; bones++ {
			size := BitmapSize(bones)
			So(size, ShouldEqual, ((4*bones+7)/8+1)/2*2)

			// ceil(4*bones/8) rounded up to an even count
			ceil := (4*bones + 7) / 8
			So(size, ShouldEqual, (ceil+1)/2*2)
		}
	})

	Convey("ChannelBitmap", t, func() {
		b := ChannelBitmap(rpaktest.Bitmap(ChannelPosition, ChannelRotation|ChannelScale, 0, 0x8|ChannelScale))
		So(b.Flags(0), ShouldEqual, ChannelPosition)
		So(b.Flags(1), ShouldEqual, ChannelRotation|ChannelScale)
		So(b.Flags(2), ShouldEqual, 0)
		So(b.Flags(3), ShouldEqual, ChannelScale)
	})
}

func TestAnimation(t *testing.T) {
	t.Parallel()

	Convey("Animation", t, func() {
		a := NewAnimation(testSkeleton, Absolute)

		Convey("seeds a curve per bone and property", func() {
			So(a.CurveCount(), ShouldEqual, 3*7)
			So(a.Curves(0)[0].Property, ShouldEqual, RotateQuaternion)
		})

		Convey("owns its bones", func() {
			a.Bones[0].Name = "changed"
			So(testSkeleton[0].Name, ShouldEqual, "root")
		})

		Convey("rejects decreasing frames", func() {
			So(a.AppendScalar(1, TranslateX, 4, 1), ShouldBeNil)
			So(a.AppendScalar(1, TranslateX, 4, 2), ShouldBeNil)
			err := a.AppendScalar(1, TranslateX, 3, 1)
			So(errors.Is(err, ErrFrameOrder), ShouldBeTrue)

			So(a.AppendRotation(1, 2, mgl32.QuatIdent()), ShouldBeNil)
			So(errors.Is(a.AppendRotation(1, 1, mgl32.QuatIdent()), ErrFrameOrder), ShouldBeTrue)
		})

		Convey("keeps rotations out of scalar curves", func() {
			So(a.AppendScalar(0, RotateQuaternion, 0, 1), ShouldNotBeNil)
			So(a.AppendScalar(7, TranslateX, 0, 1), ShouldNotBeNil)
		})

		Convey("prunes empty curves", func() {
			So(a.AppendScalar(2, ScaleY, 0, 1), ShouldBeNil)
			a.PruneEmpty()
			So(a.CurveCount(), ShouldEqual, 1)
			So(a.Curves(0), ShouldBeEmpty)
			So(a.Curves(2), ShouldHaveLength, 1)
			So(a.Curves(2)[0].Property, ShouldEqual, ScaleY)
			So(a.FrameCount, ShouldEqual, 1)
		})
	})
}

func TestExtractValue(t *testing.T) {
	t.Parallel()

	Convey("ExtractValue", t, func() {
		// two valid of four total, then three valid of three total
		words := []uint16{4<<8 | 2, 10, 20, 3<<8 | 3, 30, 40, 50}

		for frame, want := range []int16{10, 20, 20, 20, 30, 40, 50} {
			v, err := ExtractValue(words, uint32(frame))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, want)
		}

		_, err := ExtractValue(words, 7)
		So(errors.Is(err, ErrMalformedValues), ShouldBeTrue)

		_, err = ExtractValue([]uint16{0}, 0)
		So(errors.Is(err, ErrMalformedValues), ShouldBeTrue)

		_, err = ExtractValue([]uint16{2<<8 | 2, 1}, 1)
		So(errors.Is(err, ErrMalformedValues), ShouldBeTrue)
	})
}

func TestDecodeBlend(t *testing.T) {
	t.Parallel()

	Convey("DecodeBlend", t, func() {
		Convey("decodes an unchunked blend from the descriptor", func() {
			// root: animated position and constant rotation, others idle
			chunk := append(rpaktest.Bitmap(ChannelPosition|ChannelRotation, 0, 0),
				rpaktest.Run(0.5,
					rpaktest.Animated(rpaktest.Values(10, 20, 30), rpaktest.Values(0, 0, 0), rpaktest.Values(2, 4, 6)),
					rpaktest.RawRotation(0, 0, 0, 32767),
				)...)
			data := append(make([]byte, 0x20), chunk...)

			desc := &schema.BlendDesc{Layout: schema.LayoutV16, Flags: schema.FlagRLE, NumFrames: 3, AnimIndex: 0x20, Fps: 30}
			src := Source{Container: rpak.NewCursor(bytes.NewReader(data))}

			a, err := NewDecoder(nil).DecodeBlend(src, Blend{Asset: 1, Addr: 0, Desc: desc}, testSkeleton)
			So(err, ShouldBeNil)
			So(a.Mode, ShouldEqual, Absolute)
			So(a.FrameRate, ShouldEqual, 30)
			So(a.FrameCount, ShouldEqual, 3)

			curves := a.Curves(0)
			So(curves, ShouldHaveLength, 4)
			So(a.Curves(1), ShouldBeEmpty)
			So(a.Curves(2), ShouldBeEmpty)

			rot, tx, ty, tz := curves[0], curves[1], curves[2], curves[3]
			So(rot.Rotations, ShouldHaveLength, 3)
			So(rot.Rotations[2].Value.W, ShouldAlmostEqual, 1, 1e-6)

			So(tx.Keys, ShouldResemble, []Key{{0, 6}, {1, 11}, {2, 16}})
			So(ty.Keys, ShouldResemble, []Key{{0, 2}, {1, 2}, {2, 2}})
			So(tz.Keys, ShouldResemble, []Key{{0, 4}, {1, 5}, {2, 6}})
		})

		Convey("follows the section table into the streaming payload", func() {
			// S=2, F=2, N=6: chunks 0,1,2 and the terminal chunk 3
			rotations := []mgl32.Quat{
				{W: 1},
				{V: mgl32.Vec3{1, 0, 0}},
				{V: mgl32.Vec3{0, 1, 0}},
				{V: mgl32.Vec3{0, 0, 1}},
			}
			chunks := make([][]byte, 4)
			for i, q := range rotations {
				chunks[i] = append(rpaktest.Bitmap(ChannelRotation, 0, 0),
					rpaktest.Run(1, rpaktest.RawRotation(
						int16(q.V[0]*32767), int16(q.V[1]*32767), int16(q.V[2]*32767), int16(q.W*32767)))...)
			}

			const tableAt, chunkAt = 0x40, 0x60
			container := make([]byte, chunkAt)
			stream := make([]byte, 0x10)

			table := make([]byte, 0, 16)
			for i, chunk := range chunks {
				if i == 2 {
					// chunk 2 lives in the stream
					table = append(table, rpaktest.LE(int32(-(len(stream)-0x10)-1))...)
					stream = append(stream, chunk...)
					continue
				}
				table = append(table, rpaktest.LE(int32(len(container)))...)
				container = append(container, chunk...)
			}
			copy(container[tableAt:], table)

			desc := &schema.BlendDesc{
				Layout:        schema.LayoutV16,
				Flags:         schema.FlagRLE | schema.FlagDelta,
				NumFrames:     6,
				StaticFrames:  2,
				SectionFrames: 2,
				SectionIndex:  tableAt,
			}
			src := Source{
				Container:  rpak.NewCursor(bytes.NewReader(container)),
				Stream:     rpak.NewCursor(bytes.NewReader(stream)),
				StreamBase: 0x10,
			}

			cache, err := NewChunkCache(16)
			So(err, ShouldBeNil)
			a, err := NewDecoder(cache).DecodeBlend(src, Blend{Asset: 2, Desc: desc}, testSkeleton)
			So(err, ShouldBeNil)
			So(a.Mode, ShouldEqual, Additive)
			So(cache.Len(), ShouldEqual, 4)

			rot := a.Curves(0)[0].Rotations
			So(rot, ShouldHaveLength, 6)
			wantChunk := []int{0, 0, 1, 1, 2, 3}
			for frame, chunk := range wantChunk {
				So(rot[frame].Frame, ShouldEqual, frame)
				So(rot[frame].Value.ApproxEqualThreshold(rotations[chunk], 1e-4), ShouldBeTrue)
			}

			Convey("and fails without the stream", func() {
				src.Stream = nil
				_, err := NewDecoder(nil).DecodeBlend(src, Blend{Asset: 2, Desc: desc}, testSkeleton)
				So(errors.Is(err, rpak.ErrStreamingFileUnavailable), ShouldBeTrue)
			})
		})

		Convey("reads legacy pair tables against the descriptor's external base", func() {
			// S=1, F=1, N=3: frames land in chunks 0, 1 and the terminal chunk 3
			rotations := map[int]mgl32.Quat{
				0: {W: 1},
				1: {V: mgl32.Vec3{1, 0, 0}},
				3: {V: mgl32.Vec3{0, 0, 1}},
			}
			chunk := func(q mgl32.Quat) []byte {
				return append(rpaktest.Bitmap(ChannelRotation, 0, 0),
					rpaktest.Run(1, rpaktest.RawRotation(
						int16(q.V[0]*32767), int16(q.V[1]*32767), int16(q.V[2]*32767), int16(q.W*32767)))...)
			}

			const tableAt, externalBase = 0x48, 0x20
			container := make([]byte, tableAt+4*8)
			stream := make([]byte, externalBase+8)

			entry := func(i int, offset, external uint32) {
				copy(container[tableAt+8*i:], rpaktest.LE(offset, external))
			}
			entry(0, uint32(len(container)), 0)
			container = append(container, chunk(rotations[0])...)
			entry(1, 8, 1)
			stream = append(stream, chunk(rotations[1])...)
			entry(3, uint32(len(container)), 0)
			container = append(container, chunk(rotations[3])...)

			desc := &schema.BlendDesc{
				Layout:        schema.LayoutLegacy,
				Flags:         schema.FlagRLE,
				NumFrames:     3,
				StaticFrames:  1,
				SectionFrames: 1,
				SectionIndex:  tableAt,
				ExternalBase:  externalBase,
			}
			src := Source{
				Container: rpak.NewCursor(bytes.NewReader(container)),
				Stream:    rpak.NewCursor(bytes.NewReader(stream)),
				// past the end of the stream; only the descriptor's base is valid
				StreamBase: 0x400,
			}

			a, err := NewDecoder(nil).DecodeBlend(src, Blend{Asset: 3, Desc: desc}, testSkeleton)
			So(err, ShouldBeNil)
			So(a.Mode, ShouldEqual, Absolute)

			rot := a.Curves(0)[0].Rotations
			So(rot, ShouldHaveLength, 3)
			for frame, chunk := range []int{0, 1, 3} {
				So(rot[frame].Frame, ShouldEqual, frame)
				So(rot[frame].Value.ApproxEqualThreshold(rotations[chunk], 1e-4), ShouldBeTrue)
			}

			Convey("and falls back to the stream base without one", func() {
				desc.ExternalBase = 0
				_, err := NewDecoder(nil).DecodeBlend(src, Blend{Asset: 3, Desc: desc}, testSkeleton)
				So(errors.Is(err, rpak.ErrOutOfBounds), ShouldBeTrue)

				src.StreamBase = externalBase
				a, err := NewDecoder(nil).DecodeBlend(src, Blend{Asset: 3, Desc: desc}, testSkeleton)
				So(err, ShouldBeNil)
				So(a.Curves(0)[0].Rotations, ShouldHaveLength, 3)
			})
		})

		Convey("fails a truncated chunk", func() {
			chunk := append(rpaktest.Bitmap(ChannelPosition, 0, 0), rpaktest.LE(float32(1), int16(64), uint16(0))...)
			desc := &schema.BlendDesc{Layout: schema.LayoutV16, Flags: schema.FlagRLE, NumFrames: 1}
			src := Source{Container: rpak.NewCursor(bytes.NewReader(chunk))}

			_, err := NewDecoder(nil).DecodeBlend(src, Blend{Desc: desc}, testSkeleton)
			So(errors.Is(err, rpak.ErrOutOfBounds), ShouldBeTrue)
		})

		Convey("rejects skeletons over the bone limit", func() {
			bones := make([]skeleton.Bone, skeleton.MaxBones+1)
			desc := &schema.BlendDesc{Layout: schema.LayoutV16, NumFrames: 1}
			_, err := NewDecoder(nil).DecodeBlend(Source{}, Blend{Desc: desc}, bones)
			So(errors.Is(err, ErrTooManyBones), ShouldBeTrue)
		})
	})
}
