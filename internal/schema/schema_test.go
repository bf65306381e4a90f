package schema

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/rpak/rpaktest"
)

func cursorOver(parts ...[]byte) *rpak.Cursor {
	return rpak.NewCursor(bytes.NewReader(bytes.Join(parts, nil)))
}

func TestRigHeader(t *testing.T) {
	t.Parallel()

	Convey("ParseRigHeader", t, func() {
		name := rpak.Pointer{Index: 1, Offset: 0x10}
		studio := rpak.Pointer{Index: 2, Offset: 0x20}
		seqs := rpak.Pointer{Index: 3, Offset: 0x30}

		Convey("reads the legacy layout below version 5", func() {
			c := cursorOver(rpaktest.LE(&rigHeaderV4{Name: name, StudioData: studio, AnimSeqCount: 7, AnimSeqs: seqs}))
			h, err := ParseRigHeader(c, 0, 4)
			So(err, ShouldBeNil)
			So(h.Layout, ShouldEqual, LayoutLegacy)
			So(h.Name, ShouldResemble, name)
			So(h.StudioData, ShouldResemble, studio)
			So(h.AnimSeqs, ShouldResemble, seqs)
			So(h.AnimSeqCount, ShouldEqual, 7)
			So(h.SkeletonVersion(), ShouldBeLessThan, SkeletonBoundary)
		})

		Convey("reads the v5 layout from version 5", func() {
			for _, v := range []uint32{5, 6} {
				c := cursorOver(rpaktest.LE(&rigHeaderV5{Name: name, StudioData: studio, AnimSeqCount: 2, AnimSeqs: seqs}))
				h, err := ParseRigHeader(c, 0, v)
				So(err, ShouldBeNil)
				So(h.Layout, ShouldEqual, LayoutV16)
				So(h.Name, ShouldResemble, name)
				So(h.StudioData, ShouldResemble, studio)
				So(h.AnimSeqCount, ShouldEqual, 2)
				So(h.SkeletonVersion(), ShouldEqual, SkeletonBoundary)
			}
		})

		Convey("rejects versions outside the set", func() {
			c := cursorOver(make([]byte, 64))
			for _, v := range []uint32{0, 3, 7, 16} {
				_, err := ParseRigHeader(c, 0, v)
				So(errors.Is(err, ErrUnsupportedVersion), ShouldBeTrue)
			}
		})
	})
}

func TestSeqHeader(t *testing.T) {
	t.Parallel()

	Convey("ParseSeqHeader", t, func() {
		name := rpak.Pointer{Index: 0, Offset: 0x40}
		anim := rpak.Pointer{Index: 1, Offset: 0x80}
		ext := rpak.Pointer{Index: 2, Offset: 0}

		Convey("reads version 7 without external data", func() {
			c := cursorOver(rpaktest.LE(&seqHeaderV7{Name: name, Animation: anim}))
			h, err := ParseSeqHeader(c, 0, 7, 0x30)
			So(err, ShouldBeNil)
			So(h.Animation, ShouldResemble, anim)
			So(h.HasExternalData(), ShouldBeFalse)
		})

		Convey("reads version 7.1 with an external pointer", func() {
			c := cursorOver(rpaktest.LE(&seqHeaderV71{Name: name, Animation: anim, ExternalData: ext}))
			h, err := ParseSeqHeader(c, 0, 7, 0x38)
			So(err, ShouldBeNil)
			So(h.ExternalData, ShouldResemble, ext)
			So(h.HasExternalData(), ShouldBeTrue)
		})

		Convey("reads version 10 and later with the external size", func() {
			for _, v := range []uint32{10, 11, 12} {
				c := cursorOver(rpaktest.LE(&seqHeaderV10{Name: name, Animation: anim, ExternalDataSize: 0x200}))
				h, err := ParseSeqHeader(c, 0, v, 0x40)
				So(err, ShouldBeNil)
				So(h.Name, ShouldResemble, name)
				So(h.ExternalDataSize, ShouldEqual, 0x200)
			}
		})

		Convey("rejects a size that does not match the version", func() {
			c := cursorOver(make([]byte, 0x40))
			_, err := ParseSeqHeader(c, 0, 7, 0x40)
			So(errors.Is(err, ErrUnsupportedVersion), ShouldBeTrue)
			_, err = ParseSeqHeader(c, 0, 11, 0x30)
			So(errors.Is(err, ErrUnsupportedVersion), ShouldBeTrue)
		})

		Convey("rejects unknown versions", func() {
			c := cursorOver(make([]byte, 0x40))
			_, err := ParseSeqHeader(c, 0, 8, 0x40)
			So(errors.Is(err, ErrUnsupportedVersion), ShouldBeTrue)
		})
	})
}

func TestSeqDesc(t *testing.T) {
	t.Parallel()

	Convey("ParseSeqDesc", t, func() {
		Convey("uses 32-bit indexes before version 11", func() {
			desc := rpaktest.LE(&seqDescV7{ActivityNameIndex: 0x70, NumBlends: 2, AnimIndexIndex: 0x68})
			table := rpaktest.LE(int32(0x100), int32(0x180))
			c := cursorOver(desc, table)

			d, err := ParseSeqDesc(c, 0, 10)
			So(err, ShouldBeNil)
			So(d.Layout, ShouldEqual, LayoutLegacy)
			So(d.NumBlends, ShouldEqual, 2)
			So(d.ActivityNameIndex, ShouldEqual, 0x70)

			off, err := d.BlendOffset(c, 0, 1)
			So(err, ShouldBeNil)
			So(off, ShouldEqual, 0x180)

			_, err = d.BlendOffset(c, 0, 2)
			So(err, ShouldNotBeNil)
		})

		Convey("uses 16-bit indexes from version 11", func() {
			desc := rpaktest.LE(&seqDescV11{NumBlends: 3, AnimIndexIndex: 0x48, LabelIndex: 0x60})
			table := rpaktest.LE(uint16(0x60), uint16(0x90), uint16(0xC0))
			c := cursorOver(desc, table)

			d, err := ParseSeqDesc(c, 0, 11)
			So(err, ShouldBeNil)
			So(d.Layout, ShouldEqual, LayoutV16)
			So(d.NumBlends, ShouldEqual, 3)
			So(d.LabelIndex, ShouldEqual, 0x60)

			off, err := d.BlendOffset(c, 0, 2)
			So(err, ShouldBeNil)
			So(off, ShouldEqual, 0xC0)
		})

		Convey("misreads a version 11 descriptor through the legacy layout", func() {
			desc := rpaktest.LE(&seqDescV11{
				NumBlends:      1,
				AnimIndexIndex: 0x48,
				GroupSize:      [2]int16{1, 1},
				ParamStart:     [2]float32{1, 0},
				ParamEnd:       [2]float32{1, 0},
			})
			c := cursorOver(desc, rpaktest.LE(uint16(0x50)), make([]byte, 0x40))

			good, err := ParseSeqDesc(c, 0, 11)
			So(err, ShouldBeNil)
			So(good.NumBlends, ShouldEqual, 1)
			So(good.AnimIndexIndex, ShouldEqual, 0x48)

			bad, err := ParseSeqDesc(c, 0, 7)
			So(err, ShouldBeNil)
			So(bad.NumBlends, ShouldNotEqual, good.NumBlends)
			So(bad.NumBlends, ShouldBeGreaterThan, 0xFFFF)
		})

		Convey("rejects unknown versions", func() {
			_, err := ParseSeqDesc(cursorOver(make([]byte, 0x68)), 0, 9)
			So(errors.Is(err, ErrUnsupportedVersion), ShouldBeTrue)
		})
	})
}

func TestBlendDesc(t *testing.T) {
	t.Parallel()

	Convey("ParseBlendDesc", t, func() {
		Convey("maps legacy section parameters", func() {
			c := cursorOver(rpaktest.LE(&animDescV7{
				NameIndex:      0x48,
				Flags:          int32(FlagRLE | FlagDelta),
				NumFrames:      40,
				AnimIndex:      0x60,
				SectionIndex:   0x50,
				SectionFrames:  10,
				MedianCount:    8,
				SomeDataOffset: 0x1000,
			}), []byte("idle\x00"))

			d, err := ParseBlendDesc(c, 0, LayoutLegacy)
			So(err, ShouldBeNil)
			So(d.StaticFrames, ShouldEqual, 10)
			So(d.SectionFrames, ShouldEqual, 8)
			So(d.ExternalBase, ShouldEqual, 0x1000)
			So(d.SectionEntrySize(), ShouldEqual, 8)
			So(d.Additive(), ShouldBeTrue)
			So(d.Exportable(), ShouldBeTrue)
			So(d.Chunked(), ShouldBeTrue)

			name, err := BlendName(c, 0, d)
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "idle")
		})

		Convey("maps v16 section parameters", func() {
			c := cursorOver(rpaktest.LE(&animDescV16{
				NameIndex:           0x30,
				Flags:               int32(FlagRLE),
				NumFrames:           5,
				SectionStaticFrames: 0,
				SectionFrames:       0,
			}), []byte("walk\x00"))

			d, err := ParseBlendDesc(c, 0, LayoutV16)
			So(err, ShouldBeNil)
			So(d.NumFrames, ShouldEqual, 5)
			So(d.Chunked(), ShouldBeFalse)
			So(d.Additive(), ShouldBeFalse)
			So(d.SectionEntrySize(), ShouldEqual, 4)

			name, err := BlendName(c, 0, d)
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "walk")
		})
	})

	Convey("fixOffset", t, func() {
		So(fixOffset(0x30), ShouldEqual, 0x30)
		So(fixOffset(0x31), ShouldEqual, 0x300)
	})
}

func TestWrapHeader(t *testing.T) {
	t.Parallel()

	Convey("WrapHeader", t, func() {
		c := cursorOver(rpaktest.LE(&wrapHeaderV7{CmpSize: 10, DcmpSize: 20, Flags: WrapFlagCompressed}))

		Convey("version 8 follows the flag", func() {
			h, err := ParseWrapHeader(c, 0, 8)
			So(err, ShouldBeNil)
			So(h.Compressed([]byte{0, 0}), ShouldBeTrue)
			h.Flags = 0
			So(h.Compressed([]byte{0x8C, 0x06}), ShouldBeFalse)
		})

		Convey("version 7 sniffs the payload", func() {
			h, err := ParseWrapHeader(c, 0, 7)
			So(err, ShouldBeNil)
			So(h.Compressed([]byte{0x8C, 0x06, 0x01}), ShouldBeTrue)
			So(h.Compressed([]byte("-- script")), ShouldBeFalse)
		})

		Convey("payloads no smaller than their output are stored", func() {
			h, err := ParseWrapHeader(c, 0, 8)
			So(err, ShouldBeNil)
			h.CmpSize = h.DcmpSize
			So(h.Compressed(nil), ShouldBeFalse)
		})

		Convey("rejects unknown versions", func() {
			_, err := ParseWrapHeader(c, 0, 9)
			So(errors.Is(err, ErrUnsupportedVersion), ShouldBeTrue)
		})
	})
}
