package anim

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/rpak/rpaktest"
	"github.com/jchantrell/rpaktool/internal/schema"
)

func TestLocate(t *testing.T) {
	t.Parallel()

	Convey("Locate", t, func() {
		Convey("maps every frame of an unchunked animation to chunk 0", func() {
			p := SectionParams{NumFrames: 12}
			for f := uint32(0); f < 12; f++ {
				ref, err := Locate(p, f)
				So(err, ShouldBeNil)
				So(ref, ShouldResemble, ChunkRef{Index: 0, LocalFrame: f})
			}
			So(p.SectionCount(), ShouldEqual, 1)
		})

		Convey("follows the boundary law", func() {
			for s := uint32(0); s <= 6; s++ {
				for f := uint32(1); f <= 5; f++ {
					for n := uint32(1); n <= 30; n++ {
						p := SectionParams{NumFrames: n, StaticFrames: s, SectionFrames: f}
						count := p.SectionCount()

						for frame := uint32(0); frame < n; frame++ {
							ref, err := Locate(p, frame)
							So(err, ShouldBeNil)
							So(ref.Index, ShouldBeLessThan, count)

							switch {
							case frame < s:
								So(ref, ShouldResemble, ChunkRef{Index: 0, LocalFrame: frame})
							case frame == n-1 && n > s:
								So(ref, ShouldResemble, ChunkRef{Index: (n-s-1)/f + 2})
							default:
								So(ref.LocalFrame, ShouldBeLessThan, f)
								So(ref.Index, ShouldEqual, (frame-s)/f+1)
							}
						}

						_, err := Locate(p, n)
						So(errors.Is(err, ErrSectionIndexOutOfRange), ShouldBeTrue)
					}
				}
			}
		})

		Convey("gives the final frame its own chunk even when sections divide evenly", func() {
			p := SectionParams{NumFrames: 10, StaticFrames: 2, SectionFrames: 4}
			ref, err := Locate(p, 9)
			So(err, ShouldBeNil)
			So(ref, ShouldResemble, ChunkRef{Index: 3, LocalFrame: 0})

			ref, err = Locate(p, 8)
			So(err, ShouldBeNil)
			So(ref, ShouldResemble, ChunkRef{Index: 2, LocalFrame: 2})
			So(p.SectionCount(), ShouldEqual, 4)
		})
	})
}

func TestReadChunkAddress(t *testing.T) {
	t.Parallel()

	Convey("ReadChunkAddress", t, func() {
		pad := make([]byte, 0x10)

		Convey("reads legacy offset and external pairs", func() {
			table := rpaktest.LE(uint32(0x100), uint32(0), uint32(0x200), uint32(1), uint32(0x300), uint32(0), uint32(0x40), uint32(1))
			c := rpak.NewCursor(bytes.NewReader(append(pad, table...)))
			d := &schema.BlendDesc{Layout: schema.LayoutLegacy, NumFrames: 6, StaticFrames: 2, SectionFrames: 2, SectionIndex: 0x10}

			addr, err := ReadChunkAddress(c, 0, d, ChunkRef{Index: 0})
			So(err, ShouldBeNil)
			So(addr, ShouldResemble, Inline(0x100))

			addr, err = ReadChunkAddress(c, 0, d, ChunkRef{Index: 1})
			So(err, ShouldBeNil)
			So(addr, ShouldResemble, External(0x200))

			addr, err = ReadChunkAddress(c, 0, d, ChunkRef{Index: 3})
			So(err, ShouldBeNil)
			So(addr, ShouldResemble, External(0x40))

			_, err = ReadChunkAddress(c, 0, d, ChunkRef{Index: 4})
			So(errors.Is(err, ErrSectionIndexOutOfRange), ShouldBeTrue)
		})

		Convey("decodes signed entries", func() {
			table := rpaktest.LE(int32(0x80), int32(-1), int32(-0x101))
			c := rpak.NewCursor(bytes.NewReader(append(pad, table...)))
			d := &schema.BlendDesc{Layout: schema.LayoutV16, NumFrames: 4, StaticFrames: 1, SectionFrames: 2, SectionIndex: 0x10}
			So(ParamsOf(d).SectionCount(), ShouldEqual, 4)

			addr, err := ReadChunkAddress(c, 0, d, ChunkRef{Index: 0})
			So(err, ShouldBeNil)
			So(addr, ShouldResemble, Inline(0x80))

			addr, err = ReadChunkAddress(c, 0, d, ChunkRef{Index: 1})
			So(err, ShouldBeNil)
			So(addr, ShouldResemble, External(0))

			addr, err = ReadChunkAddress(c, 0, d, ChunkRef{Index: 2})
			So(err, ShouldBeNil)
			So(addr, ShouldResemble, External(0x100))
		})

		Convey("uses the anim index when unchunked", func() {
			c := rpak.NewCursor(bytes.NewReader(pad))
			d := &schema.BlendDesc{Layout: schema.LayoutV16, NumFrames: 4, AnimIndex: 0x30}

			addr, err := ReadChunkAddress(c, 0, d, ChunkRef{Index: 0, LocalFrame: 3})
			So(err, ShouldBeNil)
			So(addr, ShouldResemble, Inline(0x30))
		})
	})

	Convey("ChunkCache", t, func() {
		Convey("is optional", func() {
			cache, err := NewChunkCache(0)
			So(err, ShouldBeNil)
			So(cache, ShouldBeNil)
			cache.add(1, 0, 0, Inline(4))
			_, ok := cache.get(1, 0, 0)
			So(ok, ShouldBeFalse)
			So(cache.Len(), ShouldEqual, 0)
		})

		Convey("evicts beyond its size", func() {
			cache, err := NewChunkCache(2)
			So(err, ShouldBeNil)
			cache.add(1, 0, 0, Inline(4))
			cache.add(1, 0, 1, Inline(8))
			cache.add(1, 0, 2, External(12))
			So(cache.Len(), ShouldEqual, 2)
			_, ok := cache.get(1, 0, 0)
			So(ok, ShouldBeFalse)
			addr, ok := cache.get(1, 0, 2)
			So(ok, ShouldBeTrue)
			So(addr, ShouldResemble, External(12))
		})
	})
}
