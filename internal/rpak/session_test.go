package rpak_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/rpak/rpaktest"
)

func TestStreamingLocator(t *testing.T) {
	t.Parallel()

	Convey("OpenPayload", t, func() {
		dir := t.TempDir()

		std := rpaktest.NewStarpak()
		stdOff := std.AppendAligned([]byte("standard"))
		So(std.WriteFile(filepath.Join(dir, "pc_all.starpak")), ShouldBeNil)

		opt := rpaktest.NewStarpak()
		opt.AppendAligned([]byte("padding"))
		optOff := opt.AppendAligned([]byte("optimal"))
		So(opt.WriteFile(filepath.Join(dir, "pc_all.opt.starpak")), ShouldBeNil)

		b := rpaktest.NewBuilder()
		b.StarpakPaths = []string{`paks\Win64\pc_all.starpak`}
		b.OptStarpakPaths = []string{`paks\Win64\pc_all.opt.starpak`}
		page := b.NewPage()
		inline := page.Append([]byte("inline\x00"))

		load := func() (*rpak.Library, *rpak.Session) {
			So(b.WriteFile(filepath.Join(dir, "common.rpak")), ShouldBeNil)
			lib := rpak.NewLibrary(&rpak.LibraryOptions{Codec: rpak.StoredCodec{}})
			_, err := lib.Load(filepath.Join(dir, "common.rpak"))
			So(err, ShouldBeNil)
			return lib, lib.NewSession()
		}

		read := func(p rpak.Payload, n int) string {
			So(p.Cursor.Seek(p.Base), ShouldBeNil)
			data, err := p.Cursor.Bytes(n)
			So(err, ShouldBeNil)
			return string(data)
		}

		Convey("prefers the optimal file", func() {
			b.AddAsset(rpaktest.Asset{GUID: 1, RawData: inline, StarpakOffset: stdOff | 0x3, OptStarpakOffset: optOff | 0x7f})
			lib, s := load()
			defer s.Close()

			a, _ := lib.Lookup(1)
			p, err := s.OpenPayload(a)
			So(err, ShouldBeNil)
			So(p.Kind, ShouldEqual, rpak.StreamOptimal)
			So(p.Base, ShouldEqual, optOff)
			So(read(p, 7), ShouldEqual, "optimal")
		})

		Convey("masks the low byte of the standard offset", func() {
			b.AddAsset(rpaktest.Asset{GUID: 2, RawData: inline, StarpakOffset: stdOff | 0xff})
			lib, s := load()
			defer s.Close()

			a, _ := lib.Lookup(2)
			p, err := s.OpenPayload(a)
			So(err, ShouldBeNil)
			So(p.Kind, ShouldEqual, rpak.StreamStandard)
			So(p.Base, ShouldEqual, stdOff)
			So(read(p, 8), ShouldEqual, "standard")
		})

		Convey("falls back to inline data", func() {
			b.AddAsset(rpaktest.Asset{GUID: 3, RawData: inline})
			lib, s := load()
			defer s.Close()

			a, _ := lib.Lookup(3)
			p, err := s.OpenPayload(a)
			So(err, ShouldBeNil)
			So(p.Kind, ShouldEqual, rpak.StreamInline)
			So(read(p, 6), ShouldEqual, "inline")
		})

		Convey("resolves streaming paths under the game directory", func() {
			gameDir := t.TempDir()
			So(os.MkdirAll(filepath.Join(gameDir, "paks", "Win64"), 0o755), ShouldBeNil)
			So(std.WriteFile(filepath.Join(gameDir, "paks", "Win64", "pc_all.starpak")), ShouldBeNil)

			// the container lives away from its streaming files
			pakDir := t.TempDir()
			b.AddAsset(rpaktest.Asset{GUID: 4, RawData: inline, StarpakOffset: stdOff})
			So(b.WriteFile(filepath.Join(pakDir, "common.rpak")), ShouldBeNil)
			lib := rpak.NewLibrary(&rpak.LibraryOptions{GameDir: gameDir, Codec: rpak.StoredCodec{}})
			_, err := lib.Load(filepath.Join(pakDir, "common.rpak"))
			So(err, ShouldBeNil)

			s := lib.NewSession()
			defer s.Close()
			a, _ := lib.Lookup(4)
			p, err := s.OpenPayload(a)
			So(err, ShouldBeNil)
			So(read(p, 8), ShouldEqual, "standard")
		})

		Convey("reports a missing streaming file", func() {
			b.StarpakPaths = []string{`paks\Win64\missing.starpak`}
			b.AddAsset(rpaktest.Asset{GUID: 5, RawData: inline, StarpakOffset: stdOff})
			lib, s := load()
			defer s.Close()

			a, _ := lib.Lookup(5)
			_, err := s.OpenPayload(a)
			So(errors.Is(err, rpak.ErrStreamingFileUnavailable), ShouldBeTrue)
		})

		Convey("hands out independent cursors", func() {
			b.AddAsset(rpaktest.Asset{GUID: 6, RawData: inline, StarpakOffset: stdOff})
			lib, s := load()
			defer s.Close()

			a, _ := lib.Lookup(6)
			first, err := s.OpenPayload(a)
			So(err, ShouldBeNil)
			second, err := s.OpenPayload(a)
			So(err, ShouldBeNil)

			So(first.Cursor.Seek(first.Base+4), ShouldBeNil)
			So(read(second, 8), ShouldEqual, "standard")
			rest, err := first.Cursor.Bytes(4)
			So(err, ShouldBeNil)
			So(string(rest), ShouldEqual, "dard")
		})
	})
}

func TestSessionCursor(t *testing.T) {
	t.Parallel()

	Convey("Cursor", t, func() {
		data := rpaktest.LE(uint16(0xbeef), int16(-2), uint32(7), float32(1.5), uint64(9))
		data = append(data, []byte("abc\x00tail")...)
		cur := rpak.NewCursor(bytes.NewReader(data))

		Convey("reads typed values in order", func() {
			u16, _ := cur.Uint16()
			So(u16, ShouldEqual, 0xbeef)
			i16, _ := cur.Int16()
			So(i16, ShouldEqual, -2)
			u32, _ := cur.Uint32()
			So(u32, ShouldEqual, 7)
			f, _ := cur.Float32()
			So(f, ShouldEqual, 1.5)
			u64, _ := cur.Uint64()
			So(u64, ShouldEqual, 9)
			s, err := cur.CString()
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "abc")
			So(cur.Pos(), ShouldEqual, 24)
		})

		Convey("fails reads past the end without moving", func() {
			So(cur.Seek(uint64(len(data)-2)), ShouldBeNil)
			_, err := cur.Uint32()
			So(errors.Is(err, rpak.ErrOutOfBounds), ShouldBeTrue)
			So(cur.Pos(), ShouldEqual, uint64(len(data)-2))
		})

		Convey("fails seeks past the end", func() {
			So(errors.Is(cur.Seek(uint64(len(data)+1)), rpak.ErrOutOfBounds), ShouldBeTrue)
			So(cur.Seek(uint64(len(data))), ShouldBeNil)
		})

		Convey("fails unterminated strings", func() {
			So(cur.Seek(24), ShouldBeNil)
			_, err := cur.CString()
			So(errors.Is(err, rpak.ErrOutOfBounds), ShouldBeTrue)
			So(cur.Pos(), ShouldEqual, 24)
		})
	})
}
