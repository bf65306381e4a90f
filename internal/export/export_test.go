package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/jchantrell/rpaktool/internal/anim"
	"github.com/jchantrell/rpaktool/internal/skeleton"
)

func testAnimation() *anim.Animation {
	a := anim.NewAnimation([]skeleton.Bone{
		{Name: "root", Parent: -1, Position: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.QuatIdent()},
		{Name: "tip", Parent: 0, Rotation: mgl32.QuatIdent()},
	}, anim.Absolute)
	a.Name = "run_0"
	a.FrameRate = 30

	for f := uint32(0); f < 3; f++ {
		a.AppendScalar(0, anim.TranslateX, f, float32(f))
		a.AppendScalar(0, anim.TranslateY, f, 2)
		a.AppendScalar(0, anim.TranslateZ, f, 3)
		a.AppendRotation(1, f, mgl32.QuatIdent())
	}
	a.PruneEmpty()
	return a
}

func TestWriter(t *testing.T) {
	t.Parallel()

	Convey("Writer", t, func() {
		dir := t.TempDir()

		Convey("keeps existing files unless overwriting", func() {
			w := NewWriter(dir, false)
			path, wrote, err := w.WriteFile("scripts/vscripts/a.nut", []byte("one"))
			So(err, ShouldBeNil)
			So(wrote, ShouldBeTrue)
			So(path, ShouldEqual, filepath.Join(dir, "scripts", "vscripts", "a.nut"))

			So(w.ShouldWrite(path), ShouldBeFalse)
			_, wrote, err = w.WriteFile("scripts/vscripts/a.nut", []byte("two"))
			So(err, ShouldBeNil)
			So(wrote, ShouldBeFalse)

			data, _ := os.ReadFile(path)
			So(string(data), ShouldEqual, "one")

			w = NewWriter(dir, true)
			So(w.ShouldWrite(path), ShouldBeTrue)
			_, wrote, err = w.WriteFile("scripts/vscripts/a.nut", []byte("two"))
			So(err, ShouldBeNil)
			So(wrote, ShouldBeTrue)
			data, _ = os.ReadFile(path)
			So(string(data), ShouldEqual, "two")
		})

		Convey("keeps stored paths inside the output directory", func() {
			So(sanitizePath(`..\..\cfg/autoexec.cfg`), ShouldEqual, filepath.Join("cfg", "autoexec.cfg"))
			So(sanitizePath(`C:\game\file.txt`), ShouldEqual, filepath.Join("game", "file.txt"))
			So(sanitizePath("/abs/./x"), ShouldEqual, filepath.Join("abs", "x"))
		})
	})

	Convey("AnimationPath", t, func() {
		So(AnimationPath("out", "run", 2, ".seanim"), ShouldEqual, filepath.Join("out", "run_2.seanim"))
	})

	Convey("NewAnimExporter", t, func() {
		e, err := NewAnimExporter("seanim")
		So(err, ShouldBeNil)
		So(e.Extension(), ShouldEqual, ".seanim")

		e, err = NewAnimExporter("json")
		So(err, ShouldBeNil)
		So(e.Extension(), ShouldEqual, ".json")

		_, err = NewAnimExporter("smd")
		So(err, ShouldNotBeNil)
	})
}

func TestSEAnimExporter(t *testing.T) {
	t.Parallel()

	Convey("SEAnimExporter", t, func() {
		path := filepath.Join(t.TempDir(), "run_0.seanim")
		So(SEAnimExporter{}.ExportAnimation(testAnimation(), path), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)

		var h seanimHeader
		So(binary.Read(bytes.NewReader(data), binary.LittleEndian, &h), ShouldBeNil)
		So(h.Magic, ShouldEqual, seanimMagic)
		So(h.HeaderSize, ShouldEqual, seanimHeaderSize)
		So(h.AnimType, ShouldEqual, seanimAbsolute)
		So(h.DataPresence, ShouldEqual, seanimBoneLoc|seanimBoneRot)
		So(h.FrameCount, ShouldEqual, 3)
		So(h.BoneCount, ShouldEqual, 2)

		body := data[36:]
		So(string(body[:9]), ShouldEqual, "root\x00tip\x00")

		// root: flags, 3 location keys, 0 rotation keys
		root := body[9:]
		So(root[0], ShouldEqual, 0)
		So(root[1], ShouldEqual, 3)
		So(root[2], ShouldEqual, 0)
		var loc [3]float32
		So(binary.Read(bytes.NewReader(root[3:]), binary.LittleEndian, &loc), ShouldBeNil)
		So(loc, ShouldEqual, [3]float32{0, 2, 3})

		locKeys := 1 + 3*(1+12)
		So(root[1+locKeys], ShouldEqual, 0)

		// tip: flags, 0 location keys, 3 identity rotation keys
		tip := root[1+locKeys+1:]
		So(tip[0], ShouldEqual, 0)
		So(tip[1], ShouldEqual, 0)
		So(tip[2], ShouldEqual, 3)
		So(tip[3], ShouldEqual, 0)
		var q [4]float32
		So(binary.Read(bytes.NewReader(tip[4:]), binary.LittleEndian, &q), ShouldBeNil)
		So(q, ShouldEqual, [4]float32{0, 0, 0, 1})
		So(tip[3+3*(1+16):], ShouldBeEmpty)
	})
}

func TestJSONExporter(t *testing.T) {
	t.Parallel()

	Convey("JSONExporter", t, func() {
		path := filepath.Join(t.TempDir(), "run_0.json")
		So(JSONExporter{}.ExportAnimation(testAnimation(), path), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)

		var doc jsonAnimation
		So(json.Unmarshal(data, &doc), ShouldBeNil)
		So(doc.Name, ShouldEqual, "run_0")
		So(doc.Mode, ShouldEqual, "absolute")
		So(doc.Bones, ShouldHaveLength, 2)
		So(doc.Bones[0].Position, ShouldEqual, [3]float32{1, 2, 3})
		So(doc.Curves, ShouldHaveLength, 4)
		So(doc.Curves[0].Property, ShouldEqual, "tx")
		So(doc.Curves[0].Values, ShouldResemble, []float32{0, 1, 2})
		So(doc.Curves[3].Bone, ShouldEqual, "tip")
		So(doc.Curves[3].Quats, ShouldHaveLength, 3)
	})
}
