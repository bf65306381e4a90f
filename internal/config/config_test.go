package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Load", t, func() {
		dir := t.TempDir()

		Convey("applies defaults for unset keys", func() {
			path := filepath.Join(dir, "rpaktool.yaml")
			So(os.WriteFile(path, []byte("game_dir: /games/apex\n"), 0644), ShouldBeNil)

			cfg, err := Load(path)
			So(err, ShouldBeNil)
			So(cfg.GameDir, ShouldEqual, "/games/apex")
			So(cfg.AnimFormat, ShouldEqual, "seanim")
			So(cfg.OutputDir, ShouldEqual, "exported")
			So(cfg.Workers, ShouldEqual, runtime.NumCPU())
			So(cfg.ChunkCacheSize, ShouldEqual, 4096)
			So(cfg.Overwrite, ShouldBeFalse)
		})

		Convey("reads every key from the file", func() {
			path := filepath.Join(dir, "custom.yaml")
			So(os.WriteFile(path, []byte(`
output_dir: out
database: assets.db
anim_format: json
overwrite: true
use_full_paths: true
dump_rig: true
workers: 2
chunk_cache_size: 0
log_level: debug
log_format: json
`), 0644), ShouldBeNil)

			cfg, err := Load(path)
			So(err, ShouldBeNil)
			So(*cfg, ShouldResemble, Config{
				OutputDir:      "out",
				Database:       "assets.db",
				AnimFormat:     "json",
				Overwrite:      true,
				UseFullPaths:   true,
				DumpRig:        true,
				Workers:        2,
				ChunkCacheSize: 0,
				LogLevel:       "debug",
				LogFormat:      "json",
			})
		})

		Convey("rejects invalid values", func() {
			path := filepath.Join(dir, "bad.yaml")
			So(os.WriteFile(path, []byte("anim_format: smd\nworkers: 0\n"), 0644), ShouldBeNil)

			_, err := Load(path)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "anim_format 'smd'")
			So(err.Error(), ShouldContainSubstring, "workers 0")
		})

		Convey("fails on an unreadable file", func() {
			_, err := Load(filepath.Join(dir, "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}
