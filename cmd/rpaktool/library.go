package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jchantrell/rpaktool/internal/export"
	"github.com/jchantrell/rpaktool/internal/extract"
	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/utils"
)

// loadLibrary loads every container named by paths. Directories are
// searched recursively. Containers load in argument order so later ones
// win on hash collisions.
func loadLibrary(paths []string) (*rpak.Library, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no containers given")
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := rpak.DiscoverContainers(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	start := time.Now()
	lib := rpak.NewLibrary(&rpak.LibraryOptions{GameDir: cfg.GameDir})
	progress := utils.NewProgress(len(files), progressEnabled())
	for _, f := range files {
		if _, err := lib.Load(f); err != nil {
			progress.Finish()
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
		progress.Increment(f)
	}
	progress.Finish()

	slog.Info("Containers loaded",
		"containers", len(files),
		"assets", utils.Number(int64(len(lib.Assets()))),
		"duration", utils.Duration(time.Since(start)))
	return lib, nil
}

func newExtractor(lib *rpak.Library) (*extract.Extractor, error) {
	exporter, err := export.NewAnimExporter(cfg.AnimFormat)
	if err != nil {
		return nil, err
	}
	return extract.New(lib, &extract.Options{
		Writer:         export.NewWriter(cfg.OutputDir, cfg.Overwrite),
		Exporter:       exporter,
		UseFullPaths:   cfg.UseFullPaths,
		DumpRig:        cfg.DumpRig,
		ChunkCacheSize: cfg.ChunkCacheSize,
		Workers:        cfg.Workers,
	})
}

// parseTypes converts four character type codes.
func parseTypes(codes []string) ([]rpak.AssetType, error) {
	types := make([]rpak.AssetType, 0, len(codes))
	for _, c := range codes {
		t, err := rpak.ParseAssetType(c)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func assetsOfTypes(lib *rpak.Library, types []rpak.AssetType) []*rpak.Asset {
	if len(types) == 0 {
		return lib.Assets()
	}
	var out []*rpak.Asset
	for _, t := range types {
		out = append(out, lib.AssetsOfType(t)...)
	}
	return out
}
