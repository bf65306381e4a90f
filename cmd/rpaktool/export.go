package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jchantrell/rpaktool/internal/database"
	"github.com/jchantrell/rpaktool/internal/extract"
	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/utils"
)

type exportStats struct {
	mu       sync.Mutex
	assets   int
	failed   int
	written  int
	skipped  int
	blendErr int
}

func (s *exportStats) add(res *extract.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets++
	if err != nil {
		s.failed++
	}
	if res == nil {
		return
	}
	s.written += res.Written()
	for _, seq := range res.Sequences {
		for _, b := range seq.Blends {
			switch {
			case b.Err != nil:
				s.blendErr++
			case b.Skipped:
				s.skipped++
			}
		}
	}
}

var exportCmd = &cobra.Command{
	Use:   "export <container|dir>...",
	Short: "Export rigs, sequences and wrapped files",
	Long: `Export writes every rig with the sequences it references, and every
wrapped raw file, into the output directory. Use --type to restrict the
asset types and --hash to export single assets.

Existing files are kept unless --overwrite is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codes, err := cmd.Flags().GetStringSlice("type")
		if err != nil {
			return fmt.Errorf("failed to get type flag: %w", err)
		}
		hashes, err := cmd.Flags().GetStringSlice("hash")
		if err != nil {
			return fmt.Errorf("failed to get hash flag: %w", err)
		}
		types, err := parseTypes(codes)
		if err != nil {
			return err
		}

		lib, err := loadLibrary(args)
		if err != nil {
			return err
		}
		x, err := newExtractor(lib)
		if err != nil {
			return err
		}

		var assets []*rpak.Asset
		for _, h := range hashes {
			hash, err := database.ParseHash(h)
			if err != nil {
				return err
			}
			a, err := lib.Lookup(hash)
			if err != nil {
				return err
			}
			assets = append(assets, a)
		}
		if len(hashes) == 0 {
			assets = assetsOfTypes(lib, types)
		}
		if len(assets) == 0 {
			slog.Info("No assets to export")
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		stats := &exportStats{}
		progress := utils.NewProgress(len(assets), progressEnabled())

		slog.Info("Exporting assets", "count", len(assets), "workers", cfg.Workers, "output", cfg.OutputDir)
		err = x.ExportAll(ctx, assets, func(res *extract.Result, err error) {
			stats.add(res, err)
			name := ""
			if res != nil {
				name = res.Name
			}
			progress.Increment(name)
		})
		progress.Finish()

		if errors.Is(err, context.Canceled) {
			slog.Warn("Export canceled")
		}

		elapsed := time.Since(start)
		fmt.Printf("Assets exported: %d/%d\n", stats.assets-stats.failed, len(assets))
		fmt.Printf("Files written: %s\n", utils.Number(int64(stats.written)))
		fmt.Printf("Existing or non-exportable blends skipped: %s\n", utils.Number(int64(stats.skipped)))
		fmt.Printf("Blend errors: %d\n", stats.blendErr)
		fmt.Printf("Duration: %s\n", utils.Duration(elapsed))
		if secs := elapsed.Seconds(); secs > 0 {
			fmt.Printf("Export rate: %s files/sec\n", utils.Rate(float64(stats.written)/secs))
		}

		if stats.failed > 0 {
			return fmt.Errorf("%d assets failed to export", stats.failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringSlice("type", []string{"arig", "wrap"}, "asset types to export")
	exportCmd.Flags().StringSlice("hash", nil, "export only these asset hashes")
}
