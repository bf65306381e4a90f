package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/jchantrell/rpaktool/internal/config"
)

var (
	cfg     *config.Config
	cfgFile string

	gameDir        string
	outputDir      string
	dbPath         string
	animFormat     string
	overwrite      bool
	useFullPaths   bool
	dumpRig        bool
	workers        int
	chunkCacheSize int
	logLevel       string
	logFormat      string
	noProgress     bool
)

var rootCmd = &cobra.Command{
	Use:   "rpaktool",
	Short: "Inspect and export assets from rpak containers",
	Long: `rpaktool reads rpak asset containers and their streaming files,
lists the assets they hold and exports animation rigs, sequences and
wrapped raw files.

Animations are written as SEAnim or JSON, one file per sequence blend.
An SQLite catalog of every asset can be built for querying.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("game-dir") {
			cfg.GameDir = gameDir
		}
		if flags.Changed("output") {
			cfg.OutputDir = outputDir
		}
		if flags.Changed("database") {
			cfg.Database = dbPath
		}
		if flags.Changed("format") {
			cfg.AnimFormat = animFormat
		}
		if flags.Changed("overwrite") {
			cfg.Overwrite = overwrite
		}
		if flags.Changed("full-paths") {
			cfg.UseFullPaths = useFullPaths
		}
		if flags.Changed("dump-rig") {
			cfg.DumpRig = dumpRig
		}
		if flags.Changed("workers") {
			cfg.Workers = workers
		}
		if flags.Changed("chunk-cache") {
			cfg.ChunkCacheSize = chunkCacheSize
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		slog.SetDefault(slog.New(newHandler(cfg.LogLevel, cfg.LogFormat)))

		slog.Debug("Configuration",
			"game_dir", cfg.GameDir,
			"output_dir", cfg.OutputDir,
			"database", cfg.Database,
			"anim_format", cfg.AnimFormat,
			"overwrite", cfg.Overwrite,
			"use_full_paths", cfg.UseFullPaths,
			"dump_rig", cfg.DumpRig,
			"workers", cfg.Workers,
			"chunk_cache_size", cfg.ChunkCacheSize)

		return nil
	},
}

func newHandler(level, format string) slog.Handler {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	if format == "json" {
		return slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return tint.NewHandler(os.Stderr, &tint.Options{Level: l})
}

// progressEnabled reports whether a progress bar would be readable next
// to the log output.
func progressEnabled() bool {
	return !(noProgress || cfg.LogFormat == "json" || cfg.LogLevel == "debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is rpaktool.yaml in home or pwd)")
	pf.StringVarP(&gameDir, "game-dir", "g", "", "game root that streaming file paths are relative to")
	pf.StringVarP(&outputDir, "output", "o", "", "export directory")
	pf.StringVarP(&dbPath, "database", "d", "", "catalog database file path")
	pf.StringVarP(&animFormat, "format", "f", "", "animation format (seanim, json)")
	pf.BoolVar(&overwrite, "overwrite", false, "replace files that already exist")
	pf.BoolVar(&useFullPaths, "full-paths", false, "list assets by their full stored path")
	pf.BoolVar(&dumpRig, "dump-rig", false, "write raw skeleton data next to rig exports")
	pf.IntVarP(&workers, "workers", "w", 0, "concurrent exports")
	pf.IntVar(&chunkCacheSize, "chunk-cache", 0, "chunk address cache entries per export (0 disables)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (text, json)")
	pf.BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}
