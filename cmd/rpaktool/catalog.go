package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jchantrell/rpaktool/internal/database"
	"github.com/jchantrell/rpaktool/internal/utils"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <container|dir>...",
	Short: "Record every asset of rpak containers in an SQLite catalog",
	Long: `Catalog loads containers and writes one row per container and per
asset (hash, type, version, name, summary, streamed) into the database.
Run it again to refresh; --reset clears previous rows first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		reset, err := cmd.Flags().GetBool("reset")
		if err != nil {
			return fmt.Errorf("failed to get reset flag: %w", err)
		}

		lib, err := loadLibrary(args)
		if err != nil {
			return err
		}
		x, err := newExtractor(lib)
		if err != nil {
			return err
		}

		db, err := database.NewDatabase(database.DefaultDatabaseOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := db.CreateSchema(ctx); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		if reset {
			if err := db.ResetCatalog(ctx); err != nil {
				return err
			}
		}

		start := time.Now()
		var containers []database.ContainerRow
		for _, c := range lib.Containers() {
			containers = append(containers, database.ContainerRow{
				Path:       c.Path,
				Version:    c.Header.Version,
				Compressed: c.Header.Compressed(),
				AssetCount: len(c.Assets()),
			})
		}

		ins := database.NewCatalogInserter(db, 1000)
		ids, err := ins.InsertContainers(ctx, containers)
		if err != nil {
			return err
		}

		infos, errs := x.Infos(lib.Assets())
		for _, err := range errs {
			slog.Warn("Unreadable asset", "error", err)
		}

		rows := make([]database.AssetRow, len(infos))
		for i, info := range infos {
			rows[i] = database.AssetRow{
				Hash:      info.Hash,
				Type:      info.Type.String(),
				Version:   info.Version,
				Name:      info.Name,
				Info:      info.Info,
				Streamed:  info.Streamed,
				Container: info.Container,
			}
		}
		if err := ins.InsertAssets(ctx, ids, rows); err != nil {
			return err
		}

		counts, err := db.CountByType(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Containers: %d\n", len(containers))
		fmt.Printf("Assets catalogued: %s\n", utils.Number(int64(len(rows))))
		for t, n := range counts {
			fmt.Printf("  %s: %s\n", t, utils.Number(int64(n)))
		}
		fmt.Printf("Unreadable assets: %d\n", len(errs))
		fmt.Printf("Duration: %s\n", utils.Duration(time.Since(start)))
		fmt.Println("Try running: rpaktool query --type aseq")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().Bool("reset", false, "clear the catalog before writing")
}
