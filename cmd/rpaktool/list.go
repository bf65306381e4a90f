package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jchantrell/rpaktool/internal/database"
)

var listCmd = &cobra.Command{
	Use:   "list <container|dir>...",
	Short: "List the assets of rpak containers",
	Long: `List prints one line per asset: hash, type, version, name and a short
summary (sequence and bone counts for rigs, the activity for sequences).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codes, err := cmd.Flags().GetStringSlice("type")
		if err != nil {
			return fmt.Errorf("failed to get type flag: %w", err)
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

		infos, errs := x.Infos(assetsOfTypes(lib, types))
		for _, err := range errs {
			slog.Warn("Unreadable asset", "error", err)
		}

		fmt.Printf("%-18s %-4s %-3s %-40s %s\n", "Hash", "Type", "Ver", "Name", "Info")
		for _, i := range infos {
			fmt.Printf("%-18s %-4s %-3d %-40s %s\n", database.FormatHash(i.Hash), i.Type, i.Version, i.Name, i.Info)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringSlice("type", nil, "only list these asset types (arig, aseq, wrap, ...)")
}
