package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jchantrell/rpaktool/internal/database"
)

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Query the asset catalog",
	Long: `Query searches the catalog built by the catalog command, filtering by
asset type and name pattern, or runs a raw SQL statement against it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		typ, err := cmd.Flags().GetString("type")
		if err != nil {
			return fmt.Errorf("failed to get type flag: %w", err)
		}
		name, err := cmd.Flags().GetString("name")
		if err != nil {
			return fmt.Errorf("failed to get name flag: %w", err)
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return fmt.Errorf("failed to get limit flag: %w", err)
		}

		db, err := database.NewDatabase(database.DefaultDatabaseOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		has, err := db.HasCatalog(ctx)
		if err != nil {
			return err
		}
		if !has {
			return fmt.Errorf("database %s has no catalog, run rpaktool catalog first", cfg.Database)
		}

		if len(args) > 0 {
			return runSQL(ctx, db, args[0])
		}

		assets, err := db.FindAssets(ctx, database.AssetFilter{Type: typ, Name: name, Limit: limit})
		if err != nil {
			return err
		}

		fmt.Printf("%-18s %-4s %-3s %-40s %-8s %s\n", "Hash", "Type", "Ver", "Name", "Streamed", "Info")
		for _, a := range assets {
			fmt.Printf("%-18s %-4s %-3d %-40s %-8t %s\n", database.FormatHash(a.Hash), a.Type, a.Version, a.Name, a.Streamed, a.Info)
		}
		return nil
	},
}

func runSQL(ctx context.Context, db *database.Database, query string) error {
	slog.Debug("Executing SQL query", "query", query)

	rows, err := db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("getting column names: %w", err)
	}

	fmt.Println(strings.Join(columns, "\t"))
	rule := make([]string, len(columns))
	for i, col := range columns {
		rule[i] = strings.Repeat("-", len(col))
	}
	fmt.Println(strings.Join(rule, "\t"))

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			switch v := v.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = string(v)
			default:
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Println(strings.Join(cells, "\t"))
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().String("type", "", "only show assets of this type")
	queryCmd.Flags().String("name", "", "SQL LIKE pattern on asset names")
	queryCmd.Flags().Int("limit", 0, "maximum rows (0 for all)")
}
