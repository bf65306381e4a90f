package database

import (
	"context"
	"fmt"
	"log/slog"
)

// catalogDDL creates the catalog tables. Hashes are stored as fixed width
// hex text since SQLite integers are signed.
var catalogDDL = []string{
	`CREATE TABLE IF NOT EXISTS containers (
		id INTEGER PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		version INTEGER NOT NULL,
		compressed INTEGER NOT NULL,
		asset_count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assets (
		hash TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		version INTEGER NOT NULL,
		name TEXT NOT NULL,
		info TEXT NOT NULL,
		streamed INTEGER NOT NULL,
		container_id INTEGER NOT NULL REFERENCES containers(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_type ON assets(type)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_name ON assets(name)`,
}

// CreateSchema creates the catalog tables in one transaction.
func (d *Database) CreateSchema(ctx context.Context) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ddl := range catalogDDL {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}

	slog.Debug("Catalog schema ready", "database", d.path)
	return nil
}

// ResetCatalog drops every catalog row.
func (d *Database) ResetCatalog(ctx context.Context) error {
	for _, table := range []string{"assets", "containers"} {
		if _, err := d.Exec(ctx, "DELETE FROM "+quoteSQLIdentifier(table)); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// quoteSQLIdentifier quotes an identifier for SQLite
func quoteSQLIdentifier(name string) string {
	return `"` + name + `"`
}
