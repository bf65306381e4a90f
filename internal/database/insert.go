package database

import (
	"context"
	"fmt"
	"log/slog"
)

// ContainerRow is one loaded container.
type ContainerRow struct {
	Path       string
	Version    uint16
	Compressed bool
	AssetCount int
}

// AssetRow is one catalogued asset.
type AssetRow struct {
	Hash      uint64
	Type      string
	Version   uint32
	Name      string
	Info      string
	Streamed  bool
	Container string
}

// CatalogInserter writes containers and assets in batched transactions.
type CatalogInserter struct {
	db        *Database
	batchSize int
}

// NewCatalogInserter creates an inserter. A batchSize below one uses 1000.
func NewCatalogInserter(db *Database, batchSize int) *CatalogInserter {
	if batchSize < 1 {
		batchSize = 1000
	}
	return &CatalogInserter{db: db, batchSize: batchSize}
}

// InsertContainers records containers and returns their ids by path.
func (ci *CatalogInserter) InsertContainers(ctx context.Context, containers []ContainerRow) (map[string]int64, error) {
	tx, err := ci.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO containers (path, version, compressed, asset_count) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET version = excluded.version, compressed = excluded.compressed, asset_count = excluded.asset_count
		RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("preparing container insert: %w", err)
	}
	defer stmt.Close()

	ids := make(map[string]int64, len(containers))
	for _, c := range containers {
		var id int64
		if err := stmt.QueryRowContext(ctx, c.Path, c.Version, c.Compressed, c.AssetCount).Scan(&id); err != nil {
			return nil, fmt.Errorf("inserting container %s: %w", c.Path, err)
		}
		ids[c.Path] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return ids, nil
}

// InsertAssets records assets in batches. Every asset's container must
// be in ids.
func (ci *CatalogInserter) InsertAssets(ctx context.Context, ids map[string]int64, assets []AssetRow) error {
	for i := 0; i < len(assets); i += ci.batchSize {
		end := min(i+ci.batchSize, len(assets))
		if err := ci.insertBatch(ctx, ids, assets[i:end]); err != nil {
			return fmt.Errorf("inserting batch %d-%d: %w", i, end-1, err)
		}
	}

	slog.Debug("Assets catalogued", "count", len(assets))
	return nil
}

func (ci *CatalogInserter) insertBatch(ctx context.Context, ids map[string]int64, batch []AssetRow) error {
	tx, err := ci.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO assets (hash, type, version, name, info, streamed, container_id) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing asset insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range batch {
		id, ok := ids[a.Container]
		if !ok {
			return fmt.Errorf("asset %s: container %s not catalogued", FormatHash(a.Hash), a.Container)
		}
		if _, err := stmt.ExecContext(ctx, FormatHash(a.Hash), a.Type, a.Version, a.Name, a.Info, a.Streamed, id); err != nil {
			return fmt.Errorf("inserting asset %s: %w", FormatHash(a.Hash), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FormatHash renders a hash the way the catalog stores it.
func FormatHash(hash uint64) string {
	return fmt.Sprintf("0x%016x", hash)
}
