package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// AssetFilter narrows a catalog lookup. Empty fields match everything.
type AssetFilter struct {
	Type string
	// Name is a SQL LIKE pattern.
	Name  string
	Limit int
}

// FindAssets returns catalogued assets ordered by type and name.
func (d *Database) FindAssets(ctx context.Context, f AssetFilter) ([]AssetRow, error) {
	query := `SELECT a.hash, a.type, a.version, a.name, a.info, a.streamed, c.path
		FROM assets a JOIN containers c ON c.id = a.container_id`

	var where []string
	var args []any
	if f.Type != "" {
		where = append(where, "a.type = ?")
		args = append(args, f.Type)
	}
	if f.Name != "" {
		where = append(where, "a.name LIKE ?")
		args = append(args, f.Name)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.type, a.name"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := d.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssetRow
	for rows.Next() {
		var r AssetRow
		var hash string
		if err := rows.Scan(&hash, &r.Type, &r.Version, &r.Name, &r.Info, &r.Streamed, &r.Container); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		if r.Hash, err = ParseHash(hash); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assets: %w", err)
	}
	return out, nil
}

// CountByType returns the number of catalogued assets per type.
func (d *Database) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := d.Query(ctx, `SELECT type, COUNT(*) FROM assets GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// ParseHash parses a hash as stored or typed by a user: hex with or
// without the 0x prefix.
func ParseHash(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return v, nil
}
