//go:build !sqlite_fts5

package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; rationale search uses LIKE on tracked_values.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based rationale search (fallback when FTS5 is not compiled in).
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT table_name, row_id, actor, substr(rationale, 1, 200)
		FROM tracked_values
		WHERE deleted = 0 AND (rationale LIKE ? OR actor LIKE ?)
		ORDER BY rowid DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var rowID int64
		if err := rows.Scan(&r.Table, &rowID, &r.Actor, &r.Snippet); err != nil {
			return nil, err
		}
		r.RowID = uint64(rowID)
		out = append(out, r)
	}
	return out, rows.Err()
}
