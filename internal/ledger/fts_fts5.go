//go:build sqlite_fts5

package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tracked_fts USING fts5(
			id UNINDEXED,
			actor,
			rationale,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, actor, rationale string) error {
	_, _ = tx.Exec(`DELETE FROM tracked_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO tracked_fts (id, actor, rationale) VALUES (?, ?, ?)`, id, actor, rationale)
	if err != nil {
		return fmt.Errorf("ledger: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM tracked_fts WHERE id = ?`, id)
}

// Search performs an FTS5 rationale search and returns matching rows with snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT t.table_name, t.row_id, t.actor,
		       snippet(tracked_fts, 2, '<b>', '</b>', '...', 64)
		FROM tracked_fts
		JOIN tracked_values t ON t.id = tracked_fts.id
		WHERE tracked_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
