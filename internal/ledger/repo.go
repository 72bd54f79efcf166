package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/promptdb/internal/apperr"
)

// Entry is one committed tracked value.
type Entry struct {
	ID              string    `json:"id"`
	Instance        string    `json:"instance"`
	Epoch           uint64    `json:"epoch"`
	Table           string    `json:"table"`
	Column          string    `json:"column"`
	RowID           uint64    `json:"row_id"`
	Actor           string    `json:"actor"`
	Timestamp       int64     `json:"timestamp"`
	Rationale       string    `json:"rationale"`
	Scores          [6]int64  `json:"scores"`
	Overall         int64     `json:"overall"`
	Tier            string    `json:"tier"`
	PayloadChecksum string    `json:"payload_checksum"`
	PayloadSize     int       `json:"payload_size"`
	Deleted         bool      `json:"deleted"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// SearchResult is one rationale search hit.
type SearchResult struct {
	Table   string `json:"table"`
	RowID   uint64 `json:"row_id"`
	Actor   string `json:"actor"`
	Snippet string `json:"snippet"`
}

const entryColumns = `id, instance, epoch, table_name, column_name, row_id, actor, ts, rationale,
	s_provenance, s_replicability, s_objective, s_methodology, s_publication, s_transparency,
	overall, tier, payload_checksum, payload_size, deleted, recorded_at`

// Record inserts e and its search entry within a transaction.
func (db *DB) Record(ctx context.Context, e Entry) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tracked_values (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`,
		e.ID, e.Instance, int64(e.Epoch), e.Table, e.Column, int64(e.RowID),
		e.Actor, e.Timestamp, e.Rationale,
		e.Scores[0], e.Scores[1], e.Scores[2], e.Scores[3], e.Scores[4], e.Scores[5],
		e.Overall, e.Tier, e.PayloadChecksum, e.PayloadSize, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("ledger: record: %w", err)
	}

	if err := ftsUpsert(tx, e.ID, e.Actor, e.Rationale); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkDeleted flags the entry for (instance, epoch, table, rowID) as
// deleted. A missing entry is not an error.
func (db *DB) MarkDeleted(ctx context.Context, instance string, epoch uint64, table string, rowID uint64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM tracked_values
		WHERE instance = ? AND epoch = ? AND table_name = ? AND row_id = ? AND deleted = 0
	`, instance, int64(epoch), table, int64(rowID)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger: mark deleted: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tracked_values SET deleted = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ledger: mark deleted: %w", err)
	}
	ftsDelete(tx, id)
	return tx.Commit()
}

// Get returns the live entry for table/rowID committed by the given store
// instance in the given registry epoch. Rows from earlier epochs or other
// instances, and deleted rows, are ErrNotFound.
func (db *DB) Get(ctx context.Context, instance string, epoch uint64, table string, rowID uint64) (*Entry, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM tracked_values
		WHERE instance = ? AND epoch = ? AND table_name = ? AND row_id = ? AND deleted = 0
	`, instance, int64(epoch), table, int64(rowID))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get: %w", err)
	}
	return e, nil
}

// List returns live entries for table, newest first, and the total count.
func (db *DB) List(ctx context.Context, table string, limit, offset int) ([]Entry, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM tracked_values WHERE table_name = ? AND deleted = 0`, table,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM tracked_values
		WHERE table_name = ? AND deleted = 0
		ORDER BY rowid DESC
		LIMIT ? OFFSET ?
	`, table, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// TierCounts returns the number of live entries per quality tier.
func (db *DB) TierCounts(ctx context.Context, table string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT tier, count(*) FROM tracked_values
		WHERE table_name = ? AND deleted = 0
		GROUP BY tier
	`, table)
	if err != nil {
		return nil, fmt.Errorf("ledger: tier counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		out[tier] = n
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e            Entry
		epoch, rowID int64
		deleted      int
	)
	err := s.Scan(
		&e.ID, &e.Instance, &epoch, &e.Table, &e.Column, &rowID, &e.Actor, &e.Timestamp, &e.Rationale,
		&e.Scores[0], &e.Scores[1], &e.Scores[2], &e.Scores[3], &e.Scores[4], &e.Scores[5],
		&e.Overall, &e.Tier, &e.PayloadChecksum, &e.PayloadSize, &deleted, &e.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Epoch = uint64(epoch)
	e.RowID = uint64(rowID)
	e.Deleted = deleted != 0
	return &e, nil
}
