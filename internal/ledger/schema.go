// Package ledger keeps a SQLite record of every committed tracked value:
// its provenance, PROMPT scores and payload digest. The registry only
// counts rows; the ledger is what makes them auditable.
package ledger

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS tracked_values (
	id               TEXT PRIMARY KEY,
	instance         TEXT    NOT NULL,
	epoch            INTEGER NOT NULL,
	table_name       TEXT    NOT NULL,
	column_name      TEXT    NOT NULL,
	row_id           INTEGER NOT NULL,
	actor            TEXT    NOT NULL,
	ts               INTEGER NOT NULL,
	rationale        TEXT    NOT NULL,
	s_provenance     INTEGER NOT NULL,
	s_replicability  INTEGER NOT NULL,
	s_objective      INTEGER NOT NULL,
	s_methodology    INTEGER NOT NULL,
	s_publication    INTEGER NOT NULL,
	s_transparency   INTEGER NOT NULL,
	overall          INTEGER NOT NULL,
	tier             TEXT    NOT NULL,
	payload_checksum TEXT    NOT NULL DEFAULT '',
	payload_size     INTEGER NOT NULL DEFAULT 0,
	deleted          INTEGER NOT NULL DEFAULT 0,
	recorded_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(instance, epoch, table_name, row_id)
);

CREATE INDEX IF NOT EXISTS idx_tracked_table ON tracked_values(table_name, row_id);
CREATE INDEX IF NOT EXISTS idx_tracked_actor ON tracked_values(actor);
`

// DB wraps a sql.DB with ledger operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	// SQLite allows one writer; serialize through a single connection.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
