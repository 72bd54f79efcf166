// Package testutil provides shared fixtures for ledgers, spools and stores.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/promptdb/internal/ledger"
	"github.com/starford/promptdb/internal/models"
	"github.com/starford/promptdb/internal/storage"
	"github.com/starford/promptdb/internal/store"
)

// SampleProof is a raw-scheme blob scoring 80,70,90,85,75,80 (overall 80).
var SampleProof = []byte{0xA6, 80, 70, 90, 85, 75, 80}

// SampleProofHex is SampleProof hex-encoded.
const SampleProofHex = "a650465a554b50"

// Request returns a valid insert request for table using SampleProof.
func Request(table string) models.InsertRequest {
	return models.InsertRequest{
		Table:     table,
		Column:    "name",
		Payload:   []byte("Alice"),
		Proof:     append([]byte(nil), SampleProof...),
		Actor:     "u1",
		Timestamp: 1700000000000,
		Rationale: "initial import",
	}
}

// TestLedger creates a temporary SQLite ledger that is cleaned up with t.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "promptdb-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := ledger.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSpool creates a temporary spool directory with a storage.Provider.
func TestSpool(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestStore opens a store recording into led (may be nil) with a quiet
// logger.
func TestStore(t *testing.T, led *ledger.DB, opts ...store.Option) *store.Store {
	t.Helper()
	opts = append([]store.Option{store.WithLogger(QuietLogger())}, opts...)
	if led != nil {
		opts = append(opts, store.WithRecorder(led))
	}
	st := store.Open(opts...)
	t.Cleanup(func() { st.Close() })
	return st
}

// QuietLogger discards everything below Error.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
