package ledger

import "context"

// Ledger is the read/write surface consumers depend on, so tests can swap
// in a fake for the SQLite-backed *DB.
type Ledger interface {
	Record(ctx context.Context, e Entry) error
	MarkDeleted(ctx context.Context, instance string, epoch uint64, table string, rowID uint64) error
	Get(ctx context.Context, instance string, epoch uint64, table string, rowID uint64) (*Entry, error)
	List(ctx context.Context, table string, limit, offset int) ([]Entry, int, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	TierCounts(ctx context.Context, table string) (map[string]int, error)
	Close() error
}

// Verify *DB satisfies Ledger at compile time.
var _ Ledger = (*DB)(nil)
