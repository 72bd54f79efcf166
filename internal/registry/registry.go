// Package registry is the row-count ledger that stands in for a storage
// engine: table name to row count and next row id.
//
// A single mutex guards every operation, so row-id allocation is atomic and
// ids for one table are strictly increasing in call order.
package registry

import (
	"fmt"
	"sync"

	"github.com/starford/promptdb/internal/apperr"
)

const (
	DefaultMaxTables    = 16
	DefaultMaxNameBytes = 64
)

// Commit describes a mutation about to be applied. Hooks receive it while
// the registry lock is held and must not call back into the registry.
type Commit struct {
	Table string
	RowID uint64
	Epoch uint64
}

// CommitFunc runs before a mutation is applied. Returning an error aborts
// the mutation and leaves the registry unchanged.
type CommitFunc func(Commit) error

// TableInfo is a snapshot of one registry entry.
type TableInfo struct {
	Name      string `json:"name"`
	RowCount  uint64 `json:"row_count"`
	NextRowID uint64 `json:"next_row_id"`
}

type entry struct {
	name      string
	rowCount  uint64
	nextRowID uint64
}

// Registry tracks tables for one open store.
type Registry struct {
	mu sync.Mutex

	maxTables    int
	maxNameBytes int

	tables      []entry
	initialized bool
	dirty       bool
	epoch       uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxTables overrides the table-count ceiling.
func WithMaxTables(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxTables = n
		}
	}
}

// WithMaxNameBytes overrides the table-name length ceiling.
func WithMaxNameBytes(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxNameBytes = n
		}
	}
}

// New returns an uninitialized registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		maxTables:    DefaultMaxTables,
		maxNameBytes: DefaultMaxNameBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init moves the registry to the initialized state. It is a no-op when
// already initialized.
func (r *Registry) Init() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initLocked()
}

func (r *Registry) initLocked() {
	if r.initialized {
		return
	}
	r.initialized = true
	r.tables = make([]entry, 0, r.maxTables)
	r.dirty = false
	r.epoch++
}

// Initialized reports the lifecycle state.
func (r *Registry) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Epoch counts initializations. Row ids restart at 1 after Close, so
// (Epoch, Table, RowID) is unique for the registry's lifetime.
func (r *Registry) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// Dirty reports whether there are mutations since the last Save.
func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// lookup returns the index of name, or -1.
func (r *Registry) lookup(name string) int {
	for i := range r.tables {
		if len(r.tables[i].name) == len(name) && r.tables[i].name == name {
			return i
		}
	}
	return -1
}

// admit reports whether a new entry for name may be created.
func (r *Registry) admit(name string) error {
	if name == "" {
		return fmt.Errorf("registry: empty table name: %w", apperr.ErrTypeError)
	}
	if len(name) > r.maxNameBytes {
		return fmt.Errorf("registry: table name is %d bytes (max %d): %w", len(name), r.maxNameBytes, apperr.ErrOutOfMemory)
	}
	if len(r.tables) >= r.maxTables {
		return fmt.Errorf("registry: table limit %d reached: %w", r.maxTables, apperr.ErrOutOfMemory)
	}
	return nil
}

// ResolveOrCreate returns the index of name, creating an entry if needed.
// It initializes the registry if necessary.
func (r *Registry) ResolveOrCreate(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initLocked()

	if i := r.lookup(name); i >= 0 {
		return i, nil
	}
	if err := r.admit(name); err != nil {
		return -1, err
	}
	r.tables = append(r.tables, entry{name: name, nextRowID: 1})
	r.dirty = true
	return len(r.tables) - 1, nil
}

// Insert allocates the next row id of name, creating the table on first
// use. commit, when non-nil, runs before anything is mutated; if it fails
// the table is not created and no id is consumed.
func (r *Registry) Insert(name string, commit CommitFunc) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initLocked()

	idx := r.lookup(name)
	rowID := uint64(1)
	if idx >= 0 {
		rowID = r.tables[idx].nextRowID
	} else if err := r.admit(name); err != nil {
		return 0, err
	}

	if commit != nil {
		if err := commit(Commit{Table: name, RowID: rowID, Epoch: r.epoch}); err != nil {
			return 0, err
		}
	}

	if idx < 0 {
		r.tables = append(r.tables, entry{name: name, nextRowID: 1})
		idx = len(r.tables) - 1
	}
	e := &r.tables[idx]
	e.nextRowID = rowID + 1
	e.rowCount++
	r.dirty = true
	return rowID, nil
}

// Count returns the row count of name, or 0 when the table is unknown or
// the registry is uninitialized.
func (r *Registry) Count(name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return 0
	}
	if i := r.lookup(name); i >= 0 {
		return r.tables[i].rowCount
	}
	return 0
}

// DeleteRow decrements the row count of name. Row identity is not tracked
// here; rowID is passed through to commit.
func (r *Registry) DeleteRow(name string, rowID uint64, commit CommitFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return fmt.Errorf("registry: not initialized: %w", apperr.ErrGeneric)
	}
	i := r.lookup(name)
	if i < 0 {
		return fmt.Errorf("registry: unknown table %q: %w", name, apperr.ErrTypeError)
	}
	if r.tables[i].rowCount == 0 {
		return fmt.Errorf("registry: table %q has no rows: %w", name, apperr.ErrGeneric)
	}
	if commit != nil {
		if err := commit(Commit{Table: name, RowID: rowID, Epoch: r.epoch}); err != nil {
			return err
		}
	}
	r.tables[i].rowCount--
	r.dirty = true
	return nil
}

// Save clears the dirty flag. There is nothing to flush.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return fmt.Errorf("registry: save before init: %w", apperr.ErrGeneric)
	}
	r.dirty = false
	return nil
}

// Close drops every entry and returns the registry to the uninitialized
// state. Closing a closed registry is a no-op.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = nil
	r.initialized = false
	r.dirty = false
}

// Tables returns a snapshot of all entries in creation order.
func (r *Registry) Tables() []TableInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TableInfo, len(r.tables))
	for i, e := range r.tables {
		out[i] = TableInfo{Name: e.name, RowCount: e.rowCount, NextRowID: e.nextRowID}
	}
	return out
}
