// Package store is the owned handle over the validated-ingestion core: the
// insert pipeline, proof verification, and the table registry.
//
// Every boundary call returns an apperr.Status; no error value crosses the
// boundary. A failing call also records a human-readable message readable
// through LastError until the next failing call overwrites it.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/ledger"
	"github.com/starford/promptdb/internal/proof"
	"github.com/starford/promptdb/internal/registry"
)

// Recorder receives committed mutations. It runs inside the registry's
// commit hook: an error rejects the mutation with StatusGenericError.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry) error
	MarkDeleted(ctx context.Context, instance string, epoch uint64, table string, rowID uint64) error
}

// Store owns the registry, verifier, and diagnostic state of one database.
type Store struct {
	reg      *registry.Registry
	verifier *proof.Verifier
	recorder Recorder
	logger   *slog.Logger
	instance string

	errMu   sync.Mutex
	lastErr string
}

// Option configures a Store.
type Option func(*options)

type options struct {
	decoder  proof.Decoder
	regOpts  []registry.Option
	recorder Recorder
	logger   *slog.Logger
}

// WithDecoder sets the proof decoder. The default is proof.RawDecoder.
func WithDecoder(d proof.Decoder) Option {
	return func(o *options) { o.decoder = d }
}

// WithRegistryOptions passes options through to the table registry.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(o *options) { o.regOpts = append(o.regOpts, opts...) }
}

// WithRecorder attaches a ledger that records every committed mutation.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Open creates a store with an initialized, empty registry.
func Open(opts ...Option) *Store {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	s := &Store{
		reg:      registry.New(o.regOpts...),
		verifier: proof.NewVerifier(o.decoder),
		recorder: o.recorder,
		logger:   o.logger,
		instance: uuid.NewString(),
	}
	s.reg.Init()
	return s
}

// Instance identifies this store handle in ledger entries.
func (s *Store) Instance() string { return s.instance }

// Init initializes the registry. Idempotent.
func (s *Store) Init() apperr.Status {
	s.reg.Init()
	return apperr.StatusOK
}

// Epoch counts registry initializations; ledger entries carry it.
func (s *Store) Epoch() uint64 { return s.reg.Epoch() }

// Initialized reports whether the registry is open.
func (s *Store) Initialized() bool { return s.reg.Initialized() }

// Dirty reports whether there are unsaved registry mutations.
func (s *Store) Dirty() bool { return s.reg.Dirty() }

// Save clears the dirty flag. It fails with StatusGenericError when the
// registry is uninitialized.
func (s *Store) Save() apperr.Status {
	return s.status(s.reg.Save())
}

// Close drops all tables and resets counters. Closing twice is a no-op.
func (s *Store) Close() apperr.Status {
	s.reg.Close()
	s.logger.Debug("store: closed", slog.String("instance", s.instance))
	return apperr.StatusOK
}

// TableCount returns the row count of table, 0 if unknown or closed.
func (s *Store) TableCount(table string) uint64 {
	return s.reg.Count(table)
}

// Tables returns a snapshot of the registry.
func (s *Store) Tables() []registry.TableInfo {
	return s.reg.Tables()
}

// DeleteRow decrements the row count of table.
func (s *Store) DeleteRow(ctx context.Context, table string, rowID uint64) apperr.Status {
	var hook registry.CommitFunc
	if s.recorder != nil {
		hook = func(c registry.Commit) error {
			if err := s.recorder.MarkDeleted(ctx, s.instance, c.Epoch, c.Table, c.RowID); err != nil {
				return ledgerError(err)
			}
			return nil
		}
	}
	err := s.reg.DeleteRow(table, rowID, hook)
	if err == nil {
		s.logger.Debug("store: row deleted", slog.String("table", table), slog.Uint64("row_id", rowID))
	}
	return s.status(err)
}

// LastError returns the message of the most recent failing call.
func (s *Store) LastError() string {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// ReadLastError copies the last error message into dst and returns the
// number of bytes written. The message is truncated to len(dst).
func (s *Store) ReadLastError(dst []byte) int {
	return copy(dst, s.LastError())
}

func (s *Store) setLastError(msg string) {
	s.errMu.Lock()
	s.lastErr = msg
	s.errMu.Unlock()
}

// status converts err to a Status and records the message of a failure.
func (s *Store) status(err error) apperr.Status {
	if err == nil {
		return apperr.StatusOK
	}
	s.setLastError(err.Error())
	return apperr.StatusOf(err)
}
