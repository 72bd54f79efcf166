// Package ingest coordinates the store, the evidence ledger and the event
// broker for the transports.
package ingest

import (
	"context"
	"log/slog"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/ledger"
	"github.com/starford/promptdb/internal/models"
	"github.com/starford/promptdb/internal/registry"
	"github.com/starford/promptdb/internal/store"
)

// Publisher receives row mutations after they are committed.
type Publisher interface {
	PublishRowEvent(ev models.RowEvent)
}

// TableSummary is a registry entry enriched with ledger tier counts.
type TableSummary struct {
	Name      string         `json:"name"`
	RowCount  uint64         `json:"row_count"`
	NextRowID uint64         `json:"next_row_id"`
	Tiers     map[string]int `json:"tiers,omitempty"`
}

// Service is the single entry point used by the REST, MCP and spool
// transports.
type Service struct {
	store  *store.Store
	ledger ledger.Ledger
	events Publisher
	logger *slog.Logger
}

// NewService wires a service. led and events may be nil when the ledger or
// the broker is disabled.
func NewService(st *store.Store, led ledger.Ledger, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, ledger: led, events: events, logger: logger}
}

// Insert runs the insert pipeline and announces the new row.
func (s *Service) Insert(ctx context.Context, req models.InsertRequest) models.InsertResult {
	res := s.store.Insert(ctx, req)
	if res.Status.OK() {
		s.publish("inserted", req.Table, res.RowID)
	}
	return res
}

// DeleteRow decrements a table's row count and announces the deletion.
func (s *Service) DeleteRow(ctx context.Context, table string, rowID uint64) apperr.Status {
	st := s.store.DeleteRow(ctx, table, rowID)
	if st.OK() {
		s.publish("deleted", table, rowID)
	}
	return st
}

// VerifyProof checks a proof blob extracted from an insert statement.
func (s *Service) VerifyProof(blob []byte) models.ProofResult {
	return s.store.VerifyProof(blob).Model()
}

// GetScores returns the scores of a proof blob without committing anything.
func (s *Service) GetScores(blob []byte) models.ProofResult {
	return s.store.GetScores(blob).Model()
}

// ComputeOverall returns the floor average of six dimension values.
func (s *Service) ComputeOverall(values [6]int64) (int64, apperr.Status) {
	return s.store.ComputeOverall(values)
}

// TableCount returns the current row count of table.
func (s *Service) TableCount(table string) uint64 {
	return s.store.TableCount(table)
}

// Save flushes the registry's dirty flag.
func (s *Service) Save() apperr.Status {
	return s.store.Save()
}

// LastError returns the message of the most recent failing store call.
func (s *Service) LastError() string {
	return s.store.LastError()
}

// Tables lists registry entries. Tier counts are attached when the ledger
// is enabled; a ledger read failure only drops them.
func (s *Service) Tables(ctx context.Context) []TableSummary {
	infos := s.store.Tables()
	out := make([]TableSummary, len(infos))
	for i, info := range infos {
		out[i] = summarize(info)
		if s.ledger == nil {
			continue
		}
		tiers, err := s.ledger.TierCounts(ctx, info.Name)
		if err != nil {
			s.logger.Warn("ingest: tier counts failed",
				slog.String("table", info.Name),
				slog.String("error", err.Error()))
			continue
		}
		out[i].Tiers = tiers
	}
	return out
}

// Row returns the ledger entry for a live row of the open registry. Rows
// from before a Close, or deleted since, are not found.
func (s *Service) Row(ctx context.Context, table string, rowID uint64) (*ledger.Entry, error) {
	if s.ledger == nil || !s.store.Initialized() {
		return nil, apperr.ErrNotFound
	}
	return s.ledger.Get(ctx, s.store.Instance(), s.store.Epoch(), table, rowID)
}

// History returns live ledger entries for table, newest first.
func (s *Service) History(ctx context.Context, table string, limit, offset int) ([]ledger.Entry, int, error) {
	if s.ledger == nil {
		return []ledger.Entry{}, 0, nil
	}
	items, total, err := s.ledger.List(ctx, table, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(items), total, nil
}

// Search looks up ledger entries by rationale or actor.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]ledger.SearchResult, error) {
	if s.ledger == nil {
		return []ledger.SearchResult{}, nil
	}
	results, err := s.ledger.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(results), nil
}

func (s *Service) publish(kind, table string, rowID uint64) {
	if s.events == nil {
		return
	}
	s.events.PublishRowEvent(models.RowEvent{Kind: kind, Table: table, RowID: rowID})
}

func summarize(info registry.TableInfo) TableSummary {
	return TableSummary{Name: info.Name, RowCount: info.RowCount, NextRowID: info.NextRowID}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
