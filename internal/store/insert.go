package store

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/checksum"
	"github.com/starford/promptdb/internal/ledger"
	"github.com/starford/promptdb/internal/models"
	"github.com/starford/promptdb/internal/prompt"
	"github.com/starford/promptdb/internal/provenance"
	"github.com/starford/promptdb/internal/registry"
)

// Insert runs the validation pipeline and commits one row. Steps run in a
// fixed order and the first failure stops the pipeline with nothing mutated:
//
//  1. table name non-empty
//  2. column name non-empty
//  3. provenance (actor before rationale)
//  4. transport decode errors, then proof verification
//  5. registry commit
//
// The payload is accepted as-is; validating it is the caller's job.
func (s *Store) Insert(ctx context.Context, req models.InsertRequest) models.InsertResult {
	tv, err := s.admit(req)
	if err != nil {
		return s.rejectInsert(req, err)
	}

	rowID, err := s.reg.Insert(req.Table, s.recordInsert(ctx, req.Column, tv))
	if err != nil {
		return s.rejectInsert(req, err)
	}

	s.logger.Debug("store: row committed",
		slog.String("table", req.Table),
		slog.Uint64("row_id", rowID),
		slog.String("actor", req.Actor),
		slog.Int64("overall", tv.Scores.Overall().Value()))
	return models.InsertResult{Status: apperr.StatusOK, RowID: rowID}
}

// admit runs steps 1-4 and returns the tracked value to commit.
func (s *Store) admit(req models.InsertRequest) (provenance.TrackedValue, error) {
	if err := validation.Validate(req.Table, validation.Required); err != nil {
		return provenance.TrackedValue{}, fmt.Errorf("table name: %v: %w", err, apperr.ErrTypeError)
	}
	if err := validation.Validate(req.Column, validation.Required); err != nil {
		return provenance.TrackedValue{}, fmt.Errorf("column name: %v: %w", err, apperr.ErrTypeError)
	}
	prov, err := provenance.New(req.Actor, provenance.Timestamp(req.Timestamp), req.Rationale)
	if err != nil {
		return provenance.TrackedValue{}, err
	}
	if req.DecodeErr != nil {
		return provenance.TrackedValue{}, req.DecodeErr
	}
	scores, err := s.verifier.Verify(req.Proof)
	if err != nil {
		return provenance.TrackedValue{}, err
	}
	return provenance.Track(req.Payload, prov, scores)
}

func (s *Store) recordInsert(ctx context.Context, column string, tv provenance.TrackedValue) registry.CommitFunc {
	if s.recorder == nil {
		return nil
	}
	return func(c registry.Commit) error {
		err := s.recorder.Record(ctx, ledger.Entry{
			ID:              uuid.NewString(),
			Instance:        s.instance,
			Epoch:           c.Epoch,
			Table:           c.Table,
			Column:          column,
			RowID:           c.RowID,
			Actor:           tv.Provenance.Actor.String(),
			Timestamp:       int64(tv.Provenance.Timestamp),
			Rationale:       tv.Provenance.Rationale.String(),
			Scores:          scoreValues(tv.Scores),
			Overall:         tv.Scores.Overall().Value(),
			Tier:            string(tv.Scores.Tier()),
			PayloadChecksum: checksum.Payload(tv.Payload),
			PayloadSize:     len(tv.Payload),
		})
		if err != nil {
			return ledgerError(err)
		}
		return nil
	}
}

func (s *Store) rejectInsert(req models.InsertRequest, err error) models.InsertResult {
	st := s.status(err)
	s.logger.Debug("store: insert rejected",
		slog.String("table", req.Table),
		slog.String("status", st.String()),
		slog.String("error", err.Error()))
	return models.InsertResult{Status: st, RowID: 0, Message: err.Error()}
}

func ledgerError(err error) error {
	return fmt.Errorf("ledger: %v: %w", err, apperr.ErrGeneric)
}

func scoreValues(sc prompt.Scores) [6]int64 {
	var out [6]int64
	for i, d := range sc.Array() {
		out[i] = d.Value()
	}
	return out
}
