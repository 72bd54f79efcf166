package store

import (
	"log/slog"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/models"
	"github.com/starford/promptdb/internal/prompt"
	"github.com/starford/promptdb/internal/refined"
)

// ProofResult is the outcome of a verification. Scores is the zero sentinel
// unless Status is ok.
type ProofResult struct {
	Status  apperr.Status
	Scores  prompt.Scores
	Message string
}

// Model converts r to its wire form.
func (r ProofResult) Model() models.ProofResult {
	return models.ProofResult{
		Status:  r.Status,
		Scores:  models.NewScoreSet(r.Scores),
		Message: r.Message,
	}
}

// VerifyProof checks a proof blob as extracted by a query layer from an
// insert statement. Nothing is committed.
func (s *Store) VerifyProof(blob []byte) ProofResult {
	res := s.verify(blob)
	if !res.Status.OK() {
		s.logger.Debug("store: proof rejected",
			slog.Int("size", len(blob)),
			slog.String("status", res.Status.String()))
	}
	return res
}

// GetScores is the read-only score lookup for a proof blob.
func (s *Store) GetScores(blob []byte) ProofResult {
	return s.verify(blob)
}

func (s *Store) verify(blob []byte) ProofResult {
	scores, err := s.verifier.Verify(blob)
	if err != nil {
		return ProofResult{Status: s.status(err), Message: err.Error()}
	}
	return ProofResult{Status: apperr.StatusOK, Scores: scores}
}

// ComputeOverall returns floor(sum/6) of six dimension values. Any value
// outside [0,100] yields StatusTypeError and an overall of 0.
func (s *Store) ComputeOverall(values [6]int64) (int64, apperr.Status) {
	overall, err := prompt.ComputeOverall(values)
	if err != nil {
		return 0, s.status(err)
	}
	return overall.Value(), apperr.StatusOK
}

// ValidateNonEmpty reports whether b has at least one byte.
func (s *Store) ValidateNonEmpty(b []byte) bool {
	return refined.ValidateNonEmpty(b)
}
