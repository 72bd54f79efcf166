// Package models defines the wire-level request and result types shared by
// the store, its transports, and the spool.
package models

import "github.com/starford/promptdb/internal/apperr"

// InsertRequest is one insert statement as handed over by a query layer.
// Payload and Proof are base64 in JSON.
type InsertRequest struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	Payload   []byte `json:"payload,omitempty"`
	Proof     []byte `json:"proof"`
	Actor     string `json:"actor"`
	Timestamp int64  `json:"timestamp"`
	Rationale string `json:"rationale"`

	// DecodeErr holds a transport decoding failure of Timestamp or Proof.
	// The store reports it at the proof step, after the field checks.
	DecodeErr error `json:"-"`
}

// InsertResult is the outcome of an insert. RowID is 0 unless Status is ok.
type InsertResult struct {
	Status  apperr.Status `json:"status"`
	RowID   uint64        `json:"row_id"`
	Message string        `json:"message,omitempty"`
}

// ScoreSet is the JSON form of a PROMPT aggregate.
type ScoreSet struct {
	Provenance    int64  `json:"provenance"`
	Replicability int64  `json:"replicability"`
	Objective     int64  `json:"objective"`
	Methodology   int64  `json:"methodology"`
	Publication   int64  `json:"publication"`
	Transparency  int64  `json:"transparency"`
	Overall       int64  `json:"overall"`
	Tier          string `json:"tier"`
	Weakest       string `json:"weakest"`
}

// ProofResult is the outcome of a verification. Scores are all zero unless
// Status is ok; callers must branch on Status.
type ProofResult struct {
	Status  apperr.Status `json:"status"`
	Scores  ScoreSet      `json:"scores"`
	Message string        `json:"message,omitempty"`
}

// RowEvent describes a registry mutation for subscribers.
type RowEvent struct {
	Kind  string `json:"kind"`
	Table string `json:"table"`
	RowID uint64 `json:"row_id"`
}

// SpoolFile is a pending request file in the spool directory.
type SpoolFile struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}
