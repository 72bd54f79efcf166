package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/ingest"
	"github.com/starford/promptdb/internal/ledger"
	"github.com/starford/promptdb/internal/models"
	"github.com/starford/promptdb/internal/parser"
)

// InsertRowRequest is the request body for inserting a tracked value.
type InsertRowRequest struct {
	Table     string          `json:"table" example:"users" validate:"required"`
	Column    string          `json:"column" example:"name" validate:"required"`
	Payload   string          `json:"payload" example:"Alice"`
	Proof     string          `json:"proof" example:"a650465a554b50" validate:"required"`
	Actor     string          `json:"actor" example:"u1" validate:"required"`
	Timestamp json.RawMessage `json:"timestamp" swaggertype:"string" example:"2023-11-14T22:13:20Z" validate:"required"`
	Rationale string          `json:"rationale" example:"initial import" validate:"required"`
}

// toModel converts the body into a store request. Only wire-level decoding
// happens here; a decode failure travels in DecodeErr so the store reports
// it in pipeline order.
func (r InsertRowRequest) toModel() models.InsertRequest {
	req := models.InsertRequest{
		Table:     r.Table,
		Column:    r.Column,
		Payload:   []byte(r.Payload),
		Actor:     r.Actor,
		Rationale: r.Rationale,
	}
	ts, err := parseJSONTimestamp(r.Timestamp)
	if err != nil {
		req.DecodeErr = err
		return req
	}
	req.Timestamp = ts
	blob, err := parser.DecodeProof(r.Proof)
	if err != nil {
		req.DecodeErr = err
		return req
	}
	req.Proof = blob
	return req
}

// parseJSONTimestamp accepts a JSON number (ms) or an RFC 3339 string.
func parseJSONTimestamp(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("timestamp: missing: %w", apperr.ErrInvalidTimestamp)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("timestamp: %v: %w", err, apperr.ErrInvalidTimestamp)
		}
		return parser.ParseTimestamp(s)
	}
	return parser.ParseTimestamp(string(raw))
}

// ProofRequest carries a hex-encoded proof blob.
type ProofRequest struct {
	Proof string `json:"proof" example:"a650465a554b50" validate:"required"`
}

// OverallRequest carries six dimension values in fixed order.
type OverallRequest struct {
	Values []int64 `json:"values" example:"100,80,90,70,60,80" validate:"required"`
}

// Validate implements validation.Validatable.
func (r OverallRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Values, validation.Required, validation.Length(6, 6)),
	)
}

// StatusResponse is the outcome of a boundary call.
type StatusResponse struct {
	Status  string `json:"status" example:"ok" validate:"required"`
	Code    int    `json:"code" example:"0"`
	Message string `json:"message,omitempty"`
}

// InsertRowResponse is returned by POST /rows.
type InsertRowResponse struct {
	StatusResponse
	RowID uint64 `json:"row_id" example:"1"`
}

// ProofResponse is the outcome of a proof verification.
type ProofResponse struct {
	StatusResponse
	Scores models.ScoreSet `json:"scores"`
}

func newProofResponse(res models.ProofResult) ProofResponse {
	return ProofResponse{StatusResponse: statusBody(res.Status, res.Message), Scores: res.Scores}
}

// OverallResponse is returned by POST /scores/overall.
type OverallResponse struct {
	StatusResponse
	Overall int64 `json:"overall" example:"80"`
}

// CountResponse is returned by GET /tables/{table}/count.
type CountResponse struct {
	Table string `json:"table" example:"users" validate:"required"`
	Count uint64 `json:"count" example:"2"`
}

// TableListResponse wraps registry entries.
type TableListResponse struct {
	Tables []ingest.TableSummary `json:"tables" validate:"required"`
}

// RowListResponse wraps paginated ledger entries.
type RowListResponse struct {
	Rows  []ledger.Entry `json:"rows" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []ledger.SearchResult `json:"results" validate:"required"`
}

// LastErrorResponse is returned by GET /errors/last.
type LastErrorResponse struct {
	Message string `json:"message" example:"actor: invalid actor"`
}

// ProofUploadResponse is returned after a proof file upload.
type ProofUploadResponse struct {
	ProofResponse
	Filename string `json:"filename" example:"proof.bin"`
	Size     int64  `json:"size" example:"7"`
}
