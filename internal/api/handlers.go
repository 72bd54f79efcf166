package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/ingest"
	"github.com/starford/promptdb/internal/parser"
)

// Handler holds API route handlers.
type Handler struct {
	svc *ingest.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *ingest.Service) *Handler {
	return &Handler{svc: svc}
}

func rowIDParam(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// InsertRow handles POST /rows.
//
//	@Summary		Insert a value with provenance and proof
//	@Tags			rows
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InsertRowRequest	true	"Row to insert"
//	@Success		201		{object}	InsertRowResponse
//	@Failure		400		{object}	InsertRowResponse
//	@Failure		422		{object}	InsertRowResponse
//	@Failure		507		{object}	InsertRowResponse
//	@Security		BearerAuth
//	@Router			/rows [post]
func (h *Handler) InsertRow(w http.ResponseWriter, r *http.Request) {
	var body InsertRowRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	res := h.svc.Insert(r.Context(), body.toModel())
	writeJSON(w, httpStatus(res.Status, http.StatusCreated), InsertRowResponse{
		StatusResponse: statusBody(res.Status, res.Message),
		RowID:          res.RowID,
	})
}

// DeleteRow handles DELETE /tables/{table}/rows/{id}.
//
//	@Summary		Delete a row (decrements the table's row count)
//	@Tags			rows
//	@Produce		json
//	@Param			table	path		string	true	"Table name"
//	@Param			id		path		int		true	"Row id"
//	@Success		200		{object}	StatusResponse
//	@Failure		400		{object}	StatusResponse
//	@Failure		409		{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/tables/{table}/rows/{id} [delete]
func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	id, ok := rowIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("row id must be a positive integer"))
		return
	}
	st := h.svc.DeleteRow(r.Context(), chi.URLParam(r, "table"), id)
	msg := ""
	if !st.OK() {
		msg = h.svc.LastError()
	}
	writeJSON(w, httpStatus(st, http.StatusOK), statusBody(st, msg))
}

// ListTables handles GET /tables.
//
//	@Summary		List registry tables
//	@Tags			tables
//	@Produce		json
//	@Success		200	{object}	TableListResponse
//	@Security		BearerAuth
//	@Router			/tables [get]
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TableListResponse{Tables: h.svc.Tables(r.Context())})
}

// TableCount handles GET /tables/{table}/count.
//
//	@Summary		Row count of a table (0 if unknown)
//	@Tags			tables
//	@Produce		json
//	@Param			table	path		string	true	"Table name"
//	@Success		200		{object}	CountResponse
//	@Security		BearerAuth
//	@Router			/tables/{table}/count [get]
func (h *Handler) TableCount(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	writeJSON(w, http.StatusOK, CountResponse{Table: table, Count: h.svc.TableCount(table)})
}

// ListRows handles GET /tables/{table}/rows.
//
//	@Summary		List ledger entries of live rows
//	@Tags			rows
//	@Produce		json
//	@Param			table	path		string	true	"Table name"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	RowListResponse
//	@Security		BearerAuth
//	@Router			/tables/{table}/rows [get]
func (h *Handler) ListRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	table := chi.URLParam(r, "table")

	rows, total, err := h.svc.History(r.Context(), table, limit, offset)
	if err != nil {
		slog.Error("list rows failed", slog.String("table", table), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RowListResponse{Rows: rows, Total: total})
}

// GetRow handles GET /tables/{table}/rows/{id}.
//
//	@Summary		Get the ledger entry of a row
//	@Tags			rows
//	@Produce		json
//	@Param			table	path		string	true	"Table name"
//	@Param			id		path		int		true	"Row id"
//	@Success		200		{object}	ledger.Entry
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tables/{table}/rows/{id} [get]
func (h *Handler) GetRow(w http.ResponseWriter, r *http.Request) {
	id, ok := rowIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("row id must be a positive integer"))
		return
	}
	table := chi.URLParam(r, "table")
	row, err := h.svc.Row(r.Context(), table, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get row failed", slog.String("table", table), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// VerifyProof handles POST /proofs/verify.
//
//	@Summary		Verify a hex-encoded proof blob
//	@Tags			proofs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProofRequest	true	"Proof"
//	@Success		200		{object}	ProofResponse
//	@Failure		422		{object}	ProofResponse
//	@Security		BearerAuth
//	@Router			/proofs/verify [post]
func (h *Handler) VerifyProof(w http.ResponseWriter, r *http.Request) {
	blob, ok := h.readProof(w, r)
	if !ok {
		return
	}
	res := h.svc.VerifyProof(blob)
	writeJSON(w, httpStatus(res.Status, http.StatusOK), newProofResponse(res))
}

// GetScores handles POST /proofs/scores.
//
//	@Summary		Read the PROMPT scores of a proof without committing
//	@Tags			proofs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProofRequest	true	"Proof"
//	@Success		200		{object}	ProofResponse
//	@Failure		422		{object}	ProofResponse
//	@Security		BearerAuth
//	@Router			/proofs/scores [post]
func (h *Handler) GetScores(w http.ResponseWriter, r *http.Request) {
	blob, ok := h.readProof(w, r)
	if !ok {
		return
	}
	res := h.svc.GetScores(blob)
	writeJSON(w, httpStatus(res.Status, http.StatusOK), newProofResponse(res))
}

func (h *Handler) readProof(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	var body ProofRequest
	if !decodeJSON(w, r, &body) {
		return nil, false
	}
	blob, err := parser.DecodeProof(body.Proof)
	if err != nil {
		st := apperr.StatusOf(err)
		writeJSON(w, httpStatus(st, http.StatusOK), ProofResponse{StatusResponse: statusBody(st, err.Error())})
		return nil, false
	}
	return blob, true
}

// ComputeOverall handles POST /scores/overall.
//
//	@Summary		Floor average of six dimension values
//	@Tags			scores
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OverallRequest	true	"Six values in fixed order"
//	@Success		200		{object}	OverallResponse
//	@Failure		400		{object}	OverallResponse
//	@Security		BearerAuth
//	@Router			/scores/overall [post]
func (h *Handler) ComputeOverall(w http.ResponseWriter, r *http.Request) {
	var body OverallRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var values [6]int64
	copy(values[:], body.Values)

	overall, st := h.svc.ComputeOverall(values)
	msg := ""
	if !st.OK() {
		msg = h.svc.LastError()
	}
	writeJSON(w, httpStatus(st, http.StatusOK), OverallResponse{StatusResponse: statusBody(st, msg), Overall: overall})
}

// Save handles POST /store/save.
//
//	@Summary		Flush the registry
//	@Tags			store
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Failure		409	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/store/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Save()
	msg := ""
	if !st.OK() {
		msg = h.svc.LastError()
	}
	writeJSON(w, httpStatus(st, http.StatusOK), statusBody(st, msg))
}

// LastError handles GET /errors/last.
//
//	@Summary		Message of the most recent failing call
//	@Tags			store
//	@Produce		json
//	@Success		200	{object}	LastErrorResponse
//	@Security		BearerAuth
//	@Router			/errors/last [get]
func (h *Handler) LastError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LastErrorResponse{Message: h.svc.LastError()})
}

// Search handles GET /search.
//
//	@Summary		Search ledger entries by rationale or actor
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
