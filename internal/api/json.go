package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/promptdb/internal/apperr"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// httpStatus maps a store status to an HTTP status code.
func httpStatus(st apperr.Status, success int) int {
	switch st {
	case apperr.StatusOK:
		return success
	case apperr.StatusInvalidProof, apperr.StatusProofFailed:
		return http.StatusUnprocessableEntity
	case apperr.StatusTypeError, apperr.StatusInvalidActor,
		apperr.StatusInvalidRationale, apperr.StatusInvalidTimestamp:
		return http.StatusBadRequest
	case apperr.StatusOutOfMemory:
		return http.StatusInsufficientStorage
	default:
		return http.StatusConflict
	}
}

func statusBody(st apperr.Status, msg string) StatusResponse {
	return StatusResponse{Status: st.String(), Code: int(st), Message: msg}
}
