package api

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/starford/promptdb/internal/proof"
)

// Multipart framing allowance on top of the proof itself.
const maxUploadOverhead = 16 << 10

// UploadProof handles POST /proofs/upload (multipart/form-data, field
// "file"). The file content is the raw proof blob; nothing is stored.
//
//	@Summary		Score an uploaded proof file
//	@Tags			proofs
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Proof blob"
//	@Success		200		{object}	ProofUploadResponse
//	@Failure		422		{object}	ProofUploadResponse
//	@Security		BearerAuth
//	@Router			/proofs/upload [post]
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, proof.MaxBlobSize+maxUploadOverhead)

	if err := r.ParseMultipartForm(proof.MaxBlobSize + maxUploadOverhead); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	// One byte past the ceiling is enough to reject as oversize.
	blob, err := io.ReadAll(io.LimitReader(file, proof.MaxBlobSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	res := h.svc.GetScores(blob)
	writeJSON(w, httpStatus(res.Status, http.StatusOK), ProofUploadResponse{
		ProofResponse: newProofResponse(res),
		Filename:      filepath.Base(header.Filename),
		Size:          header.Size,
	})
}
