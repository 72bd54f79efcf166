package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptdb/internal/ingest"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *ingest.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/rows", h.InsertRow)

	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.ListTables)
		r.Get("/{table}/count", h.TableCount)
		r.Get("/{table}/rows", h.ListRows)
		r.Get("/{table}/rows/{id}", h.GetRow)
		r.Delete("/{table}/rows/{id}", h.DeleteRow)
	})

	r.Post("/proofs/verify", h.VerifyProof)
	r.Post("/proofs/scores", h.GetScores)
	r.Post("/proofs/upload", h.UploadProof)
	r.Post("/scores/overall", h.ComputeOverall)

	r.Post("/store/save", h.Save)
	r.Get("/errors/last", h.LastError)

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
