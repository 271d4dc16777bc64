package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jesrav/jesktop/internal/retrieval"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *retrieval.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Retrieval.
	r.Post("/query", h.Query)

	// Notes and their graph context.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{id}", h.GetNote)
	r.Get("/notes/{id}/backlinks", h.GetBacklinks)

	// Stored attachments.
	r.Get("/images/{id}", h.GetImage)

	// Whole-corpus views.
	r.Get("/graph", h.Graph)
	r.Get("/diagnostics", h.Diagnostics)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
