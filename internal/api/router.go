package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Stateless conversion.
	r.Post("/rewrite", h.Rewrite)
	r.Get("/normalize", h.Normalize)
	r.Get("/rules", h.Rules)

	// Tree runs and manifest queries.
	r.Post("/runs", h.StartRun)
	r.Get("/conversions", h.ListConversions)
	r.Get("/backlinks", h.Backlinks)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
