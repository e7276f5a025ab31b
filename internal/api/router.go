package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/omni/internal/service"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *service.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Nodes.
	r.Get("/nodes", h.ListNodes)
	r.Get("/nodes/{id}", h.GetNode)
	r.Get("/nodes/{id}/backlinks", h.Backlinks)

	// Links.
	r.Get("/ghosts", h.Ghosts)
	r.Get("/resolve", h.Resolve)
	r.Get("/suggestions", h.Suggestions)

	// Graph.
	r.Get("/graph", h.Graph)

	// Builds.
	r.Post("/build", h.Build)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
