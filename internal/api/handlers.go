package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/omni/internal/service"
)

// Handler holds API route handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// fail maps a service error to a response. Unknown errors are logged and
// hidden behind a 500.
func fail(w http.ResponseWriter, op string, err error, attrs ...any) {
	switch {
	case service.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorFrom(err))
	case service.IsBadRequest(err):
		writeJSON(w, http.StatusBadRequest, errorFrom(err))
	default:
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.Error(op+" failed", attrs...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNodes handles GET /api/nodes.
//
//	@Summary		List nodes, optionally filtered by tag
//	@Tags			nodes
//	@Produce		json
//	@Param			tag	query		string	false	"Filter by tag"
//	@Success		200	{object}	NodeListResponse
//	@Security		BearerAuth
//	@Router			/nodes [get]
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	nodes, err := h.svc.Nodes(r.Context(), tag)
	if err != nil {
		fail(w, "list nodes", err, slog.String("tag", tag))
		return
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: nodes, Total: len(nodes)})
}

// GetNode handles GET /api/nodes/{id}.
//
//	@Summary		Get a node with its links and backlinks
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	NodeDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	node, err := h.svc.Node(r.Context(), id)
	if err != nil {
		fail(w, "get node", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// Backlinks handles GET /api/nodes/{id}/backlinks.
//
//	@Summary		List the nodes linking to a node
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	nodes, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		fail(w, "backlinks", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Nodes: nodes})
}

// Ghosts handles GET /api/ghosts.
//
//	@Summary		List links that point at no node yet
//	@Tags			links
//	@Produce		json
//	@Success		200	{object}	GhostsResponse
//	@Security		BearerAuth
//	@Router			/ghosts [get]
func (h *Handler) Ghosts(w http.ResponseWriter, r *http.Request) {
	ghosts, err := h.svc.Ghosts(r.Context())
	if err != nil {
		fail(w, "ghosts", err)
		return
	}
	writeJSON(w, http.StatusOK, GhostsResponse{Ghosts: ghosts})
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a link text against the graph
//	@Tags			links
//	@Produce		json
//	@Param			link	query		string	true	"Link text, e.g. linalg.vector"
//	@Param			alias	query		string	false	"Display alias"
//	@Success		200		{object}	ResolveResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	link := q.Get("link")
	if link == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'link' is required"))
		return
	}
	res, err := h.svc.Resolve(r.Context(), link, q.Get("alias"))
	if err != nil {
		fail(w, "resolve", err, slog.String("link", link))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Suggestions handles GET /api/suggestions.
//
//	@Summary		Suggest the shortest unambiguous link for every node
//	@Tags			links
//	@Produce		json
//	@Success		200	{object}	SuggestionsResponse
//	@Security		BearerAuth
//	@Router			/suggestions [get]
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.svc.Suggestions(r.Context())
	if err != nil {
		fail(w, "suggestions", err)
		return
	}
	out := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, suggestionDTO(s))
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: out})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the knowledge graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		fail(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Build handles POST /api/build.
//
//	@Summary		Build one tracked file, or the whole project
//	@Tags			build
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BuildRequest	false	"File to build"
//	@Success		200		{object}	BuildResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/build [post]
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Build(r.Context(), req.Path)
	if err != nil {
		fail(w, "build", err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
