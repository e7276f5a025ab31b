package api

import (
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/index"
	"github.com/starford/omni/internal/service"
)

// BuildRequest is the request body for triggering a build.
type BuildRequest struct {
	// Path is a root-relative path of a tracked file. Empty means a full build.
	Path string `json:"path" example:"src/cs/linear-algebra/vector.typ"`
}

// NodeDetail is the full node response type (aliased from the domain layer).
type NodeDetail = service.NodeDetail

// NodeListItem is a node in a list response (aliased from the index).
type NodeListItem = index.NodeRow

// NodeListResponse wraps node listings.
type NodeListResponse struct {
	Nodes []NodeListItem `json:"nodes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse wraps the nodes linking to a node.
type BacklinksResponse struct {
	Nodes []NodeListItem `json:"nodes" validate:"required"`
}

// GhostsResponse wraps unresolved links.
type GhostsResponse struct {
	Ghosts []index.Ghost `json:"ghosts" validate:"required"`
}

// ResolveResponse is the answer to a link lookup.
type ResolveResponse = service.Resolved

// Suggestion is the shortest unambiguous link for a node.
type Suggestion struct {
	Link  string `json:"link" example:"linalg.vector" validate:"required"`
	ID    string `json:"id" example:"20240101120000-1a2b3c4d" validate:"required"`
	Path  string `json:"path" example:"src/cs/linear-algebra/vector.typ" validate:"required"`
	Title string `json:"title,omitempty" example:"Vector"`
}

func suggestionDTO(s graph.Suggestion) Suggestion {
	return Suggestion{Link: s.Link.String(), ID: s.NodeID.String(), Path: s.Path, Title: s.Title}
}

// SuggestionsResponse wraps the suggested link for every node.
type SuggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions" validate:"required"`
}

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Links []index.GraphLink `json:"links" validate:"required"`
}

// BuildResponse reports what a build touched.
type BuildResponse = service.BuildResult
