// Package service coordinates the graph index, link resolution and builds
// for the HTTP and MCP surfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/index"
	"github.com/starford/omni/internal/omnipath"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/resolver"
	"github.com/starford/omni/internal/storage"
)

// Builder is the part of build.Builder the service drives.
type Builder interface {
	Full(ctx context.Context) error
	BuildPath(ctx context.Context, path string, compile bool) (graph.File, error)
}

// NodeDetail is the full representation of a node.
type NodeDetail struct {
	index.NodeRow
	Links     []index.LinkRow `json:"links"`
	Backlinks []index.NodeRow `json:"backlinks"`
}

// Resolved is the answer to a link lookup.
type Resolved struct {
	Link    string         `json:"link"`
	Ghost   bool           `json:"ghost"`
	Display string         `json:"display"`
	Node    *index.NodeRow `json:"node,omitempty"`
}

// BuildResult reports what a build touched.
type BuildResult struct {
	// Path is empty for a full build.
	Path     string `json:"path,omitempty"`
	ID       string `json:"id,omitempty"`
	Reloaded bool   `json:"reloaded"`
}

// Service answers graph queries from the index and link questions from the
// graph files on disk.
type Service struct {
	cfg     *project.Config
	store   storage.Provider
	db      index.GraphIndex
	builder Builder
	logger  *slog.Logger
}

// New creates a new service. builder may be nil, in which case builds are
// refused.
func New(cfg *project.Config, store storage.Provider, db index.GraphIndex, builder Builder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, store: store, db: db, builder: builder, logger: logger}
}

// Node returns a node with its outgoing links and backlinks.
func (s *Service) Node(_ context.Context, id string) (*NodeDetail, error) {
	n, err := s.db.Node(id)
	if err != nil {
		return nil, err
	}
	links, err := s.db.Outgoing(id)
	if err != nil {
		return nil, err
	}
	backlinks, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	return &NodeDetail{NodeRow: *n, Links: links, Backlinks: backlinks}, nil
}

// Nodes lists nodes, optionally restricted to a tag.
func (s *Service) Nodes(_ context.Context, tag string) ([]index.NodeRow, error) {
	return s.db.Nodes(tag)
}

// Backlinks returns the nodes linking to id.
func (s *Service) Backlinks(_ context.Context, id string) ([]index.NodeRow, error) {
	if _, err := s.db.Node(id); err != nil {
		return nil, err
	}
	return s.db.Backlinks(id)
}

// Ghosts lists unresolved links.
func (s *Service) Ghosts(_ context.Context) ([]index.Ghost, error) {
	return s.db.Ghosts()
}

// Graph returns all nodes and resolved links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// Resolve looks link up in the current build/nodes.toml. An unknown name is
// a ghost, not an error.
func (s *Service) Resolve(_ context.Context, link, alias string) (*Resolved, error) {
	session, err := resolver.Load(s.store, s.cfg)
	if err != nil {
		return nil, err
	}
	res, err := session.ResolveText(link, alias)
	if err != nil {
		return nil, err
	}
	out := &Resolved{Link: link, Ghost: res.Ghost, Display: res.Display}
	if res.Node != nil {
		out.Node = nodeRow(res.Node)
	}
	return out, nil
}

// Suggestions returns the shortest unambiguous link for every node.
func (s *Service) Suggestions(_ context.Context) ([]graph.Suggestion, error) {
	nodes, err := graph.LoadNodes(s.store)
	if err != nil {
		return nil, err
	}
	return graph.Suggestions(nodes, s.cfg)
}

// Build rebuilds the tracked file at path with rendering, or the whole
// project when path is empty, then reloads the index.
func (s *Service) Build(ctx context.Context, path string) (*BuildResult, error) {
	if s.builder == nil {
		return nil, errors.New("service: builds are disabled")
	}
	out := &BuildResult{Path: path}
	if path == "" {
		if err := s.builder.Full(ctx); err != nil {
			return nil, err
		}
	} else {
		file, err := s.builder.BuildPath(ctx, path, true)
		if err != nil {
			return nil, err
		}
		out.ID = file.ID.String()
	}

	reloaded, err := index.Sync(s.db, s.store, s.logger)
	if err != nil {
		return nil, fmt.Errorf("service: reload index: %w", err)
	}
	out.Reloaded = reloaded
	return out, nil
}

func nodeRow(n *graph.Node) *index.NodeRow {
	return &index.NodeRow{
		ID:      n.ID.String(),
		Path:    n.Path,
		Kind:    string(n.Kind),
		Title:   n.Title,
		Names:   n.Names,
		Tags:    n.Tags,
		Private: n.Private,
	}
}

// IsNotFound reports whether err means the thing asked for does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) || errors.Is(err, graph.ErrUntrackedNode)
}

// IsBadRequest reports whether err comes from bad user input.
func IsBadRequest(err error) bool {
	for _, target := range []error{
		graph.ErrDuplicateName,
		graph.ErrEmptyPath,
		graph.ErrInvalidLink,
		omnipath.ErrInvalidComponent,
		apperr.ErrOutsideRoot,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
