// Package resolver answers link lookups against a snapshot of the built
// graph. It is what content formats consult while a file is being
// extracted or rendered.
package resolver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
)

var ErrNotInitialized = errors.New("resolver: session used before Init")

// Resolution is the outcome of resolving one link.
type Resolution struct {
	// Node is nil for ghosts.
	Node  *graph.Node
	Ghost bool
	// Display is the alias when given, else the node title (or the link
	// text for ghosts and untitled nodes).
	Display string
}

// Session holds one graph snapshot. The zero value is usable after Init.
type Session struct {
	mu    sync.RWMutex
	nodes *graph.NodeDB
	cfg   *project.Config
}

// NewSession returns an uninitialized session.
func NewSession() *Session {
	return &Session{}
}

// Init loads the snapshot from raw build/nodes.toml and omni.toml content.
func (s *Session) Init(nodesTOML, configTOML []byte) error {
	nodes, err := graph.DecodeNodes(nodesTOML)
	if err != nil {
		return fmt.Errorf("resolver: init: %w", err)
	}
	cfg, err := project.Parse(configTOML)
	if err != nil {
		return fmt.Errorf("resolver: init: %w", err)
	}
	s.InitSnapshot(nodes, cfg)
	return nil
}

// InitSnapshot installs already decoded state. The session keeps its own
// copy of the node list.
func (s *Session) InitSnapshot(nodes *graph.NodeDB, cfg *project.Config) {
	clone := &graph.NodeDB{Nodes: append([]graph.Node(nil), nodes.Nodes...)}
	s.mu.Lock()
	s.nodes, s.cfg = clone, cfg
	s.mu.Unlock()
}

// Resolve looks up part. A name that matches nothing is reported as a ghost,
// not an error; ambiguity and malformed paths are errors.
func (s *Session) Resolve(part graph.FilePart, alias string) (Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.nodes == nil {
		return Resolution{}, ErrNotInitialized
	}

	n, err := s.nodes.FindFromFilePart(part, s.cfg)
	switch {
	case errors.Is(err, graph.ErrNameNotFound):
		return Resolution{Ghost: true, Display: or(alias, part.String())}, nil
	case err != nil:
		return Resolution{}, err
	}

	node := *n
	return Resolution{Node: &node, Display: or(alias, node.Title, part.String())}, nil
}

// ResolveText parses the dotted link form and resolves it.
func (s *Session) ResolveText(text, alias string) (Resolution, error) {
	part, err := graph.ParseFilePart(text)
	if err != nil {
		return Resolution{}, err
	}
	return s.Resolve(part, alias)
}

func or(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Load builds a session from the build/nodes.toml currently on disk.
func Load(r graph.Reader, cfg *project.Config) (*Session, error) {
	nodes, err := graph.LoadNodes(r)
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	s := NewSession()
	s.InitSnapshot(nodes, cfg)
	return s, nil
}
