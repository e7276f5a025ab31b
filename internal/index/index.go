package index

import "github.com/starford/omni/internal/graph"

// GraphIndex is the query surface over the projected graph.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type GraphIndex interface {
	Replace(nodes *graph.NodeDB, links *graph.LinkDB, sum string) error
	Checksum() (string, error)
	Node(id string) (*NodeRow, error)
	Nodes(tag string) ([]NodeRow, error)
	Outgoing(id string) ([]LinkRow, error)
	Backlinks(id string) ([]NodeRow, error)
	Ghosts() ([]Ghost, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Close() error
}

// Verify *DB satisfies GraphIndex at compile time.
var _ GraphIndex = (*DB)(nil)
