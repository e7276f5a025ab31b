// Package testutil provides shared test helpers for setting up projects and
// index databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/index"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "omni-test-*.db")
	require.NoError(t, err)
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

const testConfig = `[project]
name = "test"
prefix_dir = "src"

[dir_aliases]
linalg = "cs/linear-algebra"
`

// TestProject creates a temporary project with an omni.toml, a src dir and
// the "linalg" alias, and returns its root, store and parsed config.
func TestProject(t *testing.T) (string, *storage.FS, *project.Config) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, project.ConfigFile), []byte(testConfig), 0o644))
	store, err := storage.NewFS(root)
	require.NoError(t, err)
	cfg, err := project.Load(root)
	require.NoError(t, err)
	return root, store, cfg
}

// LinalgGraph is a small built graph: vector links to matrix, matrix to a
// ghost, and two nodes share the name "vector".
func LinalgGraph() (*graph.NodeDB, *graph.LinkDB) {
	nodes := &graph.NodeDB{Nodes: []graph.Node{
		graph.NewNode("v1", "src/cs/linear-algebra/vector.typ", "Vector", []string{"vector"}, []string{"math"}, false),
		graph.NewNode("m1", "src/cs/linear-algebra/matrix.typ", "Matrix", []string{"matrix"}, []string{"math"}, false),
		graph.NewNode("r1", "src/cs/rust/vector.typ", "Vec", []string{"vector"}, []string{"rust"}, false),
	}}
	links := &graph.LinkDB{Links: []graph.Link{
		{From: "v1", To: graph.IDTarget{ID: "m1"}},
		{From: "m1", To: graph.GhostTarget{Part: graph.NamePart{Name: "tensor"}}},
		{From: "r1", To: graph.IDTarget{ID: "v1"}, Alias: "math vectors"},
	}}
	return nodes, links
}

// WriteGraph persists nodes and links as build outputs.
func WriteGraph(t *testing.T, store storage.Provider, nodes *graph.NodeDB, links *graph.LinkDB) {
	t.Helper()
	require.NoError(t, graph.SaveNodes(store, nodes))
	require.NoError(t, graph.SaveLinks(store, links))
}
