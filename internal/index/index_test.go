package index

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/graph"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "omni-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// sampleGraph: a links to b and to a ghost, c links to b twice and to the
// same ghost.
func sampleGraph() (*graph.NodeDB, *graph.LinkDB) {
	nodes := &graph.NodeDB{Nodes: []graph.Node{
		graph.NewNode("a", "src/a.typ", "A", []string{"a"}, []string{"math"}, false),
		graph.NewNode("b", "src/b.typ", "B", []string{"b", "bee"}, nil, false),
		graph.NewNode("c", "src/c.typ", "C", []string{"c"}, []string{"math", "draft"}, true),
	}}
	ghost := graph.GhostTarget{Part: graph.PathPart{Path: []string{"linalg"}, Name: "vector"}}
	links := &graph.LinkDB{Links: []graph.Link{
		{From: "a", To: graph.IDTarget{ID: "b"}, Location: graph.HeadingLocation{Path: []string{"Intro"}}},
		{From: "a", To: ghost},
		{From: "c", To: graph.IDTarget{ID: "b"}, Alias: "bee"},
		{From: "c", To: graph.IDTarget{ID: "b"}, Location: graph.LabelLocation{Label: "def"}},
		{From: "c", To: ghost},
	}}
	return nodes, links
}

func seeded(t *testing.T) *DB {
	t.Helper()
	db := testDB(t)
	nodes, links := sampleGraph()
	require.NoError(t, db.Replace(nodes, links, "sum1"))
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"nodes", "links", "meta"} {
		err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count)
		assert.NoError(t, err, "%s table missing", table)
	}
}

func TestReplaceAndChecksum(t *testing.T) {
	db := testDB(t)
	cs, err := db.Checksum()
	require.NoError(t, err)
	assert.Empty(t, cs)

	nodes, links := sampleGraph()
	require.NoError(t, db.Replace(nodes, links, "sum1"))
	cs, _ = db.Checksum()
	assert.Equal(t, "sum1", cs)

	// a second replace drops everything from the first
	require.NoError(t, db.Replace(&graph.NodeDB{Nodes: nodes.Nodes[:1]}, &graph.LinkDB{}, "sum2"))
	all, _ := db.Nodes("")
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)
	cs, _ = db.Checksum()
	assert.Equal(t, "sum2", cs)
}

func TestNode(t *testing.T) {
	db := seeded(t)

	n, err := db.Node("c")
	require.NoError(t, err)
	want := NodeRow{ID: "c", Path: "src/c.typ", Kind: "file", Title: "C", Names: []string{"c"}, Tags: []string{"math", "draft"}, Private: true}
	assert.Equal(t, want, *n)

	_, err = db.Node("missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNodes_TagFilter(t *testing.T) {
	db := seeded(t)

	all, err := db.Nodes("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "src/a.typ", all[0].Path)
	assert.Equal(t, "src/c.typ", all[2].Path)

	math, _ := db.Nodes("math")
	assert.Len(t, math, 2)
	none, _ := db.Nodes("nope")
	assert.Empty(t, none)
}

func TestOutgoing(t *testing.T) {
	db := seeded(t)

	out, err := db.Outgoing("a")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Target)
	assert.Equal(t, []string{"Intro"}, out[0].Heading)
	assert.Equal(t, "linalg.vector", out[1].Ghost)
	assert.Empty(t, out[1].Target)
}

func TestBacklinks(t *testing.T) {
	db := seeded(t)

	bl, err := db.Backlinks("b")
	require.NoError(t, err)
	require.Len(t, bl, 2, "a and c once each")
	assert.Equal(t, "a", bl[0].ID)
	assert.Equal(t, "c", bl[1].ID)

	bl, _ = db.Backlinks("a")
	assert.Empty(t, bl)
}

func TestGhosts(t *testing.T) {
	db := seeded(t)

	ghosts, err := db.Ghosts()
	require.NoError(t, err)
	assert.Equal(t, []Ghost{{Link: "linalg.vector", Sources: []string{"a", "c"}}}, ghosts)
}

func TestGraph(t *testing.T) {
	db := seeded(t)

	nodes, links, err := db.Graph()
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
	assert.Equal(t, []GraphLink{{Source: "a", Target: "b"}, {Source: "c", Target: "b"}}, links)
}
