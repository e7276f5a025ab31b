package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/index"
	"github.com/starford/omni/internal/storage"
	"github.com/starford/omni/internal/testutil"
)

type fakeBuilder struct {
	store storage.Provider
	full  int
	paths []string
}

func (f *fakeBuilder) Full(context.Context) error {
	f.full++
	return nil
}

func (f *fakeBuilder) BuildPath(_ context.Context, path string, _ bool) (graph.File, error) {
	nodes, err := graph.LoadNodes(f.store)
	if err != nil {
		return graph.File{}, err
	}
	n, err := nodes.FindByCanonicalPath(path)
	if err != nil {
		return graph.File{}, err
	}
	n.Title += "!"
	if err := graph.SaveNodes(f.store, nodes); err != nil {
		return graph.File{}, err
	}
	f.paths = append(f.paths, path)
	return graph.File{ID: n.ID, Path: n.Path}, nil
}

func newService(t *testing.T) (*Service, *fakeBuilder) {
	t.Helper()
	_, store, cfg := testutil.TestProject(t)
	nodes, links := testutil.LinalgGraph()
	testutil.WriteGraph(t, store, nodes, links)

	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := index.Sync(db, store, logger)
	require.NoError(t, err)

	b := &fakeBuilder{store: store}
	return New(cfg, store, db, b, logger), b
}

func TestNode(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, err := svc.Node(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Vector", n.Title)
	require.Len(t, n.Links, 1)
	assert.Equal(t, "m1", n.Links[0].Target)
	require.Len(t, n.Backlinks, 1)
	assert.Equal(t, "r1", n.Backlinks[0].ID)

	_, err = svc.Node(ctx, "nope")
	assert.True(t, IsNotFound(err))

	_, err = svc.Backlinks(ctx, "nope")
	assert.True(t, IsNotFound(err))
}

func TestResolve(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Resolve(ctx, "linalg.vector", "")
	require.NoError(t, err)
	assert.False(t, res.Ghost)
	require.NotNil(t, res.Node)
	assert.Equal(t, "v1", res.Node.ID)
	assert.Equal(t, "Vector", res.Display)

	res, err = svc.Resolve(ctx, "tensor", "")
	require.NoError(t, err)
	assert.True(t, res.Ghost)
	assert.Nil(t, res.Node)

	_, err = svc.Resolve(ctx, "vector", "")
	assert.ErrorIs(t, err, graph.ErrDuplicateName)
	assert.True(t, IsBadRequest(err))

	_, err = svc.Resolve(ctx, "a..b", "")
	assert.True(t, IsBadRequest(err))
}

func TestSuggestions(t *testing.T) {
	svc, _ := newService(t)

	sugs, err := svc.Suggestions(context.Background())
	require.NoError(t, err)
	byID := map[graph.ID]string{}
	for _, s := range sugs {
		byID[s.NodeID] = s.Link.String()
	}
	assert.Equal(t, "matrix", byID["m1"])
	assert.Equal(t, "linalg.vector", byID["v1"])
	assert.Equal(t, "cs.rust.vector", byID["r1"])
}

func TestBuild_ReloadsIndex(t *testing.T) {
	svc, b := newService(t)
	ctx := context.Background()

	res, err := svc.Build(ctx, "src/cs/linear-algebra/matrix.typ")
	require.NoError(t, err)
	assert.Equal(t, "m1", res.ID)
	assert.True(t, res.Reloaded)

	n, err := svc.Node(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Matrix!", n.Title)

	res, err = svc.Build(ctx, "")
	require.NoError(t, err)
	assert.False(t, res.Reloaded)
	assert.Equal(t, 1, b.full)

	_, err = svc.Build(ctx, "src/untracked.typ")
	assert.True(t, IsNotFound(err))
}
