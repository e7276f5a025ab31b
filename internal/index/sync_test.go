package index

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	logger := discardLogger()

	// no build files yet: an empty graph is still a load
	changed, err := Sync(db, store, logger)
	require.NoError(t, err)
	assert.True(t, changed)

	nodes, links := sampleGraph()
	require.NoError(t, graph.SaveNodes(store, nodes))
	require.NoError(t, graph.SaveLinks(store, links))

	changed, err = Sync(db, store, logger)
	require.NoError(t, err)
	assert.True(t, changed)
	all, _ := db.Nodes("")
	assert.Len(t, all, 3)

	changed, err = Sync(db, store, logger)
	require.NoError(t, err)
	assert.False(t, changed, "unchanged files reloaded")
}

func TestSync_MalformedKeepsProjection(t *testing.T) {
	db := seeded(t)
	store, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Write(project.NodesFile, []byte("[[node]]\nid = 1\n")))

	_, err = Sync(db, store, discardLogger())
	require.ErrorIs(t, err, apperr.ErrMalformedState)
	cs, _ := db.Checksum()
	assert.Equal(t, "sum1", cs, "projection untouched")
}
