package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/storage"
)

// watcherTestEnv sets up a project dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"src", "build"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	store, err := storage.NewFS(root)
	require.NoError(t, err)
	return root, store, testDB(t)
}

type recorder struct {
	mu     sync.Mutex
	built  []string
	events []string
}

func (r *recorder) onSource(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built = append(r.built, path)
	return nil
}

func (r *recorder) cb(kind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+path)
}

func (r *recorder) has(list func(*recorder) []string, want string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range list(r) {
		if v == want {
			return true
		}
	}
	return false
}

func builtList(r *recorder) []string { return r.built }
func eventList(r *recorder) []string { return r.events }

func startWatch(t *testing.T, root string, store storage.Provider, db *DB, rec *recorder) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go Watch(ctx, db, store, root, logger, rec.onSource, rec.cb)
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_SourceEditTriggersBuild(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	rec := &recorder{}
	startWatch(t, root, store, db, rec)

	_ = os.WriteFile(filepath.Join(root, "src", "note.typ"), []byte("= Note"), 0o644)

	assert.Eventually(t, func() bool {
		return rec.has(builtList, "src/note.typ")
	}, 5*time.Second, 50*time.Millisecond, "source edit did not trigger a build")
	assert.Eventually(t, func() bool {
		return rec.has(eventList, EventNodeBuilt+":src/note.typ")
	}, 2*time.Second, 50*time.Millisecond, "expected node.built callback")
}

func TestWatcher_IgnoresOutputsAndHiddenFiles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	rec := &recorder{}
	startWatch(t, root, store, db, rec)

	_ = os.MkdirAll(filepath.Join(root, "build", "src"), 0o755)
	_ = os.WriteFile(filepath.Join(root, "build", "src", "note.html"), []byte("<p>"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "src", ".note.typ.swp"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "omni.toml"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "src", "real.typ"), []byte("= Real"), 0o644)

	assert.Eventually(t, func() bool {
		return rec.has(builtList, "src/real.typ")
	}, 5*time.Second, 50*time.Millisecond, "source edit did not trigger a build")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"src/real.typ"}, rec.built)
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	rec := &recorder{}
	startWatch(t, root, store, db, rec)

	subDir := filepath.Join(root, "src", "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	assert.Eventually(t, func() bool {
		return rec.has(builtList, "src/subdir/deep.md")
	}, 5*time.Second, 50*time.Millisecond, "file in new subdir not built by watcher")
}

func TestWatcher_GraphFilesReload(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	rec := &recorder{}
	startWatch(t, root, store, db, rec)

	nodes, links := sampleGraph()
	require.NoError(t, graph.SaveNodes(store, nodes))
	require.NoError(t, graph.SaveLinks(store, links))

	assert.Eventually(t, func() bool {
		n, err := db.Node("b")
		return err == nil && n.Title == "B"
	}, 5*time.Second, 50*time.Millisecond, "graph files were not reloaded into the index")
	assert.Eventually(t, func() bool {
		return rec.has(eventList, EventGraphReloaded+":")
	}, 2*time.Second, 50*time.Millisecond, "expected graph.reloaded callback")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.built, "graph file writes must not trigger builds")
}
