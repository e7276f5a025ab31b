package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/storage"
)

func initProject(t *testing.T) (string, *storage.FS, *project.Config) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "kb")
	require.NoError(t, Init(root, "kb"))

	store, err := storage.NewFS(root)
	require.NoError(t, err)
	cfg, err := project.Load(root)
	require.NoError(t, err)
	return root, store, cfg
}

func TestInit(t *testing.T) {
	root, store, cfg := initProject(t)

	assert.Equal(t, "kb", cfg.Project.Name)
	assert.Equal(t, "src", cfg.Project.PrefixDir)

	for _, p := range []string{
		project.ConfigFile,
		project.UserDBFile,
		".gitignore",
		project.NodesFile,
		project.LinksFile,
		"resources/templates/note.typ",
		"resources/templates/note.md",
		"resources/typst/lib/omni.typ",
	} {
		_, err := store.Stat(p)
		assert.NoError(t, err, p)
	}
	for _, d := range []string{"src", "assets"} {
		info, err := os.Stat(filepath.Join(root, d))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	users, err := graph.LoadUserDB(store)
	require.NoError(t, err)
	assert.Empty(t, users.Files)
	nodes, err := graph.LoadNodes(store)
	require.NoError(t, err)
	assert.Empty(t, nodes.Nodes)

	found, err := project.FindRoot(filepath.Join(root, "src"))
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, want, found)
}

func TestInit_ExistingDir(t *testing.T) {
	dir := t.TempDir()
	err := Init(dir, "kb")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestNew_FromLogicalPath(t *testing.T) {
	_, store, cfg := initProject(t)
	cfg.DirAliases = map[string]string{"linalg": "cs/linear-algebra"}

	file, err := New(store, cfg, NewOptions{Template: "note.md", Path: "linalg/vector", Title: "Vectors"})
	require.NoError(t, err)
	assert.Equal(t, "src/cs/linear-algebra/vector.md", file.Path)

	data, err := store.Read(file.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Vectors")
	assert.Contains(t, string(data), "names: [vector]")

	users, err := graph.LoadUserDB(store)
	require.NoError(t, err)
	assert.Equal(t, []graph.File{file}, users.Files)

	_, err = New(store, cfg, NewOptions{Template: "note.md", Path: "linalg/vector"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestNew_TemplatePrefixPicksFirst(t *testing.T) {
	_, store, cfg := initProject(t)

	file, err := New(store, cfg, NewOptions{Path: "matrix"})
	require.NoError(t, err)
	assert.Equal(t, "src/matrix.md", file.Path, "note.md sorts before note.typ")

	data, err := store.Read(file.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# matrix")
}

func TestNew_Raw(t *testing.T) {
	root, store, cfg := initProject(t)

	file, err := New(store, cfg, NewOptions{
		Template: "note.typ",
		Path:     filepath.Join(root, "src", "raw", "thing"),
		Raw:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "src/raw/thing.typ", file.Path)

	data, err := store.Read(file.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `names: ("thing",)`)

	_, err = New(store, cfg, NewOptions{Template: "note", Path: filepath.Join(root, "assets", "x"), Raw: true})
	assert.ErrorIs(t, err, apperr.ErrOutsideRoot)
}

func TestNew_MissingTemplate(t *testing.T) {
	_, store, cfg := initProject(t)

	_, err := New(store, cfg, NewOptions{Template: "blog", Path: "post"})
	assert.ErrorIs(t, err, apperr.ErrTemplateMissing)
	assert.NotEmpty(t, apperr.Hint(err))
}
