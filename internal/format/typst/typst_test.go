package typst

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/format"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/storage"
)

// fakeTypst writes a shell script standing in for the typst binary.
func fakeTypst(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake typst needs a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "typst")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script), 0o755))
	return bin
}

const happyScript = `
case "$*" in
  *"<omni-frontmatter>"*)
    echo '{"title":"Vector","names":["vector","vec"],"tags":["math"],"private":true}' ;;
  *"<omni-link>"*)
    echo '[{"to":"20250101000000-aaaaaaaa","ghost":false,"alias":null},{"to":"linalg.matrix","ghost":true,"alias":"M","label":"def"},{"to":"scalar","ghost":true}]' ;;
  compile*)
    echo "<html>$2</html>" > "$3" ;;
esac
`

func testRequest(t *testing.T) format.Request {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	require.NoError(t, err)

	cfg := project.NewDefaultConfig()
	cfg.Project.Name = "test"
	cfg.Project.PrefixDir = "src"
	cfg.DirAliases = map[string]string{"linalg": "cs/linear-algebra"}

	require.NoError(t, store.Write("src/cs/linear-algebra/vector.typ", []byte("= Vector")))
	require.NoError(t, store.Write(project.NodesFile, []byte(`
[[node]]
id = "m1"
path = "src/cs/linear-algebra/matrix.typ"
kind = "file"
title = "Matrix"
names = ["matrix"]
tags = []
`)))
	return format.Request{Root: root, Path: "src/cs/linear-algebra/vector.typ", Config: cfg, Store: store}
}

func TestFrontmatter(t *testing.T) {
	f := New(NewRunner(fakeTypst(t, happyScript)), nil)
	fm, err := f.Frontmatter(context.Background(), testRequest(t))
	require.NoError(t, err)
	assert.Equal(t, format.Frontmatter{Title: "Vector", Names: []string{"vector", "vec"}, Tags: []string{"math"}, Private: true}, fm)
}

func TestFrontmatter_Missing(t *testing.T) {
	bin := fakeTypst(t, `echo "error: expected exactly one element, found 0" >&2; exit 1`)
	_, err := New(NewRunner(bin), nil).Frontmatter(context.Background(), testRequest(t))
	assert.ErrorIs(t, err, format.ErrMissingFrontmatter)
}

func TestLinks_ResolvesGhostsAgainstSnapshot(t *testing.T) {
	f := New(NewRunner(fakeTypst(t, happyScript)), nil)
	links, err := f.Links(context.Background(), testRequest(t))
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Equal(t, format.RawLink{To: "20250101000000-aaaaaaaa"}, links[0])
	assert.Equal(t, format.RawLink{To: "m1", Alias: "M", Label: "def"}, links[1])
	assert.Equal(t, format.RawLink{To: "scalar", Ghost: true}, links[2])
}

func TestLinks_AmbiguousNameFails(t *testing.T) {
	f := New(NewRunner(fakeTypst(t, `echo '[{"to":"matrix","ghost":true}]'`)), nil)
	req := testRequest(t)
	require.NoError(t, req.Store.Write(project.NodesFile, []byte(`
[[node]]
id = "m1"
path = "src/cs/linear-algebra/matrix.typ"
kind = "file"
title = "Matrix"
names = ["matrix"]
tags = []

[[node]]
id = "m2"
path = "src/cs/rust/matrix.typ"
kind = "file"
title = "Matrix crate"
names = ["matrix"]
tags = []
`)))

	_, err := f.Links(context.Background(), req)
	assert.ErrorIs(t, err, graph.ErrDuplicateName)
}

func TestRender(t *testing.T) {
	f := New(NewRunner(fakeTypst(t, happyScript)), nil)
	req := testRequest(t)
	require.NoError(t, f.Render(context.Background(), req, project.OutputHTML))

	data, err := os.ReadFile(filepath.Join(req.Root, "build", "src", "cs", "linear-algebra", "vector.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "vector.typ")
}

func TestRunner_Errors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	missing := NewRunner(filepath.Join(root, "no-such-typst"))
	var v any
	err := missing.Query(ctx, root, "a.typ", "<x>", QueryParams{Silent: true}, &v)
	assert.ErrorIs(t, err, ErrMissingTypst)

	failing := NewRunner(fakeTypst(t, `echo boom >&2; exit 3`))
	err = failing.Compile(ctx, root, "a.typ", "a.pdf", project.OutputPDF, true)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "boom\n", exitErr.Stderr)
}
