package project

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/omni/internal/apperr"
)

// Files and directories relative to the project root. All are slash separated.
const (
	ConfigFile   = "omni.toml"
	UserDBFile   = "nodes.toml"
	BuildDir     = "build"
	NodesFile    = "build/nodes.toml"
	LinksFile    = "build/links.toml"
	IndexFile    = "build/index.db"
	TemplatesDir = "resources/templates"
)

// FindRoot returns the closest ancestor of dir (dir included) that contains
// omni.toml.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("project: resolve %s: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for cur := abs; ; {
		if _, err := os.Stat(filepath.Join(cur, ConfigFile)); err == nil {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return "", apperr.WithHint(apperr.ErrNoProjectRoot, "run this command inside an omni project, or create one with `omni init`")
}

// BuildPath maps a source path (relative to the root) to its output under
// build/, swapping the extension: src/a/b.typ -> build/src/a/b.html.
func BuildPath(src string, ext string) string {
	src = filepath.ToSlash(src)
	trimmed := strings.TrimSuffix(src, path.Ext(src))
	return path.Join(BuildDir, trimmed+"."+ext)
}
