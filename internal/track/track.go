// Package track registers source files in the user's nodes.toml.
package track

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/storage"
)

// Track adds the file at p (absolute, or relative to the working directory)
// to nodes.toml under a fresh id.
func Track(store *storage.FS, cfg *project.Config, p string) (graph.File, error) {
	rel, err := Resolve(store, cfg, p)
	if err != nil {
		return graph.File{}, err
	}

	return Add(store, rel, "")
}

// Add appends rel to nodes.toml without checking the file itself. An empty
// id draws a fresh one.
func Add(store *storage.FS, rel string, id graph.ID) (graph.File, error) {
	users, err := graph.LoadUserDB(store)
	if err != nil {
		return graph.File{}, err
	}
	if _, err := users.FindByPath(rel); err == nil {
		return graph.File{}, fmt.Errorf("track: %s: %w", rel, apperr.ErrAlreadyTracked)
	}
	if id == "" {
		id = graph.NewID(users.Contains)
	} else if users.Contains(id) {
		return graph.File{}, fmt.Errorf("track: id %s: %w", id, apperr.ErrAlreadyExists)
	}

	file := graph.File{ID: id, Path: rel}
	users.Files = append(users.Files, file)
	if err := graph.SaveUserDB(store, users); err != nil {
		return graph.File{}, fmt.Errorf("track: %w", err)
	}
	return file, nil
}

// Resolve checks that p names an existing regular file inside the content
// directory and returns its root-relative slash path.
func Resolve(store *storage.FS, cfg *project.Config, p string) (string, error) {
	rel, err := store.Rel(p)
	if err != nil {
		return "", fmt.Errorf("track: %w", err)
	}
	if !InContentDir(cfg, rel) {
		return "", apperr.WithHint(
			fmt.Errorf("track: %s: %w", rel, apperr.ErrOutsideRoot),
			"tracked files must live under "+cfg.Project.PrefixDir+"/",
		)
	}

	info, err := store.Stat(rel)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", apperr.WithHint(
			fmt.Errorf("track: %s: %w", rel, apperr.ErrFileNotFound),
			"create it first with `omni new`",
		)
	case err != nil:
		return "", fmt.Errorf("track: %w", err)
	case info.IsDir():
		return "", fmt.Errorf("track: %s: %w", rel, apperr.ErrIsDirectory)
	}
	return rel, nil
}

// InContentDir reports whether the root-relative path rel lies under the
// configured prefix dir.
func InContentDir(cfg *project.Config, rel string) bool {
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	if cfg.Project.PrefixDir == "" {
		return true
	}
	prefix := path.Clean(cfg.Project.PrefixDir)
	return strings.HasPrefix(rel, prefix+"/")
}
