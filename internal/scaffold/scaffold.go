// Package scaffold creates projects and new content files from templates.
package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/omnipath"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/storage"
	"github.com/starford/omni/internal/track"
)

//go:embed skeleton/*
var skeleton embed.FS

type skeletonFile struct {
	src, dst string
	render   bool
}

var layout = []skeletonFile{
	{src: "omni.toml.tmpl", dst: project.ConfigFile, render: true},
	{src: "nodes.toml", dst: project.UserDBFile},
	{src: "gitignore", dst: ".gitignore"},
	{src: "note.typ", dst: project.TemplatesDir + "/note.typ"},
	{src: "note.md", dst: project.TemplatesDir + "/note.md"},
	{src: "omni.typ", dst: "resources/typst/lib/omni.typ"},
}

var emptyDirs = []string{"src", "assets"}

// Init creates a new project called name in dir. dir must not exist yet.
func Init(dir, name string) error {
	if name == "" {
		return errors.New("scaffold: project name is required")
	}
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("scaffold: %s: %w", dir, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("scaffold: mkdir: %w", err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return fmt.Errorf("scaffold: %w", err)
	}

	data := struct{ Name string }{Name: name}
	for _, f := range layout {
		raw, err := skeleton.ReadFile("skeleton/" + f.src)
		if err != nil {
			return fmt.Errorf("scaffold: %w", err)
		}
		if f.render {
			if raw, err = execute(f.src, raw, data); err != nil {
				return err
			}
		}
		if err := store.Write(f.dst, raw); err != nil {
			return fmt.Errorf("scaffold: %w", err)
		}
	}

	if err := graph.SaveNodes(store, &graph.NodeDB{}); err != nil {
		return fmt.Errorf("scaffold: %w", err)
	}
	if err := graph.SaveLinks(store, &graph.LinkDB{}); err != nil {
		return fmt.Errorf("scaffold: %w", err)
	}

	for _, d := range emptyDirs {
		abs, err := store.Abs(d)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return fmt.Errorf("scaffold: mkdir: %w", err)
		}
	}
	return nil
}

// NewOptions describes a file to create with New.
type NewOptions struct {
	// Template is matched against file names in resources/templates by
	// prefix. The template's extension is given to the new file.
	Template string
	// Path is a logical slash path ("linalg/vector"), aliases allowed. With
	// Raw it is a file-system path instead.
	Path  string
	Raw   bool
	Title string
}

// TemplateData is what templates can reference.
type TemplateData struct {
	Title string
	Name  string
	ID    graph.ID
}

// New creates a file from a template and tracks it.
func New(store *storage.FS, cfg *project.Config, opts NewOptions) (graph.File, error) {
	base, err := target(store, cfg, opts)
	if err != nil {
		return graph.File{}, err
	}

	tmplName, tmpl, err := findTemplate(store, opts.Template)
	if err != nil {
		return graph.File{}, err
	}
	rel := base
	if ext := path.Ext(tmplName); ext != "" && path.Ext(rel) != ext {
		rel += ext
	}

	if _, err := store.Stat(rel); err == nil {
		return graph.File{}, fmt.Errorf("scaffold: %s: %w", rel, apperr.ErrAlreadyExists)
	}

	users, err := graph.LoadUserDB(store)
	if err != nil {
		return graph.File{}, err
	}
	name := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	data := TemplateData{
		Title: opts.Title,
		Name:  name,
		ID:    graph.NewID(users.Contains),
	}
	if data.Title == "" {
		data.Title = name
	}

	content, err := execute(tmplName, tmpl, data)
	if err != nil {
		return graph.File{}, err
	}
	if err := store.Write(rel, content); err != nil {
		return graph.File{}, fmt.Errorf("scaffold: %w", err)
	}
	return track.Add(store, rel, data.ID)
}

// target returns the root-relative path of the new file, extension aside.
func target(store *storage.FS, cfg *project.Config, opts NewOptions) (string, error) {
	if opts.Raw {
		rel, err := store.Rel(opts.Path)
		if err != nil {
			return "", fmt.Errorf("scaffold: %w", err)
		}
		if !track.InContentDir(cfg, rel) {
			return "", fmt.Errorf("scaffold: %s: %w", rel, apperr.ErrOutsideRoot)
		}
		return rel, nil
	}

	logical, err := omnipath.FromPath(opts.Path)
	if err != nil {
		return "", fmt.Errorf("scaffold: %w", err)
	}
	canon, err := logical.Unalias(cfg)
	if err != nil {
		return "", fmt.Errorf("scaffold: %w", err)
	}
	return canon.Path(), nil
}

// findTemplate returns the first template, in name order, whose file name
// starts with name.
func findTemplate(store storage.Provider, name string) (string, []byte, error) {
	if name == "" {
		name = "note"
	}
	files, err := store.List(project.TemplatesDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", nil, fmt.Errorf("scaffold: %w", err)
	}
	for _, f := range files {
		if strings.HasPrefix(path.Base(f), name) {
			data, err := store.Read(f)
			if err != nil {
				return "", nil, fmt.Errorf("scaffold: %w", err)
			}
			return path.Base(f), data, nil
		}
	}
	return "", nil, apperr.WithHint(
		fmt.Errorf("scaffold: %q: %w", name, apperr.ErrTemplateMissing),
		"add a template to "+project.TemplatesDir,
	)
}

func execute(name string, tmpl []byte, data any) ([]byte, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(string(tmpl))
	if err != nil {
		return nil, fmt.Errorf("scaffold: parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("scaffold: render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
