// Package format defines how the builder talks to content formats: pulling
// frontmatter and links out of a source file and rendering it.
package format

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/storage"
)

var (
	ErrNoFormat           = errors.New("format: file has no extension")
	ErrInvalidFormat      = errors.New("format: unsupported file extension")
	ErrMissingFrontmatter = errors.New("format: file has no frontmatter")
	ErrUnsupportedOutput  = errors.New("format: output not supported by this format")
)

// Request identifies the file being processed.
type Request struct {
	// Root is the absolute project root.
	Root string
	// Path is the source path relative to Root, slash separated.
	Path   string
	Config *project.Config
	// Store reads project files, including the graph snapshot formats
	// resolve links against.
	Store storage.Provider
}

// Abs returns the absolute path of the source file.
func (r Request) Abs() string {
	return filepath.Join(r.Root, filepath.FromSlash(r.Path))
}

// OutPath returns the absolute output path for out.
func (r Request) OutPath(out project.Output) string {
	return filepath.Join(r.Root, filepath.FromSlash(project.BuildPath(r.Path, string(out))))
}

// Frontmatter is the metadata a source file declares about itself.
type Frontmatter struct {
	Title   string   `json:"title"`
	Names   []string `json:"names"`
	Tags    []string `json:"tags"`
	Private bool     `json:"private"`
}

// RawLink is a link as reported by a format, before it becomes a graph link.
// When Ghost is false To is a node id, otherwise the dotted link text.
type RawLink struct {
	To      string   `json:"to"`
	Ghost   bool     `json:"ghost"`
	Alias   string   `json:"alias"`
	Label   string   `json:"label"`
	Heading []string `json:"heading"`
}

// Format extracts metadata from and renders one kind of source file.
type Format interface {
	Name() string
	Frontmatter(ctx context.Context, req Request) (Frontmatter, error)
	Links(ctx context.Context, req Request) ([]RawLink, error)
	Render(ctx context.Context, req Request, out project.Output) error
}

// Registry maps file extensions (without the dot) to formats.
type Registry struct {
	formats map[string]Format
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{formats: make(map[string]Format)}
}

// Register binds f to each extension.
func (r *Registry) Register(f Format, exts ...string) {
	for _, ext := range exts {
		r.formats[strings.TrimPrefix(ext, ".")] = f
	}
}

// Extensions lists registered extensions in order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.formats))
	for ext := range r.formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the format for the file at p.
func (r *Registry) Lookup(p string) (Format, error) {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoFormat, p)
	}
	f, ok := r.formats[ext]
	if !ok {
		return nil, apperr.WithHint(
			fmt.Errorf("%w: %q (%s)", ErrInvalidFormat, ext, p),
			"supported extensions: "+strings.Join(r.Extensions(), ", "),
		)
	}
	return f, nil
}

// MissingFrontmatter wraps ErrMissingFrontmatter for p with the usual hint.
func MissingFrontmatter(p string) error {
	return apperr.WithHint(
		fmt.Errorf("%w: %s", ErrMissingFrontmatter, p),
		"the file must declare its frontmatter; check that its template and the omni library are set up",
	)
}
