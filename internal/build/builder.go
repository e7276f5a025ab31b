// Package build turns tracked source files into the persisted graph.
//
// A shallow build refreshes one node and its outgoing links in memory. A
// partial build also promotes ghost links that now resolve to the node and
// rebuilds the files that depend on it, persisting in an order that keeps the
// on-disk graph readable by a concurrent reader at every step. A full build
// runs a partial build for every tracked file.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/omni/internal/format"
	"github.com/starford/omni/internal/format/markdown"
	"github.com/starford/omni/internal/format/typst"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/storage"
)

// Builder runs builds for one project.
type Builder struct {
	root    string
	cfg     *project.Config
	store   storage.Provider
	formats *format.Registry
	logger  *slog.Logger

	// mu serializes load, mutate, persist cycles.
	mu sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder)

// WithFormats replaces the default format registry.
func WithFormats(r *format.Registry) Option {
	return func(b *Builder) {
		b.formats = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithStore replaces the file-system store rooted at the project root.
func WithStore(s storage.Provider) Option {
	return func(b *Builder) {
		b.store = s
	}
}

// New returns a builder for the project at root.
func New(root string, cfg *project.Config, opts ...Option) (*Builder, error) {
	b := &Builder{root: root, cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.store == nil {
		fs, err := storage.NewFS(root)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		b.store = fs
	}
	if b.formats == nil {
		b.formats = DefaultFormats(cfg, b.logger)
	}
	return b, nil
}

// DefaultFormats registers typst for .typ and markdown for .md.
func DefaultFormats(cfg *project.Config, logger *slog.Logger) *format.Registry {
	r := format.NewRegistry()
	r.Register(typst.New(typst.NewRunner(cfg.Build.TypstBin), logger), "typ")
	r.Register(markdown.New(logger), "md")
	return r
}

// Formats returns the registry in use.
func (b *Builder) Formats() *format.Registry { return b.formats }

func (b *Builder) request(path string) format.Request {
	return format.Request{Root: b.root, Path: path, Config: b.cfg, Store: b.store}
}

// render produces every configured output for file. Outputs a format does not
// support are skipped with a warning.
func (b *Builder) render(ctx context.Context, f format.Format, file graph.File) error {
	req := b.request(file.Path)
	for _, out := range b.cfg.Build.OutputFormat.Outputs() {
		err := f.Render(ctx, req, out)
		if errors.Is(err, format.ErrUnsupportedOutput) {
			b.logger.Warn("build: output not supported, skipped",
				slog.String("path", file.Path),
				slog.String("format", f.Name()),
				slog.String("output", string(out)))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Compile renders file without touching the graph.
func (b *Builder) Compile(ctx context.Context, file graph.File) error {
	f, err := b.formats.Lookup(file.Path)
	if err != nil {
		return err
	}
	return b.render(ctx, f, file)
}
