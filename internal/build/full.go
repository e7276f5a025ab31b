package build

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/graph"
)

// Full rebuilds every tracked file: a serial pass of partial builds without
// rendering, then a parallel render pass bounded by build.workers. The first
// error aborts the build.
func (b *Builder) Full(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()

	users, err := graph.LoadUserDB(b.store)
	if err != nil {
		return err
	}
	nodes, err := graph.LoadNodes(b.store)
	if err != nil {
		return err
	}
	links, err := graph.LoadLinks(b.store)
	if err != nil {
		return err
	}

	for _, file := range users.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Partial(ctx, nodes, links, file, false); err != nil {
			return err
		}
	}

	if err := graph.SaveNodes(b.store, nodes); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := graph.SaveLinks(b.store, links); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Build.Workers)
	for _, file := range users.Files {
		g.Go(func() error {
			if err := b.Compile(gCtx, file); err != nil {
				return fmt.Errorf("build: compile %s: %w", file.Path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.logger.Info("build: full",
		slog.Int("files", len(users.Files)),
		slog.Duration("took", time.Since(start)))
	return nil
}

// BuildPath runs one load, partial build, persist cycle for the tracked
// file at path (relative to the root).
func (b *Builder) BuildPath(ctx context.Context, path string, compile bool) (graph.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	users, err := graph.LoadUserDB(b.store)
	if err != nil {
		return graph.File{}, err
	}
	file, err := users.FindByPath(path)
	if err != nil {
		return graph.File{}, apperr.WithHint(fmt.Errorf("build: %w", err), "track the file first with `omni track "+path+"`")
	}

	nodes, err := graph.LoadNodes(b.store)
	if err != nil {
		return graph.File{}, err
	}
	links, err := graph.LoadLinks(b.store)
	if err != nil {
		return graph.File{}, err
	}

	if err := b.Partial(ctx, nodes, links, file, compile); err != nil {
		return graph.File{}, err
	}
	return file, nil
}
