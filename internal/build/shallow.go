package build

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/omni/internal/format"
	"github.com/starford/omni/internal/graph"
)

// Shallow rebuilds file's node and outgoing links in memory. Nothing is
// persisted. When compile is set the file is also rendered.
func (b *Builder) Shallow(ctx context.Context, nodes *graph.NodeDB, links *graph.LinkDB, file graph.File, compile bool) error {
	f, err := b.formats.Lookup(file.Path)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	req := b.request(file.Path)

	var (
		fm   format.Frontmatter
		raws []format.RawLink
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fm, err = f.Frontmatter(gCtx, req)
		return err
	})
	g.Go(func() error {
		var err error
		raws, err = f.Links(gCtx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("build: %s: %w", file.Path, err)
	}

	id := nodes.Upsert(graph.NewNode(file.ID, file.Path, fm.Title, fm.Names, fm.Tags, fm.Private))

	links.RemoveFrom(id)
	for _, raw := range raws {
		l, err := toLink(id, raw)
		if err != nil {
			b.logger.Debug("build: dropping link",
				slog.String("path", file.Path),
				slog.String("to", raw.To),
				slog.String("error", err.Error()))
			continue
		}
		links.Links = append(links.Links, l)
	}

	b.logger.Debug("build: shallow",
		slog.String("path", file.Path),
		slog.String("id", id.String()),
		slog.Int("links", len(raws)))

	if compile {
		if err := b.render(ctx, f, file); err != nil {
			return fmt.Errorf("build: %w", err)
		}
	}
	return nil
}

func toLink(from graph.ID, raw format.RawLink) (graph.Link, error) {
	l := graph.Link{From: from, Alias: raw.Alias}

	if raw.Ghost {
		part, err := graph.ParseFilePart(raw.To)
		if err != nil {
			return graph.Link{}, err
		}
		l.To = graph.GhostTarget{Part: part}
	} else {
		l.To = graph.IDTarget{ID: graph.ID(raw.To)}
	}

	switch {
	case raw.Label != "":
		l.Location = graph.LabelLocation{Label: raw.Label}
	case len(raw.Heading) > 0:
		l.Location = graph.HeadingLocation{Path: raw.Heading}
	}
	return l, nil
}
