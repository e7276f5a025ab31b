package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/starford/omni/internal/graph"
)

// Partial rebuilds file, promotes ghost links that now resolve to it and
// rebuilds every file that links to it.
//
// nodes are persisted before any dependant is rebuilt, because formats
// resolve links against build/nodes.toml on disk. Links are persisted only
// once all dependants are done.
func (b *Builder) Partial(ctx context.Context, nodes *graph.NodeDB, links *graph.LinkDB, file graph.File, compile bool) error {
	if err := b.Shallow(ctx, nodes, links, file, compile); err != nil {
		return err
	}

	target, err := nodes.FindByCanonicalPath(file.Path)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	targetID := target.ID

	dependants, err := b.promoteGhosts(links, nodes, targetID, compile)
	if err != nil {
		return err
	}

	if err := graph.SaveNodes(b.store, nodes); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	for _, dep := range dependants {
		n, err := nodes.FindFromID(dep)
		if err != nil {
			return fmt.Errorf("build: dependant of %s: %w", file.Path, err)
		}
		if err := b.Shallow(ctx, nodes, links, graph.File{ID: n.ID, Path: n.Path}, compile); err != nil {
			return err
		}
	}

	if err := graph.SaveLinks(b.store, links); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := graph.SaveNodes(b.store, nodes); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	b.logger.Info("build: partial",
		slog.String("path", file.Path),
		slog.Int("dependants", len(dependants)))
	return nil
}

// promoteGhosts rewrites ghost links resolving to target into id links and
// returns the ids of the nodes that need rebuilding, in first-seen order.
func (b *Builder) promoteGhosts(links *graph.LinkDB, nodes *graph.NodeDB, target graph.ID, compile bool) ([]graph.ID, error) {
	type lookup struct {
		id    graph.ID
		found bool
	}
	cache := make(map[string]lookup)

	var dependants []graph.ID
	add := func(id graph.ID) {
		if id != target && !slices.Contains(dependants, id) {
			dependants = append(dependants, id)
		}
	}

	for i := range links.Links {
		l := &links.Links[i]

		switch to := l.To.(type) {
		case graph.GhostTarget:
			key := fmt.Sprintf("%T:%s", to.Part, to.Part)
			res, ok := cache[key]
			if !ok {
				n, err := nodes.FindFromFilePart(to.Part, b.cfg)
				switch {
				case errors.Is(err, graph.ErrNameNotFound):
				case err != nil:
					return nil, fmt.Errorf("build: resolve ghost link %s from %s: %w", to.Part, l.From, err)
				default:
					res = lookup{id: n.ID, found: true}
				}
				cache[key] = res
			}
			if res.found && res.id == target {
				l.To = graph.IDTarget{ID: target}
				add(l.From)
			}

		case graph.IDTarget:
			// the title shown by these links may have changed
			if compile && to.ID == target && l.Alias == "" {
				add(l.From)
			}
		}
	}
	return dependants, nil
}
