package graph

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/starford/omni/internal/omnipath"
	"github.com/starford/omni/internal/project"
)

var (
	ErrNodeOutsideProject = errors.New("graph: node lies outside the project content directory")
	ErrCannotGoFurther    = errors.New("graph: cannot build a unique link for node")
)

// Suggestion is the shortest unambiguous way to link to a node by one of
// its names.
type Suggestion struct {
	Link   omnipath.Logical
	NodeID ID
	Path   string
	Title  string
}

type candidate struct {
	dirs    []string
	name    string
	relDirs []string
	node    *Node
}

func (c *candidate) key() string {
	return strings.Join(c.dirs, "/") + "\x00" + c.name
}

// Suggestions computes, for every (node, name) pair, the shortest link that
// resolves to exactly that node, then shortens it through the directory
// aliases where possible.
func Suggestions(nodes *NodeDB, cfg *project.Config) ([]Suggestion, error) {
	var cands []*candidate
	for i := range nodes.Nodes {
		n := &nodes.Nodes[i]
		canon, err := omnipath.FromCanonical(n.Path, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNodeOutsideProject, n.Path)
		}
		rel := canon.Logical().Dirs
		for _, name := range n.Names {
			cands = append(cands, &candidate{dirs: []string{}, name: name, relDirs: rel, node: n})
		}
	}

	for {
		groups := make(map[string][]*candidate)
		for _, c := range cands {
			groups[c.key()] = append(groups[c.key()], c)
		}

		grew := false
		for _, key := range slices.Sorted(maps.Keys(groups)) {
			group := groups[key]
			if len(group) < 2 {
				continue
			}
			for _, c := range group {
				if len(c.dirs) >= len(c.relDirs) {
					return nil, fmt.Errorf("%w: %s (name %q)", ErrCannotGoFurther, c.node.Path, c.name)
				}
				c.dirs = append(c.dirs, c.relDirs[len(c.dirs)])
			}
			grew = true
		}
		if !grew {
			break
		}
	}

	aliases := slices.Sorted(maps.Keys(cfg.DirAliases))
	out := make([]Suggestion, 0, len(cands))
	for _, c := range cands {
		link := omnipath.Logical{Dirs: c.dirs, Name: c.name}
		canon := omnipath.Join(cfg, c.dirs, c.name)
		for _, alias := range aliases {
			if l, ok := canon.TryRealias(alias, cfg.DirAliases[alias]); ok {
				link = l
				break
			}
		}
		out = append(out, Suggestion{Link: link, NodeID: c.node.ID, Path: c.node.Path, Title: c.node.Title})
	}

	slices.SortFunc(out, func(a, b Suggestion) int {
		return cmp.Or(
			cmp.Compare(a.Link.String(), b.Link.String()),
			cmp.Compare(a.Path, b.Path),
		)
	})
	return out, nil
}
