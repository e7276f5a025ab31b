package graph

import (
	"fmt"
	"strings"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/omnipath"
	"github.com/starford/omni/internal/project"
)

// FindFromFilePart resolves a textual link target to a single node.
//
// ErrNameNotFound is the expected signal for a ghost link. ErrDuplicateName
// means the link is ambiguous and needs a path.
func (db *NodeDB) FindFromFilePart(part FilePart, cfg *project.Config) (*Node, error) {
	var match func(*Node) bool

	switch p := part.(type) {
	case NamePart:
		match = func(n *Node) bool { return n.HasName(p.Name) }
	case PathPart:
		if len(p.Path) == 0 {
			return nil, ErrEmptyPath
		}
		canon, err := omnipath.Logical{Dirs: p.Path, Name: p.Name}.Unalias(cfg)
		if err != nil {
			return nil, fmt.Errorf("graph: resolve %s: %w", p, err)
		}
		prefix := canon.DirComponents()
		match = func(n *Node) bool {
			return n.HasName(p.Name) && hasComponentPrefix(n.Path, prefix)
		}
	default:
		return nil, fmt.Errorf("graph: unknown file part %T", part)
	}

	var found []*Node
	for i := range db.Nodes {
		if match(&db.Nodes[i]) {
			found = append(found, &db.Nodes[i])
		}
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNameNotFound, part)
	case 1:
		return found[0], nil
	default:
		paths := make([]string, len(found))
		for i, n := range found {
			paths[i] = n.Path
		}
		return nil, apperr.WithHint(
			fmt.Errorf("%w: %s matches %s", ErrDuplicateName, part, strings.Join(paths, ", ")),
			"specify a path to disambiguate this link",
		)
	}
}

// hasComponentPrefix reports whether the slash path p starts with prefix,
// comparing whole components only ("src/cs" is not a prefix of "src/css/x").
func hasComponentPrefix(p string, prefix []string) bool {
	comps := strings.Split(p, "/")
	if len(prefix) > len(comps) {
		return false
	}
	for i, c := range prefix {
		if comps[i] != c {
			return false
		}
	}
	return true
}
