package graph

import (
	"fmt"
	"slices"
	"strings"
)

// FilePart is the textual target of a link that has not been resolved to an
// id: either a bare name or a path plus name.
type FilePart interface {
	fmt.Stringer
	isFilePart()
}

// NamePart matches any node carrying Name.
type NamePart struct {
	Name string
}

// PathPart matches nodes carrying Name under the (possibly aliased) Path.
type PathPart struct {
	Path []string
	Name string
}

func (NamePart) isFilePart() {}
func (PathPart) isFilePart() {}

func (p NamePart) String() string { return p.Name }

func (p PathPart) String() string {
	return strings.Join(append(slices.Clone(p.Path), p.Name), ".")
}

// ParseFilePart parses the dotted link form: "vector" or "linalg.vector".
func ParseFilePart(text string) (FilePart, error) {
	parts := strings.Split(strings.TrimSpace(text), ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLink, text)
		}
	}
	if len(parts) == 1 {
		return NamePart{Name: parts[0]}, nil
	}
	return PathPart{Path: parts[:len(parts)-1], Name: parts[len(parts)-1]}, nil
}

// Target is where a link points: a known node or a ghost.
type Target interface {
	isTarget()
}

// IDTarget points at an existing node.
type IDTarget struct {
	ID ID
}

// GhostTarget points at a file part that did not resolve when the link was
// recorded.
type GhostTarget struct {
	Part FilePart
}

func (IDTarget) isTarget()    {}
func (GhostTarget) isTarget() {}

// Location narrows a link to a place inside the target.
type Location interface {
	isLocation()
}

// LabelLocation points at a label.
type LabelLocation struct {
	Label string
}

// HeadingLocation points at a heading by its path from the top.
type HeadingLocation struct {
	Path []string
}

func (LabelLocation) isLocation()   {}
func (HeadingLocation) isLocation() {}

// Link is a directed edge out of a node.
type Link struct {
	From     ID
	To       Target
	Location Location
	// Alias overrides the display text; empty means none.
	Alias string
}

// LinkDB is the builder-owned list of links.
type LinkDB struct {
	Links []Link
}

// RemoveFrom drops every link whose origin is id.
func (db *LinkDB) RemoveFrom(id ID) {
	db.Links = slices.DeleteFunc(db.Links, func(l Link) bool { return l.From == id })
}

// From returns the links leaving id.
func (db *LinkDB) From(id ID) []Link {
	var out []Link
	for _, l := range db.Links {
		if l.From == id {
			out = append(out, l)
		}
	}
	return out
}

// To returns the links already resolved to id.
func (db *LinkDB) To(id ID) []Link {
	var out []Link
	for _, l := range db.Links {
		if t, ok := l.To.(IDTarget); ok && t.ID == id {
			out = append(out, l)
		}
	}
	return out
}
