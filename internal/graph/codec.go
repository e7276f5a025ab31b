package graph

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// Wire shapes for build/links.toml. A target is encoded as
//
//	to = { id = "..." }
//	to = { ghost = { name = "..." } }
//	to = { ghost = { path_and_name = [["dir", ...], "name"] } }
type linkDBWire struct {
	Links []linkWire `toml:"link"`
}

type linkWire struct {
	From        ID         `toml:"from"`
	To          targetWire `toml:"to"`
	Label       *string    `toml:"label,omitempty"`
	HeadingPath []string   `toml:"heading_path,omitempty"`
	Alias       string     `toml:"alias,omitempty"`
}

type targetWire struct {
	ID    *ID        `toml:"id,omitempty"`
	Ghost *ghostWire `toml:"ghost,omitempty"`
}

type ghostWire struct {
	Name        *string `toml:"name,omitempty"`
	PathAndName []any   `toml:"path_and_name,omitempty"`
}

// MarshalLinks encodes db in the links.toml format.
func MarshalLinks(db *LinkDB) ([]byte, error) {
	w := linkDBWire{Links: make([]linkWire, 0, len(db.Links))}
	for _, l := range db.Links {
		lw := linkWire{From: l.From, Alias: l.Alias}

		switch to := l.To.(type) {
		case IDTarget:
			id := to.ID
			lw.To.ID = &id
		case GhostTarget:
			g := &ghostWire{}
			switch p := to.Part.(type) {
			case NamePart:
				name := p.Name
				g.Name = &name
			case PathPart:
				dirs := make([]any, len(p.Path))
				for i, d := range p.Path {
					dirs[i] = d
				}
				g.PathAndName = []any{dirs, p.Name}
			default:
				return nil, fmt.Errorf("graph: link from %s: unknown file part %T", l.From, to.Part)
			}
			lw.To.Ghost = g
		default:
			return nil, fmt.Errorf("graph: link from %s: unknown target %T", l.From, l.To)
		}

		switch loc := l.Location.(type) {
		case nil:
		case LabelLocation:
			label := loc.Label
			lw.Label = &label
		case HeadingLocation:
			lw.HeadingPath = loc.Path
		}

		w.Links = append(w.Links, lw)
	}
	return toml.Marshal(w)
}

// UnmarshalLinks decodes the links.toml format.
func UnmarshalLinks(data []byte) (*LinkDB, error) {
	var w linkDBWire
	if err := toml.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	db := &LinkDB{Links: make([]Link, 0, len(w.Links))}
	for i, lw := range w.Links {
		to, err := lw.To.decode()
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		l := Link{From: lw.From, To: to, Alias: lw.Alias}
		switch {
		case lw.Label != nil:
			l.Location = LabelLocation{Label: *lw.Label}
		case len(lw.HeadingPath) > 0:
			l.Location = HeadingLocation{Path: lw.HeadingPath}
		}
		db.Links = append(db.Links, l)
	}
	return db, nil
}

func (t targetWire) decode() (Target, error) {
	switch {
	case t.ID != nil && t.Ghost == nil:
		return IDTarget{ID: *t.ID}, nil
	case t.Ghost != nil && t.ID == nil:
		part, err := t.Ghost.decode()
		if err != nil {
			return nil, err
		}
		return GhostTarget{Part: part}, nil
	default:
		return nil, errors.New("target must have exactly one of id or ghost")
	}
}

func (g ghostWire) decode() (FilePart, error) {
	switch {
	case g.Name != nil && g.PathAndName == nil:
		return NamePart{Name: *g.Name}, nil
	case g.PathAndName != nil && g.Name == nil:
		if len(g.PathAndName) != 2 {
			return nil, errors.New("path_and_name must hold a path and a name")
		}
		rawDirs, ok := g.PathAndName[0].([]any)
		if !ok {
			return nil, errors.New("path_and_name: path must be an array")
		}
		name, ok := g.PathAndName[1].(string)
		if !ok {
			return nil, errors.New("path_and_name: name must be a string")
		}
		dirs := make([]string, len(rawDirs))
		for i, d := range rawDirs {
			s, ok := d.(string)
			if !ok {
				return nil, errors.New("path_and_name: path components must be strings")
			}
			dirs[i] = s
		}
		return PathPart{Path: dirs, Name: name}, nil
	default:
		return nil, errors.New("ghost must have exactly one of name or path_and_name")
	}
}
