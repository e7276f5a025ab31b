// Package omnipath models the paths users type in links and commands.
//
// A Logical path may start with a directory alias and never touches the
// filesystem. Unalias turns it into a Canonical path, which is the only form
// that can be rendered as a real path relative to the project root.
package omnipath

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/starford/omni/internal/project"
)

var (
	ErrEmptyPath        = errors.New("omnipath: empty path")
	ErrInvalidComponent = errors.New("omnipath: path contains an invalid component")
	ErrEmptyAliasTarget = errors.New("omnipath: alias points to an empty path")
)

// Logical is a path as written by a user.
type Logical struct {
	Dirs []string
	Name string
}

// FromPath splits a slash separated path into directories and a final name.
func FromPath(p string) (Logical, error) {
	if p == "" {
		return Logical{}, ErrEmptyPath
	}
	if strings.HasPrefix(p, "/") {
		return Logical{}, fmt.Errorf("%w: %q is absolute", ErrInvalidComponent, p)
	}
	parts := strings.Split(strings.TrimSuffix(p, "/"), "/")
	for _, c := range parts {
		if err := checkComponent(c); err != nil {
			return Logical{}, fmt.Errorf("%w in %q", err, p)
		}
	}
	return Logical{
		Dirs: parts[:len(parts)-1],
		Name: parts[len(parts)-1],
	}, nil
}

func checkComponent(c string) error {
	switch c {
	case "", ".", "..":
		return fmt.Errorf("%w %q", ErrInvalidComponent, c)
	}
	return nil
}

// Unalias expands a leading alias and prepends the configured prefix dir.
func (l Logical) Unalias(cfg *project.Config) (Canonical, error) {
	dirs, err := expandAlias(l.Dirs, cfg)
	if err != nil {
		return Canonical{}, err
	}

	prefix := cfg.Project.PrefixDir
	if prefix != "" && len(dirs) > 0 && dirs[0] == prefix {
		dirs = dirs[1:]
	}
	return Canonical{prefix: prefix, dirs: dirs, name: l.Name}, nil
}

// expandAlias returns a fresh slice with the first component expanded
// through the alias table and every component split on "/".
func expandAlias(dirs []string, cfg *project.Config) ([]string, error) {
	out := make([]string, 0, len(dirs))
	for i, d := range dirs {
		if i == 0 {
			if target, ok := cfg.DirAliases[d]; ok {
				parts := splitClean(target)
				if len(parts) == 0 {
					return nil, fmt.Errorf("%w: %q", ErrEmptyAliasTarget, d)
				}
				out = append(out, parts...)
				continue
			}
		}
		out = append(out, splitClean(d)...)
	}
	return out, nil
}

func splitClean(s string) []string {
	var out []string
	for _, c := range strings.Split(s, "/") {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// String renders the dotted link form, e.g. "linalg.vector".
func (l Logical) String() string {
	return strings.Join(append(append([]string{}, l.Dirs...), l.Name), ".")
}

// SlashString renders the logical path with slashes, e.g. "linalg/vector".
func (l Logical) SlashString() string {
	return path.Join(append(append([]string{}, l.Dirs...), l.Name)...)
}

// Canonical is an unaliased path. Its zero value is not meaningful; obtain
// one through Logical.Unalias or FromCanonical.
type Canonical struct {
	prefix string
	dirs   []string
	name   string
}

// FromCanonical parses a path already stored in canonical form (relative to
// the project root, prefix dir included when configured).
func FromCanonical(p string, cfg *project.Config) (Canonical, error) {
	l, err := FromPath(p)
	if err != nil {
		return Canonical{}, err
	}
	prefix := cfg.Project.PrefixDir
	if prefix != "" {
		if len(l.Dirs) == 0 || l.Dirs[0] != prefix {
			return Canonical{}, fmt.Errorf("omnipath: %q is outside %q", p, prefix)
		}
		l.Dirs = l.Dirs[1:]
	}
	return Canonical{prefix: prefix, dirs: l.Dirs, name: l.Name}, nil
}

// Unalias is the identity: a canonical path has nothing left to expand.
func (c Canonical) Unalias(*project.Config) (Canonical, error) {
	return c, nil
}

// Components returns prefix (if any), dirs and name in order.
func (c Canonical) Components() []string {
	out := make([]string, 0, len(c.dirs)+2)
	if c.prefix != "" {
		out = append(out, c.prefix)
	}
	out = append(out, c.dirs...)
	return append(out, c.name)
}

// DirComponents returns Components without the final name.
func (c Canonical) DirComponents() []string {
	all := c.Components()
	return all[:len(all)-1]
}

// Path renders the path relative to the project root.
func (c Canonical) Path() string {
	return path.Join(c.Components()...)
}

// Name returns the final component.
func (c Canonical) Name() string { return c.name }

// Logical returns the user-facing form without the prefix dir.
func (c Canonical) Logical() Logical {
	return Logical{Dirs: append([]string{}, c.dirs...), Name: c.name}
}

func (c Canonical) String() string { return c.Path() }

// TryRealias replaces the leading directories that match target with the
// single component alias. The result must be unaliased again before use.
func (c Canonical) TryRealias(alias, target string) (Logical, bool) {
	parts := splitClean(target)
	if c.prefix != "" && len(parts) > 0 && parts[0] == c.prefix {
		parts = parts[1:]
	}
	if len(parts) == 0 || len(parts) > len(c.dirs) {
		return Logical{}, false
	}
	for i, p := range parts {
		if c.dirs[i] != p {
			return Logical{}, false
		}
	}
	dirs := append([]string{alias}, c.dirs[len(parts):]...)
	return Logical{Dirs: dirs, Name: c.name}, true
}

// Join builds a canonical path from directories that are already real
// directories below the prefix dir. No alias expansion happens.
func Join(cfg *project.Config, dirs []string, name string) Canonical {
	return Canonical{prefix: cfg.Project.PrefixDir, dirs: append([]string{}, dirs...), name: name}
}
