// Package graph holds the persisted knowledge graph: tracked files, built
// nodes and the links between them, together with link resolution.
package graph

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUntrackedNode = errors.New("graph: node is not tracked")
	ErrNameNotFound  = errors.New("graph: no node has this name")
	ErrDuplicateName = errors.New("graph: several nodes share this name")
	ErrEmptyPath     = errors.New("graph: link path is empty")
	ErrInvalidLink   = errors.New("graph: invalid link target")
)

// Kind is the node kind. Only files exist today.
type Kind string

const KindFile Kind = "file"

// File is a tracked source file, as listed in the user's nodes.toml.
type File struct {
	ID   ID     `toml:"id"`
	Path string `toml:"path"`
}

// UserDB is the hand-maintained list of tracked files.
type UserDB struct {
	Files []File `toml:"file"`
}

// Contains reports whether id is already assigned.
func (db *UserDB) Contains(id ID) bool {
	return slices.ContainsFunc(db.Files, func(f File) bool { return f.ID == id })
}

// FindByPath returns the tracked file at path.
func (db *UserDB) FindByPath(path string) (File, error) {
	for _, f := range db.Files {
		if f.Path == path {
			return f, nil
		}
	}
	return File{}, fmt.Errorf("%w: %s", ErrUntrackedNode, path)
}

// Node is the built record of a tracked file.
type Node struct {
	ID      ID       `toml:"id"`
	Path    string   `toml:"path"`
	Kind    Kind     `toml:"kind"`
	Title   string   `toml:"title"`
	Names   []string `toml:"names"`
	Tags    []string `toml:"tags"`
	Private bool     `toml:"private"`
}

// HasName reports whether name is one of the node's names.
func (n *Node) HasName(name string) bool {
	return slices.Contains(n.Names, name)
}

// NodeDB is the builder-owned list of nodes.
type NodeDB struct {
	Nodes []Node `toml:"node"`
}

// FindByCanonicalPath returns the node stored at path.
func (db *NodeDB) FindByCanonicalPath(path string) (*Node, error) {
	for i := range db.Nodes {
		if db.Nodes[i].Path == path {
			return &db.Nodes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUntrackedNode, path)
}

// FindFromID returns the node with the given id.
func (db *NodeDB) FindFromID(id ID) (*Node, error) {
	for i := range db.Nodes {
		if db.Nodes[i].ID == id {
			return &db.Nodes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: id %s", ErrUntrackedNode, id)
}

// Upsert updates the node at n.Path in place, keeping its id. A node that
// moved is found by n.ID instead and takes the new path. Otherwise n is
// appended. It returns the id the node ends up with.
func (db *NodeDB) Upsert(n Node) ID {
	existing, err := db.FindByCanonicalPath(n.Path)
	if err != nil {
		existing, err = db.FindFromID(n.ID)
	}
	if err != nil {
		db.Nodes = append(db.Nodes, n)
		return n.ID
	}
	existing.Path = n.Path
	existing.Title = n.Title
	existing.Names = n.Names
	existing.Tags = n.Tags
	existing.Private = n.Private
	return existing.ID
}

// dedupe keeps the first occurrence of each value and drops empty strings.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// NewNode builds a file node, normalising names and tags as sets.
func NewNode(id ID, path, title string, names, tags []string, private bool) Node {
	return Node{
		ID:      id,
		Path:    path,
		Kind:    KindFile,
		Title:   title,
		Names:   dedupe(names),
		Tags:    dedupe(tags),
		Private: private,
	}
}
