package graph

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/pelletier/go-toml/v2"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/project"
)

// Reader is the read half of storage.Provider.
type Reader interface {
	Read(path string) ([]byte, error)
}

// Writer is the write half of storage.Provider.
type Writer interface {
	Write(path string, content []byte) error
}

// readOptional returns nil data when the file does not exist.
func readOptional(r Reader, path string) ([]byte, error) {
	data, err := r.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func malformed(path string, err error) error {
	return apperr.WithHint(
		fmt.Errorf("graph: %s: %w: %w", path, apperr.ErrMalformedState, err),
		"fix or delete the file; build outputs are regenerated by `omni build`",
	)
}

// LoadUserDB reads nodes.toml. A missing file yields an empty list.
func LoadUserDB(r Reader) (*UserDB, error) {
	data, err := readOptional(r, project.UserDBFile)
	if err != nil {
		return nil, fmt.Errorf("graph: load user db: %w", err)
	}
	db := &UserDB{}
	if err := toml.Unmarshal(data, db); err != nil {
		return nil, malformed(project.UserDBFile, err)
	}
	for _, f := range db.Files {
		if f.ID == "" || f.Path == "" {
			return nil, malformed(project.UserDBFile, errors.New("file entry needs both id and path"))
		}
	}
	return db, nil
}

// SaveUserDB writes nodes.toml atomically.
func SaveUserDB(w Writer, db *UserDB) error {
	return save(w, project.UserDBFile, db)
}

// LoadNodes reads build/nodes.toml. A missing file yields an empty graph.
func LoadNodes(r Reader) (*NodeDB, error) {
	data, err := readOptional(r, project.NodesFile)
	if err != nil {
		return nil, fmt.Errorf("graph: load nodes: %w", err)
	}
	return DecodeNodes(data)
}

// DecodeNodes parses the build/nodes.toml format.
func DecodeNodes(data []byte) (*NodeDB, error) {
	db := &NodeDB{}
	if err := toml.Unmarshal(data, db); err != nil {
		return nil, malformed(project.NodesFile, err)
	}
	for i := range db.Nodes {
		n := &db.Nodes[i]
		if n.Kind != KindFile {
			return nil, malformed(project.NodesFile, fmt.Errorf("node %s: unknown kind %q", n.ID, n.Kind))
		}
		if n.Names == nil {
			n.Names = []string{}
		}
		if n.Tags == nil {
			n.Tags = []string{}
		}
	}
	return db, nil
}

// SaveNodes writes build/nodes.toml atomically.
func SaveNodes(w Writer, db *NodeDB) error {
	return save(w, project.NodesFile, db)
}

// LoadLinks reads build/links.toml. A missing file yields no links.
func LoadLinks(r Reader) (*LinkDB, error) {
	data, err := readOptional(r, project.LinksFile)
	if err != nil {
		return nil, fmt.Errorf("graph: load links: %w", err)
	}
	db, err := UnmarshalLinks(data)
	if err != nil {
		return nil, malformed(project.LinksFile, err)
	}
	return db, nil
}

// SaveLinks writes build/links.toml atomically.
func SaveLinks(w Writer, db *LinkDB) error {
	data, err := MarshalLinks(db)
	if err != nil {
		return fmt.Errorf("graph: encode links: %w", err)
	}
	if err := w.Write(project.LinksFile, data); err != nil {
		return fmt.Errorf("graph: save links: %w", err)
	}
	return nil
}

func save(w Writer, path string, v any) error {
	data, err := toml.Marshal(v)
	if err != nil {
		return fmt.Errorf("graph: encode %s: %w", path, err)
	}
	if err := w.Write(path, data); err != nil {
		return fmt.Errorf("graph: save %s: %w", path, err)
	}
	return nil
}
