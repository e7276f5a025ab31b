package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/graph"
)

// NodeRow represents a row in the nodes table.
type NodeRow struct {
	ID      string   `json:"id"`
	Path    string   `json:"path"`
	Kind    string   `json:"kind"`
	Title   string   `json:"title"`
	Names   []string `json:"names"`
	Tags    []string `json:"tags"`
	Private bool     `json:"private"`
}

// LinkRow represents a row in the links table. Exactly one of Target and
// Ghost is set.
type LinkRow struct {
	Source  string   `json:"source"`
	Target  string   `json:"target,omitempty"`
	Ghost   string   `json:"ghost,omitempty"`
	Alias   string   `json:"alias,omitempty"`
	Label   string   `json:"label,omitempty"`
	Heading []string `json:"heading,omitempty"`
}

// Ghost is a link text that matches no node, with the nodes using it.
type Ghost struct {
	Link    string   `json:"link"`
	Sources []string `json:"sources"`
}

// GraphNode is a node in the visualization graph.
type GraphNode struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

// GraphLink is a resolved edge in the visualization graph.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

const metaChecksum = "checksum"

// Replace swaps the whole projection for nodes and links in one transaction
// and records sum as the checksum of the files they were read from.
func (db *DB) Replace(nodes *graph.NodeDB, links *graph.LinkDB, sum string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM nodes`); err != nil {
		return fmt.Errorf("index: clear nodes: %w", err)
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (id, path, kind, title, names, tags, private)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare node insert: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range nodes.Nodes {
		names, _ := json.Marshal(nonNil(n.Names))
		tags, _ := json.Marshal(nonNil(n.Tags))
		if _, err := nodeStmt.Exec(string(n.ID), n.Path, string(n.Kind), n.Title, string(names), string(tags), n.Private); err != nil {
			return fmt.Errorf("index: insert node %s: %w", n.ID, err)
		}
	}

	linkStmt, err := tx.Prepare(`
		INSERT INTO links (source, target, ghost, alias, label, heading)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare link insert: %w", err)
	}
	defer linkStmt.Close()
	for _, l := range links.Links {
		row := linkRow(l)
		heading, _ := json.Marshal(nonNil(row.Heading))
		if _, err := linkStmt.Exec(row.Source, row.Target, row.Ghost, row.Alias, row.Label, string(heading)); err != nil {
			return fmt.Errorf("index: insert link from %s: %w", row.Source, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaChecksum, sum); err != nil {
		return fmt.Errorf("index: store checksum: %w", err)
	}

	return tx.Commit()
}

func linkRow(l graph.Link) LinkRow {
	row := LinkRow{Source: string(l.From), Alias: l.Alias}
	switch to := l.To.(type) {
	case graph.IDTarget:
		row.Target = string(to.ID)
	case graph.GhostTarget:
		row.Ghost = to.Part.String()
	}
	switch loc := l.Location.(type) {
	case graph.LabelLocation:
		row.Label = loc.Label
	case graph.HeadingLocation:
		row.Heading = loc.Path
	}
	return row
}

// Checksum returns the checksum recorded by the last Replace, or "".
func (db *DB) Checksum() (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaChecksum).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

const nodeColumns = `n.id, n.path, n.kind, n.title, n.names, n.tags, n.private`

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (NodeRow, error) {
	var (
		n           NodeRow
		names, tags string
	)
	if err := s.Scan(&n.ID, &n.Path, &n.Kind, &n.Title, &names, &tags, &n.Private); err != nil {
		return NodeRow{}, err
	}
	_ = json.Unmarshal([]byte(names), &n.Names)
	_ = json.Unmarshal([]byte(tags), &n.Tags)
	n.Names, n.Tags = nonNil(n.Names), nonNil(n.Tags)
	return n, nil
}

func (db *DB) queryNodes(query string, args ...any) ([]NodeRow, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []NodeRow{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Node returns the node with the given id.
func (db *DB) Node(id string) (*NodeRow, error) {
	row := db.conn.QueryRow(`SELECT `+nodeColumns+` FROM nodes n WHERE n.id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: node %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: node %s: %w", id, err)
	}
	return &n, nil
}

// Nodes lists nodes ordered by path, restricted to tag when it is not empty.
func (db *DB) Nodes(tag string) ([]NodeRow, error) {
	var (
		out []NodeRow
		err error
	)
	if tag == "" {
		out, err = db.queryNodes(`SELECT ` + nodeColumns + ` FROM nodes n ORDER BY n.path`)
	} else {
		out, err = db.queryNodes(`
			SELECT `+nodeColumns+` FROM nodes n
			WHERE EXISTS (SELECT 1 FROM json_each(n.tags) WHERE json_each.value = ?)
			ORDER BY n.path`, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("index: nodes: %w", err)
	}
	return out, nil
}

// Outgoing returns the links leaving node id, in insertion order.
func (db *DB) Outgoing(id string) ([]LinkRow, error) {
	rows, err := db.conn.Query(`
		SELECT source, target, ghost, alias, label, heading
		FROM links WHERE source = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("index: outgoing: %w", err)
	}
	defer rows.Close()

	out := []LinkRow{}
	for rows.Next() {
		var (
			l       LinkRow
			heading string
		)
		if err := rows.Scan(&l.Source, &l.Target, &l.Ghost, &l.Alias, &l.Label, &heading); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(heading), &l.Heading)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Backlinks returns the nodes that link to node id, ordered by path.
func (db *DB) Backlinks(id string) ([]NodeRow, error) {
	out, err := db.queryNodes(`
		SELECT `+nodeColumns+` FROM nodes n
		WHERE n.id IN (SELECT source FROM links WHERE target = ?)
		ORDER BY n.path`, id)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	return out, nil
}

// Ghosts groups unresolved links by their text.
func (db *DB) Ghosts() ([]Ghost, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT ghost, source FROM links
		WHERE ghost != '' ORDER BY ghost, source`)
	if err != nil {
		return nil, fmt.Errorf("index: ghosts: %w", err)
	}
	defer rows.Close()

	out := []Ghost{}
	for rows.Next() {
		var link, source string
		if err := rows.Scan(&link, &source); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].Link != link {
			out = append(out, Ghost{Link: link})
		}
		last := &out[len(out)-1]
		last.Sources = append(last.Sources, source)
	}
	return out, rows.Err()
}

// Graph returns every node and every resolved edge, without duplicates.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT id, path, title FROM nodes ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer rows.Close()

	nodes := []GraphNode{}
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Path, &n.Title); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`
		SELECT DISTINCT l.source, l.target FROM links l
		JOIN nodes n ON n.id = l.target
		WHERE l.target != ''
		ORDER BY l.source, l.target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer linkRows.Close()

	links := []GraphLink{}
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
