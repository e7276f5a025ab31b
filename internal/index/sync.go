package index

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/starford/omni/internal/checksum"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
)

// Sync reloads the projection from build/nodes.toml and build/links.toml
// when their combined checksum differs from the one last loaded. It reports
// whether anything was reloaded. There is no merge: the files replace the
// whole projection.
func Sync(db GraphIndex, store graph.Reader, logger *slog.Logger) (bool, error) {
	nodesData, err := readOptional(store, project.NodesFile)
	if err != nil {
		return false, err
	}
	linksData, err := readOptional(store, project.LinksFile)
	if err != nil {
		return false, err
	}

	sum := checksum.SumAll(nodesData, linksData)
	current, err := db.Checksum()
	if err != nil {
		return false, err
	}
	if current == sum {
		logger.Debug("sync: unchanged")
		return false, nil
	}

	nodes, err := graph.DecodeNodes(nodesData)
	if err != nil {
		return false, fmt.Errorf("sync: %s: %w", project.NodesFile, err)
	}
	links, err := graph.UnmarshalLinks(linksData)
	if err != nil {
		return false, fmt.Errorf("sync: %s: %w", project.LinksFile, err)
	}

	if err := db.Replace(nodes, links, sum); err != nil {
		return false, err
	}
	logger.Info("sync: reloaded",
		slog.Int("nodes", len(nodes.Nodes)),
		slog.Int("links", len(links.Links)))
	return true, nil
}

func readOptional(r graph.Reader, path string) ([]byte, error) {
	data, err := r.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	return data, nil
}
