package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/sse"
	"github.com/starford/omni/internal/storage"
)

// Watcher event kinds passed to EventCallback.
const (
	EventNodeBuilt     = sse.NodeBuilt
	EventBuildFailed   = sse.BuildFailed
	EventGraphReloaded = sse.GraphReloaded
)

const debounce = 150 * time.Millisecond

// EventCallback is called after a watcher-driven change. path is the source
// path for build events and empty for EventGraphReloaded.
type EventCallback func(kind string, path string)

// SourceFunc rebuilds the source file at path (relative to the root). It
// returns graph.ErrUntrackedNode for files that are not part of the graph.
type SourceFunc func(ctx context.Context, path string) error

// Watch starts an fsnotify watcher on the project root and processes file
// change events until ctx is cancelled.
//
// Edits to source files are debounced and handed to onSource, which runs a
// fresh build. Edits to build/nodes.toml or build/links.toml trigger Sync.
// Build outputs and hidden files are ignored. cb (if non-nil) is called
// after each build and reload.
func Watch(ctx context.Context, db GraphIndex, store storage.Provider, root string, logger *slog.Logger, onSource SourceFunc, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var (
		timer    *time.Timer
		timerCh  <-chan time.Time
		sources  = make(map[string]struct{})
		needSync bool
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}
	notify := func(kind, p string) {
		if cb != nil {
			cb(kind, p)
		}
	}

	flush := func() {
		paths := make([]string, 0, len(sources))
		for p := range sources {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		clear(sources)

		for _, p := range paths {
			if onSource == nil {
				break
			}
			err := onSource(ctx, p)
			if errors.Is(err, graph.ErrUntrackedNode) {
				logger.Debug("watcher: untracked, skipped", slog.String("path", p))
				continue
			}
			if err != nil {
				logger.Warn("watcher: build failed", slog.String("path", p), slog.String("error", err.Error()))
				notify(EventBuildFailed, p)
				continue
			}
			logger.Debug("watcher: built", slog.String("path", p))
			notify(EventNodeBuilt, p)
			// the build rewrote the graph files; reload now rather than
			// waiting for their events
			needSync = true
		}

		if needSync {
			needSync = false
			changed, err := Sync(db, store, logger)
			if err != nil {
				logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
				return
			}
			if changed {
				notify(EventGraphReloaded, "")
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if skipDir(rel) {
						continue
					}
					if addErr := addDirsRecursive(w, root, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					continue
				}
			}

			switch classify(rel) {
			case kindGraph:
				needSync = true
				schedule()
			case kindSource:
				if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					sources[rel] = struct{}{}
					schedule()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

type fileKind int

const (
	kindIgnored fileKind = iota
	kindGraph
	kindSource
)

func classify(rel string) fileKind {
	if rel == project.NodesFile || rel == project.LinksFile {
		return kindGraph
	}
	for _, c := range strings.Split(rel, "/") {
		if strings.HasPrefix(c, ".") {
			return kindIgnored
		}
	}
	if rel == project.BuildDir || strings.HasPrefix(rel, project.BuildDir+"/") {
		return kindIgnored
	}
	if !strings.Contains(rel, "/") {
		// omni.toml, nodes.toml and other root files
		return kindIgnored
	}
	if path.Ext(rel) == "" {
		return kindIgnored
	}
	return kindSource
}

// skipDir reports whether the directory at rel is left unwatched. build/
// itself is watched for the graph files, its output subtrees are not.
func skipDir(rel string) bool {
	if rel == "." || rel == project.BuildDir {
		return false
	}
	if strings.HasPrefix(path.Base(rel), ".") {
		return true
	}
	return strings.HasPrefix(rel, project.BuildDir+"/")
}

// addDirsRecursive adds dir and all its watched subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr == nil && skipDir(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
