package typst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/omni/internal/format"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/resolver"
)

const (
	frontmatterSelector = "<omni-frontmatter>"
	linkSelector        = "<omni-link>"

	// what typst prints when --one finds no element
	noElementMessage = "expected exactly one element, found 0"
)

// Format is the .typ content format.
type Format struct {
	runner *Runner
	logger *slog.Logger
}

var _ format.Format = (*Format)(nil)

// New returns a typst format using runner.
func New(runner *Runner, logger *slog.Logger) *Format {
	if logger == nil {
		logger = slog.Default()
	}
	return &Format{runner: runner, logger: logger}
}

func (f *Format) Name() string { return "typst" }

type frontmatterRecord struct {
	Title   string   `json:"title"`
	Names   []string `json:"names"`
	Tags    []string `json:"tags"`
	Private bool     `json:"private"`
}

// Frontmatter queries the single <omni-frontmatter> metadata element.
func (f *Format) Frontmatter(ctx context.Context, req format.Request) (format.Frontmatter, error) {
	var rec frontmatterRecord
	err := f.runner.Query(ctx, req.Root, req.Abs(), frontmatterSelector, QueryParams{
		Output: project.OutputHTML,
		Silent: true,
		One:    true,
		Field:  "value",
	}, &rec)

	var exitErr *ExitError
	if errors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, noElementMessage) {
		return format.Frontmatter{}, format.MissingFrontmatter(req.Path)
	}
	if err != nil {
		return format.Frontmatter{}, fmt.Errorf("typst: frontmatter %s: %w", req.Path, err)
	}
	return format.Frontmatter(rec), nil
}

type linkRecord struct {
	To      string   `json:"to"`
	Ghost   bool     `json:"ghost"`
	Alias   *string  `json:"alias"`
	Label   *string  `json:"label"`
	Heading []string `json:"heading"`
}

// Links queries every <omni-link> element. Links the document marks as
// ghosts are looked up again in the on-disk graph, since the document may
// have been compiled against an older snapshot.
func (f *Format) Links(ctx context.Context, req format.Request) ([]format.RawLink, error) {
	var recs []linkRecord
	if err := f.runner.Query(ctx, req.Root, req.Abs(), linkSelector, QueryParams{
		Output: project.OutputHTML,
		Silent: true,
		Field:  "value",
	}, &recs); err != nil {
		return nil, fmt.Errorf("typst: links %s: %w", req.Path, err)
	}

	var session *resolver.Session
	out := make([]format.RawLink, 0, len(recs))
	for _, rec := range recs {
		raw := format.RawLink{To: rec.To, Ghost: rec.Ghost, Heading: rec.Heading}
		if rec.Alias != nil {
			raw.Alias = *rec.Alias
		}
		if rec.Label != nil {
			raw.Label = *rec.Label
		}

		if raw.Ghost && req.Store != nil {
			if session == nil {
				s, err := resolver.Load(req.Store, req.Config)
				if err != nil {
					return nil, err
				}
				session = s
			}
			res, err := session.ResolveText(raw.To, raw.Alias)
			switch {
			case errors.Is(err, graph.ErrDuplicateName):
				return nil, fmt.Errorf("typst: %s: link %s: %w", req.Path, raw.To, err)
			case err != nil:
				f.logger.Debug("typst: keeping ghost link",
					slog.String("path", req.Path),
					slog.String("to", raw.To),
					slog.String("error", err.Error()))
			case !res.Ghost:
				raw.To, raw.Ghost = string(res.Node.ID), false
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

// Render compiles the file to out under build/.
func (f *Format) Render(ctx context.Context, req format.Request, out project.Output) error {
	dst := req.OutPath(out)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("typst: mkdir: %w", err)
	}
	if err := f.runner.Compile(ctx, req.Root, req.Abs(), dst, out, true); err != nil {
		return fmt.Errorf("typst: render %s: %w", req.Path, err)
	}
	return nil
}
