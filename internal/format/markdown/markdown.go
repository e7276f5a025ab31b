// Package markdown is the .md content format: YAML frontmatter, wikilinks
// and HTML rendering.
package markdown

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gitlab.com/golang-commonmark/markdown"

	"github.com/starford/omni/internal/format"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/parser"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/resolver"
)

// Format is the Markdown content format.
type Format struct {
	md     *markdown.Markdown
	logger *slog.Logger
}

var _ format.Format = (*Format)(nil)

// New returns the Markdown format.
func New(logger *slog.Logger) *Format {
	if logger == nil {
		logger = slog.Default()
	}
	return &Format{
		md:     markdown.New(markdown.HTML(true), markdown.Linkify(false)),
		logger: logger,
	}
}

func (f *Format) Name() string { return "markdown" }

func (f *Format) parse(req format.Request) (*parser.Result, error) {
	data, err := req.Store.Read(req.Path)
	if err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	return parser.Parse(data)
}

// Frontmatter reads title, names, tags and private from the YAML block.
// names defaults to the file stem and title to the first H1.
func (f *Format) Frontmatter(_ context.Context, req format.Request) (format.Frontmatter, error) {
	res, err := f.parse(req)
	if err != nil {
		return format.Frontmatter{}, err
	}
	if !res.HasFrontmatter {
		return format.Frontmatter{}, format.MissingFrontmatter(req.Path)
	}

	names := parser.StringList(res.Frontmatter, "names")
	if len(names) == 0 {
		names = []string{stem(req.Path)}
	}
	private, _ := res.Frontmatter["private"].(bool)

	return format.Frontmatter{
		Title:   res.Title,
		Names:   names,
		Tags:    res.Tags,
		Private: private,
	}, nil
}

// Links resolves each wikilink against the build/nodes.toml snapshot on
// disk: known targets become id links, unknown names become ghosts.
func (f *Format) Links(_ context.Context, req format.Request) ([]format.RawLink, error) {
	res, err := f.parse(req)
	if err != nil {
		return nil, err
	}
	session, err := resolver.Load(req.Store, req.Config)
	if err != nil {
		return nil, err
	}

	out := make([]format.RawLink, 0, len(res.Links))
	for _, wl := range res.Links {
		raw := format.RawLink{
			To:      linkText(wl.Target),
			Ghost:   true,
			Alias:   wl.Alias,
			Label:   wl.Label,
			Heading: wl.Heading,
		}

		r, err := session.ResolveText(raw.To, wl.Alias)
		switch {
		case errors.Is(err, graph.ErrDuplicateName):
			return nil, fmt.Errorf("markdown: %s: link %s: %w", req.Path, wl.Raw, err)
		case err != nil:
			// unparseable target, left for the builder to drop
		case !r.Ghost:
			raw.To, raw.Ghost = string(r.Node.ID), false
		}
		out = append(out, raw)
	}
	return out, nil
}

// Render writes build/<path>.html. Markdown has no PDF output.
func (f *Format) Render(_ context.Context, req format.Request, out project.Output) error {
	if out != project.OutputHTML {
		return fmt.Errorf("markdown: %s: %w", out, format.ErrUnsupportedOutput)
	}
	res, err := f.parse(req)
	if err != nil {
		return err
	}
	session, err := resolver.Load(req.Store, req.Config)
	if err != nil {
		return err
	}

	self := project.BuildPath(req.Path, string(project.OutputHTML))
	body := parser.ReplaceLinks(res.Body, func(wl parser.WikiLink) string {
		return f.renderLink(session, self, wl)
	})

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(res.Title))
	b.WriteString("</title>\n</head>\n<body>\n")
	b.WriteString(f.md.RenderToString([]byte(body)))
	b.WriteString("</body>\n</html>\n")

	dst := req.OutPath(out)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("markdown: mkdir: %w", err)
	}
	if err := os.WriteFile(dst, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("markdown: write %s: %w", dst, err)
	}
	return nil
}

func (f *Format) renderLink(session *resolver.Session, self string, wl parser.WikiLink) string {
	r, err := session.ResolveText(linkText(wl.Target), wl.Alias)
	if err != nil {
		f.logger.Warn("markdown: unresolved link", slog.String("link", wl.Raw), slog.String("error", err.Error()))
		return `<span class="omni-ghost">` + html.EscapeString(or(wl.Alias, wl.Target)) + `</span>`
	}
	if r.Ghost {
		return `<span class="omni-ghost">` + html.EscapeString(r.Display) + `</span>`
	}

	href := relHref(self, project.BuildPath(r.Node.Path, string(project.OutputHTML)))
	switch {
	case wl.Label != "":
		href += "#" + wl.Label
	case len(wl.Heading) > 0:
		href += "#" + slug(wl.Heading[len(wl.Heading)-1])
	}
	return `<a class="omni-link" href="` + html.EscapeString(href) + `">` + html.EscapeString(r.Display) + `</a>`
}

// linkText accepts both dotted and slash separated link targets.
func linkText(target string) string {
	return strings.ReplaceAll(target, "/", ".")
}

// relHref returns the path of to relative to the directory of from.
func relHref(from, to string) string {
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(from)), filepath.FromSlash(to))
	if err != nil {
		return "/" + to
	}
	return filepath.ToSlash(rel)
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

func stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
