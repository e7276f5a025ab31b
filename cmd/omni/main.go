package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/omni/internal"
	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/build"
	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/project"
	"github.com/starford/omni/internal/resolver"
	"github.com/starford/omni/internal/scaffold"
	"github.com/starford/omni/internal/storage"
	"github.com/starford/omni/internal/track"
)

var version = "dev"

// env is the project a command runs against.
type env struct {
	root   string
	cfg    *project.Config
	store  *storage.FS
	logger *slog.Logger
}

func openProject(cmd *cli.Command) (*env, error) {
	root, err := project.FindRoot(cmd.String("dir"))
	if err != nil {
		return nil, err
	}
	cfg, err := project.Load(root)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if s := cmd.String("log-level"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", s, err)
		}
	}
	logger := internal.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	return &env{root: root, cfg: cfg, store: store, logger: logger}, nil
}

func requireArg(cmd *cli.Command, what string) (string, error) {
	if cmd.NArg() < 1 {
		return "", fmt.Errorf("%s is required", what)
	}
	return cmd.Args().First(), nil
}

func runInit(_ context.Context, cmd *cli.Command) error {
	dir, err := requireArg(cmd, "project directory")
	if err != nil {
		return err
	}
	name := cmd.String("name")
	if name == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}
	if err := scaffold.Init(dir, name); err != nil {
		return err
	}
	fmt.Printf("created project %s in %s\n", name, dir)
	return nil
}

func runNew(_ context.Context, cmd *cli.Command) error {
	p, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}
	e, err := openProject(cmd)
	if err != nil {
		return err
	}
	file, err := scaffold.New(e.store, e.cfg, scaffold.NewOptions{
		Template: cmd.String("template"),
		Path:     p,
		Raw:      cmd.Bool("raw"),
		Title:    cmd.String("title"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", file.ID, file.Path)
	return nil
}

func runTrack(_ context.Context, cmd *cli.Command) error {
	p, err := requireArg(cmd, "file")
	if err != nil {
		return err
	}
	e, err := openProject(cmd)
	if err != nil {
		return err
	}
	file, err := track.Track(e.store, e.cfg, p)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", file.ID, file.Path)
	return nil
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	e, err := openProject(cmd)
	if err != nil {
		return err
	}
	b, err := build.New(e.root, e.cfg, build.WithStore(e.store), build.WithLogger(e.logger))
	if err != nil {
		return err
	}
	if cmd.NArg() == 0 {
		return b.Full(ctx)
	}

	rel, err := e.store.Rel(cmd.Args().First())
	if err != nil {
		return err
	}
	file, err := b.BuildPath(ctx, rel, !cmd.Bool("no-compile"))
	if err != nil {
		return err
	}
	e.logger.Info("build: done", slog.String("path", file.Path), slog.String("id", file.ID.String()))
	return nil
}

func runLinks(_ context.Context, cmd *cli.Command) error {
	e, err := openProject(cmd)
	if err != nil {
		return err
	}
	nodes, err := graph.LoadNodes(e.store)
	if err != nil {
		return err
	}
	suggestions, err := graph.Suggestions(nodes, e.cfg)
	if err != nil {
		return err
	}
	for _, s := range suggestions {
		fmt.Printf("%s\t%s\t%s\n", s.Link, s.Path, s.Title)
	}
	return nil
}

func runResolve(_ context.Context, cmd *cli.Command) error {
	link, err := requireArg(cmd, "link")
	if err != nil {
		return err
	}
	e, err := openProject(cmd)
	if err != nil {
		return err
	}
	session, err := resolver.Load(e.store, e.cfg)
	if err != nil {
		return err
	}
	res, err := session.ResolveText(link, cmd.String("alias"))
	if err != nil {
		return err
	}
	if res.Ghost {
		fmt.Printf("ghost\t%s\n", res.Display)
		return nil
	}
	fmt.Printf("%s\t%s\t%s\n", res.Node.ID, res.Node.Path, res.Display)
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	e, err := openProject(cmd)
	if err != nil {
		return err
	}
	if p := cmd.Int("port"); p != 0 {
		e.cfg.Serve.Port = int(p)
	}
	return internal.Run(ctx,
		internal.WithRoot(e.root),
		internal.WithConfig(e.cfg),
		internal.WithLogger(e.logger),
		internal.WithVersion(version),
	)
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	e, err := openProject(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithRoot(e.root),
		internal.WithConfig(e.cfg),
		internal.WithLogger(e.logger),
		internal.WithVersion(version),
	)
}

func main() {
	cmd := &cli.Command{
		Name:    "omni",
		Usage:   "Personal knowledge graph over Typst and Markdown files",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"C"},
				Usage:   "Directory inside the project",
				Value:   ".",
				Sources: cli.EnvVars("OMNI_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error); defaults to [log] level",
				Sources: cli.EnvVars("OMNI_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Create a new project",
				ArgsUsage: "<dir>",
				Action:    runInit,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Project name (defaults to the directory name)"},
				},
			},
			{
				Name:      "new",
				Usage:     "Create a file from a template and track it",
				ArgsUsage: "<path>",
				Action:    runNew,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template name prefix", Value: "note"},
					&cli.StringFlag{Name: "title", Usage: "Title passed to the template"},
					&cli.BoolFlag{Name: "raw", Usage: "Treat path as a file-system path instead of a logical path"},
				},
			},
			{
				Name:      "track",
				Usage:     "Start tracking an existing file",
				ArgsUsage: "<file>",
				Action:    runTrack,
			},
			{
				Name:      "build",
				Usage:     "Build one tracked file, or every tracked file",
				ArgsUsage: "[file]",
				Action:    runBuild,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-compile", Usage: "Update the graph without rendering outputs"},
				},
			},
			{
				Name:   "links",
				Usage:  "Print the shortest unambiguous link for every node",
				Action: runLinks,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a link against the built graph",
				ArgsUsage: "<link>",
				Action:    runResolve,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "alias", Usage: "Display alias"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and rebuild on file changes",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "Override [serve] port"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if hint := apperr.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		} else if errors.Is(err, apperr.ErrMalformedState) {
			fmt.Fprintln(os.Stderr, "hint: check "+strings.Join([]string{project.UserDBFile, project.NodesFile, project.LinksFile}, ", "))
		}
		os.Exit(1)
	}
}
