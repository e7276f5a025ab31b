package internal

import (
	"log/slog"

	"github.com/starford/omni/internal/project"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	root    string
	config  *project.Config
	logger  *slog.Logger
	version string
}

// WithRoot sets the project root directory.
func WithRoot(root string) Option {
	return func(a *application) {
		a.root = root
	}
}

// WithConfig sets the project configuration.
func WithConfig(cfg *project.Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.root == "" {
		return nil, errRootRequired
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	if app.logger == nil {
		app.logger = slog.Default()
	}
	return app, nil
}
