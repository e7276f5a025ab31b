// Package project describes an omni project on disk: its omni.toml
// configuration and the fixed layout of files around it.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	pkgconfig "github.com/starford/omni/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Output is a single render target.
type Output string

const (
	OutputHTML Output = "html"
	OutputPDF  Output = "pdf"
)

// OutputFormat selects which outputs a compile step produces.
type OutputFormat string

const (
	FormatHTML        OutputFormat = "html"
	FormatPDF         OutputFormat = "pdf"
	FormatHTMLAndPDF  OutputFormat = "html+pdf"
	defaultOutputForm              = FormatHTML
)

// Outputs expands the format into the individual outputs to render.
func (f OutputFormat) Outputs() []Output {
	switch f {
	case FormatPDF:
		return []Output{OutputPDF}
	case FormatHTMLAndPDF:
		return []Output{OutputHTML, OutputPDF}
	default:
		return []Output{OutputHTML}
	}
}

// Config represents omni.toml.
type Config struct {
	Project    ProjectConfig     `toml:"project"`
	DirAliases map[string]string `toml:"dir_aliases"`
	Build      BuildConfig       `toml:"build"`
	Log        LogConfig         `toml:"log"`
	Serve      ServeConfig       `toml:"serve"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Project.Validate(); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if err := c.validateAliases(); err != nil {
		return err
	}
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return c.Serve.Validate()
}

func (c *Config) validateAliases() error {
	for name, target := range c.DirAliases {
		if name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("dir_aliases: invalid alias name %q", name)
		}
		if strings.Trim(target, "/") == "" {
			return fmt.Errorf("dir_aliases: alias %q has an empty target", name)
		}
	}
	return nil
}

// ContentDir returns the directory, relative to the project root, that holds
// all tracked content. It is "." when no prefix dir is configured.
func (c *Config) ContentDir() string {
	if c.Project.PrefixDir == "" {
		return "."
	}
	return filepath.FromSlash(c.Project.PrefixDir)
}

// ProjectConfig holds the [project] section.
type ProjectConfig struct {
	Name string `toml:"name"`
	// PrefixDir is a single directory under which all content lives.
	PrefixDir string `toml:"prefix_dir"`
}

// Validate validates the project section.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.PrefixDir, validation.By(singleComponent)),
	)
}

func singleComponent(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if strings.Contains(s, "/") || s == "." || s == ".." {
		return errors.New("must be a single directory name")
	}
	return nil
}

// BuildConfig holds the [build] section.
type BuildConfig struct {
	OutputFormat OutputFormat `toml:"output_format"`
	// Workers bounds the parallel compile pass of a full build.
	Workers  int    `toml:"workers"`
	TypstBin string `toml:"typst_bin"`
}

// Validate validates the build section.
func (c *BuildConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputFormat, validation.Required, validation.In(FormatHTML, FormatPDF, FormatHTMLAndPDF)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.TypstBin, validation.Required),
	)
}

// LogConfig holds the [log] section.
type LogConfig struct {
	Level slog.Level `toml:"level"`
}

// ServeConfig holds the [serve] section used by `omni serve`.
type ServeConfig struct {
	Port int        `toml:"port"`
	DB   string     `toml:"db"`
	Auth AuthConfig `toml:"auth"`
}

// Address returns HTTP server address.
func (c *ServeConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the serve section.
func (c *ServeConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DB, validation.Required),
	); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return c.Auth.Validate()
}

// AuthConfig holds authentication configuration for the HTTP surface.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `toml:"mode"`
	Token string `toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a Config with default values for every section
// except the project name.
func NewDefaultConfig() *Config {
	return &Config{
		DirAliases: map[string]string{},
		Build: BuildConfig{
			OutputFormat: defaultOutputForm,
			Workers:      runtime.NumCPU(),
			TypstBin:     "typst",
		},
		Log: LogConfig{Level: slog.LevelInfo},
		Serve: ServeConfig{
			Port: 8080,
			DB:   IndexFile,
			Auth: AuthConfig{Mode: AuthModeDisabled},
		},
	}
}

// Load reads omni.toml from root on top of the defaults.
func Load(root string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(filepath.Join(root, ConfigFile), cfg); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return cfg, nil
}

// Parse decodes raw omni.toml content on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Decode(data, ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return cfg, nil
}
