package internal

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/project"
)

func TestNewApplication_Required(t *testing.T) {
	_, err := newApplication(nil)
	assert.ErrorIs(t, err, errRootRequired)

	_, err = newApplication([]Option{WithRoot(t.TempDir())})
	assert.ErrorIs(t, err, errConfigRequired)
}

func TestNewApplication_Defaults(t *testing.T) {
	cfg := project.NewDefaultConfig()
	app, err := newApplication([]Option{WithRoot("/kb"), WithConfig(cfg)})
	require.NoError(t, err)
	assert.NotNil(t, app.logger, "logger defaults to slog.Default()")
	assert.Equal(t, "dev", app.version)
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("build: hidden")
	logger.Warn("build: shown", slog.String("path", "src/a.typ"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"build: shown"`)
	assert.Contains(t, out, `"path":"src/a.typ"`)
}
