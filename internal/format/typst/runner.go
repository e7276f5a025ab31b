// Package typst drives the typst compiler to extract omni metadata from
// .typ files and to render them.
package typst

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"

	"github.com/starford/omni/internal/project"
)

// ErrMissingTypst means the typst executable could not be found.
var ErrMissingTypst = errors.New("typst: executable not found")

// ExitError is returned when typst exits with a non-zero status. Stderr is
// only captured in silent mode.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("typst %s exited with code %d", e.Command, e.Code)
	}
	return fmt.Sprintf("typst %s exited with code %d: %s", e.Command, e.Code, e.Stderr)
}

// QueryParams tunes a `typst query` call.
type QueryParams struct {
	Output project.Output
	// Silent captures stderr into the returned error instead of passing it
	// through to the terminal.
	Silent bool
	One    bool
	Field  string
}

// Runner invokes the typst binary.
type Runner struct {
	Bin string
}

// NewRunner returns a runner for bin, defaulting to "typst" on $PATH.
func NewRunner(bin string) *Runner {
	if bin == "" {
		bin = "typst"
	}
	return &Runner{Bin: bin}
}

// Query runs `typst query` on target and decodes its JSON output into v.
func (r *Runner) Query(ctx context.Context, root, target, selector string, p QueryParams, v any) error {
	args := []string{"query", target, selector, "--root", root, "--format", "json"}
	if p.One {
		args = append(args, "--one")
	}
	if p.Field != "" {
		args = append(args, "--field", p.Field)
	}
	switch p.Output {
	case project.OutputPDF:
		args = append(args, "--target", "paged")
	default:
		args = append(args, "--target", "html", "--features", "html")
	}

	out, err := r.run(ctx, root, "query", p.Silent, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("typst: decode query %s: %w", selector, err)
	}
	return nil
}

// Compile renders target into out.
func (r *Runner) Compile(ctx context.Context, root, target, out string, output project.Output, silent bool) error {
	args := []string{"compile", target, out, "--root", root, "--format", string(output)}
	if output == project.OutputHTML {
		args = append(args, "--features", "html")
	}
	_, err := r.run(ctx, root, "compile", silent, args)
	return err
}

func (r *Runner) run(ctx context.Context, dir, command string, silent bool, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if silent {
		cmd.Stderr = &stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrMissingTypst, r.Bin)
	case errors.As(err, &exitErr):
		return nil, &ExitError{Command: command, Code: exitErr.ExitCode(), Stderr: stderr.String()}
	default:
		return nil, fmt.Errorf("typst: %s: %w", command, err)
	}
}
