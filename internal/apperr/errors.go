// Package apperr holds sentinel errors shared across packages and a small
// helper for attaching remediation hints to errors.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrAlreadyTracked  = errors.New("file is already tracked")
	ErrOutsideRoot     = errors.New("path is outside the project content directory")
	ErrFileNotFound    = errors.New("file not found")
	ErrIsDirectory     = errors.New("path is a directory")
	ErrMalformedState  = errors.New("malformed project state")
	ErrNoProjectRoot   = errors.New("no project root found")
	ErrTemplateMissing = errors.New("template not found")
)

type hinted struct {
	err  error
	hint string
}

func (h *hinted) Error() string { return h.err.Error() }
func (h *hinted) Unwrap() error { return h.err }

// WithHint wraps err with a hint the user can act on.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return &hinted{err: err, hint: hint}
}

// Hint returns the outermost hint attached to err, or "".
func Hint(err error) string {
	var h *hinted
	if errors.As(err, &h) {
		return h.hint
	}
	return ""
}
