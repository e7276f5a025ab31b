// Package storage defines the project file-system abstraction.
package storage

import "io/fs"

// Provider is the interface for project file operations. All paths are
// relative to the project root and slash separated.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent dirs.
	Write(path string, content []byte) error
	// Stat describes the file at path.
	Stat(path string) (fs.FileInfo, error)
	// List returns every file under dir whose extension is in exts
	// (all files when exts is empty).
	List(dir string, exts ...string) ([]string, error)
}
