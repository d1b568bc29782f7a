// Package fsutil opens and creates run files, reporting failures as FileOpenError.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileOpenError reports an input file that cannot be read or an output file
// that cannot be created.
type FileOpenError struct {
	Op   string // "open" or "create"
	Path string
	Err  error
}

func (e *FileOpenError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileOpenError) Unwrap() error { return e.Err }

// Open opens path for reading.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileOpenError{Op: "open", Path: path, Err: err}
	}
	return f, nil
}

// Create creates or truncates path for writing.
func Create(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &FileOpenError{Op: "create", Path: path, Err: err}
	}
	return f, nil
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &FileOpenError{Op: "create", Path: dir, Err: err}
	}
	return nil
}

// Join is filepath.Join, treating an empty dir as the working directory.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
