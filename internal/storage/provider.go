// Package storage is the spool directory abstraction.
package storage

import (
	"errors"

	"github.com/starford/promptdb/internal/models"
)

// ErrExists is returned by Move when the destination is already taken.
var ErrExists = errors.New("storage: destination exists")

// Provider is the interface for spool file operations. Paths are relative
// to the spool root.
type Provider interface {
	// List returns every request document (.yaml/.yml) directly inside dir.
	// Subdirectories are not descended into.
	List(dir string) ([]models.SpoolFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// Move renames oldPath to newPath, creating parent directories. It
	// never replaces an existing file and returns ErrExists instead.
	Move(oldPath, newPath string) error
}
