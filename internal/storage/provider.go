// Package storage defines the file-system abstraction for source and
// destination trees.
package storage

import "github.com/starford/vimwiki2neorg/internal/models"

// Provider is the interface for file operations under one root directory.
// All paths are relative to that root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns metadata for every file under dir whose name ends in suffix.
	List(dir, suffix string) ([]models.SourceFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
}
