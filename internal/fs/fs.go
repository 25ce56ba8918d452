// Package fs provides the filesystem seam the storage engine works through.
//
// The main types are:
//   - [FS]: interface for the filesystem operations the engine needs
//   - [File]: interface for open files (satisfied by [os.File])
//   - [Real]: production implementation using the [os] package
//
// The engine never touches the [os] package directly; everything goes
// through an [FS] so storage code can be exercised against a temp directory
// in tests and so callers control the primitives.
package fs

import (
	"io"
	"os"
)

// File represents an open file descriptor.
//
// Satisfied by [os.File] and usable with all standard library functions
// that accept [io.Reader], [io.Writer] or [io.Closer].
type File interface {
	io.ReadWriteCloser

	// Stat returns the [os.FileInfo] for this file. See [os.File.Stat].
	Stat() (os.FileInfo, error)

	// Sync commits the file's contents to disk. See [os.File.Sync].
	Sync() error
}

// FS defines the filesystem operations for reading, writing and enumerating
// storage files. All methods mirror their [os] package equivalents.
type FS interface {
	// Open opens a file for reading. See [os.Open].
	Open(path string) (File, error)

	// OpenFile opens a file with specified flags and permissions. See
	// [os.OpenFile]. Used for append-only and exclusive-create access.
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic writes data to a file atomically.
	// Uses a temp file + rename to prevent partial writes on crash.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// ReadDir reads a directory and returns its entries sorted by name.
	// See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a file or directory exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error
}

// Compile-time interface checks.
var _ File = (*os.File)(nil)
