package ports

import "io"

// FileSystem abstracts the file operations of the recorder and stitcher.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating it if necessary.
	WriteFile(path string, data []byte) error

	// WriteFileAtomic writes data to a sibling temporary file and renames it
	// over path, so readers never observe a partial file.
	WriteFileAtomic(path string, data []byte) error

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Size returns the size of a file in bytes.
	Size(path string) (int64, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Rename moves a file, replacing the destination.
	Rename(from, to string) error

	// Remove deletes a file. Removing a missing file is not an error.
	Remove(path string) error

	// Glob returns the paths matching pattern.
	Glob(pattern string) ([]string, error)
}
