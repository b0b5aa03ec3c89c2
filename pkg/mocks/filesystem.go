// Package mocks provides mock implementations for testing.
package mocks

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/user/cliprec/pkg/ports"
)

// FileSystem is an in-memory implementation of ports.FileSystem.
// Missing files produce errors that satisfy errors.Is(err, os.ErrNotExist).
type FileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool

	ReadFileFunc  func(path string) ([]byte, error)
	WriteFileFunc func(path string, data []byte) error
	MkdirAllFunc  func(path string) error
	ExistsFunc    func(path string) (bool, error)
	RenameFunc    func(from, to string) error
	RemoveFunc    func(path string) error

	// Removed records every successful Remove call in order.
	Removed []string
}

// NewFileSystem creates a new mock FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func notExist(op, p string) error {
	return &os.PathError{Op: op, Path: p, Err: os.ErrNotExist}
}

func (m *FileSystem) ReadFile(p string) ([]byte, error) {
	if m.ReadFileFunc != nil {
		return m.ReadFileFunc(p)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if data, ok := m.files[p]; ok {
		return append([]byte(nil), data...), nil
	}
	return nil, notExist("read", p)
}

func (m *FileSystem) WriteFile(p string, data []byte) error {
	if m.WriteFileFunc != nil {
		return m.WriteFileFunc(p, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = append([]byte(nil), data...)
	return nil
}

func (m *FileSystem) WriteFileAtomic(p string, data []byte) error {
	return m.WriteFile(p, data)
}

func (m *FileSystem) Open(p string) (io.ReadCloser, error) {
	data, err := m.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *FileSystem) Size(p string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[p]
	if !ok {
		return 0, notExist("stat", p)
	}
	return int64(len(data)), nil
}

func (m *FileSystem) MkdirAll(p string) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[p] = true
	return nil
}

func (m *FileSystem) Exists(p string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(p)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[p]; ok {
		return true, nil
	}
	if _, ok := m.dirs[p]; ok {
		return true, nil
	}
	return false, nil
}

func (m *FileSystem) Rename(from, to string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[from]
	if !ok {
		return notExist("rename", from)
	}
	m.files[to] = data
	delete(m.files, from)
	return nil
}

func (m *FileSystem) Remove(p string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, p)
	delete(m.dirs, p)
	m.Removed = append(m.Removed, p)
	return nil
}

func (m *FileSystem) Glob(pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []string
	for p := range m.files {
		ok, err := path.Match(pattern, p)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, p)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// GetFile returns the contents of a file (for test verification).
func (m *FileSystem) GetFile(p string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[p]
	return data, ok
}

// GetAllFiles returns all files (for test verification).
func (m *FileSystem) GetAllFiles() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string][]byte)
	for k, v := range m.files {
		result[k] = v
	}
	return result
}

var _ ports.FileSystem = (*FileSystem)(nil)
