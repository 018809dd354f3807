// Package testing provides SSH mock utilities for testing.
// This package simulates a remote machine with an in-memory filesystem.
package testing

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
)

// MockFS simulates an in-memory remote filesystem.
// It supports the operations deploy tasks rely on: mkdir, touch, ln, rm.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte   // path -> content
	dirs  map[string]struct{} // directories
}

// NewMockFS creates a new empty mock filesystem.
func NewMockFS() *MockFS {
	return &MockFS{
		files: make(map[string][]byte),
		dirs:  map[string]struct{}{"/": {}},
	}
}

// Mkdir creates a directory. Returns error if directory already exists.
// This mimics the behavior of `mkdir` (without -p flag).
func (fs *MockFS) Mkdir(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)

	if _, exists := fs.dirs[p]; exists {
		return errors.New("directory already exists")
	}
	if _, exists := fs.files[p]; exists {
		return errors.New("file exists at path")
	}

	fs.dirs[p] = struct{}{}
	return nil
}

// MkdirAll creates a directory and all parent directories.
// This mimics the behavior of `mkdir -p`.
func (fs *MockFS) MkdirAll(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.mkdirAll(path.Clean(p))
	return nil
}

func (fs *MockFS) mkdirAll(p string) {
	for p != "/" && p != "." {
		fs.dirs[p] = struct{}{}
		p = path.Dir(p)
	}
}

// WriteFile writes content to a file, creating parent directories as needed.
func (fs *MockFS) WriteFile(p string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	fs.mkdirAll(path.Dir(p))
	fs.files[p] = content
	return nil
}

// ReadFile reads the content of a file. Returns error if file doesn't exist.
func (fs *MockFS) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	content, exists := fs.files[path.Clean(p)]
	if !exists {
		return nil, errors.New("file not found")
	}
	return content, nil
}

// Remove removes a file or directory and all its contents.
// This mimics the behavior of `rm -rf`.
func (fs *MockFS) Remove(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	delete(fs.files, p)
	delete(fs.dirs, p)

	prefix := p + "/"
	for f := range fs.files {
		if strings.HasPrefix(f, prefix) {
			delete(fs.files, f)
		}
	}
	for d := range fs.dirs {
		if strings.HasPrefix(d, prefix) {
			delete(fs.dirs, d)
		}
	}

	return nil
}

// Exists returns true if the path exists (file or directory).
func (fs *MockFS) Exists(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)
	if _, exists := fs.dirs[p]; exists {
		return true
	}
	_, exists := fs.files[p]
	return exists
}

// IsDir returns true if the path exists and is a directory.
func (fs *MockFS) IsDir(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, exists := fs.dirs[path.Clean(p)]
	return exists
}

// IsFile returns true if the path exists and is a file.
func (fs *MockFS) IsFile(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, exists := fs.files[path.Clean(p)]
	return exists
}

// Files lists every file path, sorted.
func (fs *MockFS) Files() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]string, 0, len(fs.files))
	for f := range fs.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
