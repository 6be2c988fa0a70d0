package testutil

import (
	"fmt"
	"path/filepath"
	"strings"

	ifs "inkwell/internal/fs"
	"inkwell/internal/inkwell"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	IsDirectory bool
	Unreadable  bool
}

// MockFilesystemManager is an in-memory filesystem for testing.
type MockFilesystemManager struct {
	files map[string]*MockFile
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.files[path] = &MockFile{Content: content}
}

// AddUnreadableFile adds a file that exists but cannot be opened.
func (m *MockFilesystemManager) AddUnreadableFile(path string) {
	m.files[path] = &MockFile{Unreadable: true}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.files[path] = &MockFile{IsDirectory: true}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*inkwell.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}
	return inkwell.NewPath(absPath, file.IsDirectory), nil
}

func (m *MockFilesystemManager) IsReadableFile(path string) bool {
	file, ok := m.files[path]
	return ok && !file.IsDirectory && !file.Unreadable
}

func (m *MockFilesystemManager) ReadIgnorePatterns(path string) ([]string, error) {
	file, ok := m.files[path]
	if !ok || file.IsDirectory || file.Unreadable {
		return nil, fmt.Errorf("cannot read ignore file: %s", path)
	}
	lines := strings.Split(string(file.Content), "\n")
	return ifs.EffectivePatterns(lines), nil
}

// Compile-time check
var _ inkwell.FilesystemManager = (*MockFilesystemManager)(nil)
