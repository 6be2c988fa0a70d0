package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"inkwell/internal/inkwell"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*inkwell.Path, error) {
	// Convert to absolute path; this also strips any trailing slash.
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	// Check for special file types we don't support
	mode := info.Mode()
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return inkwell.NewPath(absPath, info.IsDir()), nil
}

// IsReadableFile reports whether path is a regular file we can open.
func (m *OSFilesystemManager) IsReadableFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ReadIgnorePatterns returns the effective patterns of an ignore file.
func (m *OSFilesystemManager) ReadIgnorePatterns(path string) ([]string, error) {
	lines, err := ParseIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	return EffectivePatterns(lines), nil
}

// Compile-time check that OSFilesystemManager implements inkwell.FilesystemManager interface
var _ inkwell.FilesystemManager = (*OSFilesystemManager)(nil)
