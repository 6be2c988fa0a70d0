package inkwell

import (
	"fmt"
	"path/filepath"
)

// FindIgnoreFile looks for a readable file called name in dir and then in each
// ancestor of dir, returning the first absolute path found. The search stops
// at the filesystem root, where the parent of a directory is itself.
func FindIgnoreFile(fsmgr FilesystemManager, dir string, name string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	for {
		candidate := filepath.Join(current, name)
		if fsmgr.IsReadableFile(candidate) {
			return candidate, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: no %s in %s or any parent directory", ErrIgnorePolicyNotFound, name, dir)
		}
		current = parent
	}
}

// LoadIgnorePolicy locates the ignore file for source and reads its patterns.
func LoadIgnorePolicy(fsmgr FilesystemManager, source string, name string) (IgnorePolicy, error) {
	path, err := FindIgnoreFile(fsmgr, source, name)
	if err != nil {
		return IgnorePolicy{}, err
	}

	patterns, err := fsmgr.ReadIgnorePatterns(path)
	if err != nil {
		return IgnorePolicy{}, fmt.Errorf("reading ignore policy %s: %w", path, err)
	}

	return IgnorePolicy{Path: path, Patterns: patterns}, nil
}
