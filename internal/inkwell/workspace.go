package inkwell

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Workspace manages the destination root and its current pointer.
type Workspace struct {
	idgen IDGenerator
}

// NewWorkspace creates a Workspace. idgen names the temporary link used
// while repointing current.
func NewWorkspace(idgen IDGenerator) *Workspace {
	return &Workspace{idgen: idgen}
}

// Prepare creates dest and any missing parents, then checks that the result
// is a writable directory. It is safe to call on an existing destination.
func (w *Workspace) Prepare(dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("%w %s: %w", ErrDirectoryCreate, dest, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrDirectoryCreate, dest, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w %s: not a directory", ErrDirectoryCreate, dest)
	}

	if err := unix.Access(dest, unix.W_OK); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDestinationUnwritable, dest, err)
	}
	return nil
}

// ReadCurrent returns the snapshot name the current link points at, or ""
// when the link does not exist.
func (w *Workspace) ReadCurrent(dest string) (string, error) {
	target, err := os.Readlink(filepath.Join(dest, CurrentLinkName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading current link: %w", err)
	}
	return filepath.Base(filepath.Clean(target)), nil
}

// RepointCurrent makes the current link name snapshotName.
// The new link is created under a temporary name and renamed over the old
// one, so readers see either the old target or the new one.
func (w *Workspace) RepointCurrent(dest string, snapshotName string) error {
	link := filepath.Join(dest, CurrentLinkName)
	tmp := filepath.Join(dest, CurrentLinkName+".tmp-"+w.idgen.New())

	if err := os.Symlink(snapshotName, tmp); err != nil {
		return fmt.Errorf("creating temporary link: %w", err)
	}

	if err := os.Rename(tmp, link); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing current link: %w", err)
	}
	return nil
}
