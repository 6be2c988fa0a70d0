// Package lock provides the advisory lock that keeps two inkwell runs from
// writing to the same destination root at once.
package lock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"inkwell/internal/inkwell"
)

// FileLocker locks a destination by taking an exclusive flock on
// <dest>/.inkwell.lock. The lock file is left behind after release; only the
// flock itself carries meaning.
type FileLocker struct{}

// NewFileLocker creates a FileLocker.
func NewFileLocker() *FileLocker {
	return &FileLocker{}
}

// TryLock acquires the destination lock without blocking.
func (l *FileLocker) TryLock(dest string) (inkwell.Lock, error) {
	path := filepath.Join(dest, inkwell.LockFileName)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", inkwell.ErrDestinationLocked, path)
	}
	return &fileLock{fl: fl}, nil
}

type fileLock struct {
	fl *flock.Flock
}

func (l *fileLock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.fl.Path(), err)
	}
	return nil
}

// Compile-time check that FileLocker implements inkwell.Locker interface
var _ inkwell.Locker = (*FileLocker)(nil)
