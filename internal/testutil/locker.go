package testutil

import (
	"sync"

	"inkwell/internal/inkwell"
)

// MemoryLocker is an in-process inkwell.Locker keyed by destination path.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLocker creates a MemoryLocker with no locks held.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

func (l *MemoryLocker) TryLock(dest string) (inkwell.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[dest] {
		return nil, inkwell.ErrDestinationLocked
	}
	l.held[dest] = true
	return &memoryLock{locker: l, dest: dest}, nil
}

// Held reports whether dest is currently locked.
func (l *MemoryLocker) Held(dest string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[dest]
}

type memoryLock struct {
	locker *MemoryLocker
	dest   string
}

func (m *memoryLock) Release() error {
	m.locker.mu.Lock()
	defer m.locker.mu.Unlock()
	delete(m.locker.held, m.dest)
	return nil
}

var _ inkwell.Locker = (*MemoryLocker)(nil)
