package inkwell

// Locker grants exclusive access to a destination root.
type Locker interface {
	// TryLock acquires the destination lock without waiting. It fails with
	// ErrDestinationLocked when another run holds it.
	TryLock(dest string) (Lock, error)
}

// Lock is a held destination lock.
type Lock interface {
	Release() error
}
