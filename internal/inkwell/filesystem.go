package inkwell

// FilesystemManager abstracts the read-only source-side filesystem access the
// engine needs: validating the source and discovering the ignore policy.
// The destination side always operates on the real filesystem.
type FilesystemManager interface {
	// Resolve converts rawPath to an absolute path, stats it, and rejects
	// special files (devices, pipes, sockets).
	Resolve(rawPath string) (*Path, error)

	// IsReadableFile reports whether path names a regular file that can be
	// opened for reading.
	IsReadableFile(path string) bool

	// ReadIgnorePatterns returns the effective patterns from an ignore file,
	// with blank lines and comments removed.
	ReadIgnorePatterns(path string) ([]string, error)
}
