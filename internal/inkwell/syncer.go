package inkwell

import "context"

// SyncRequest describes one content sync into a staging directory.
type SyncRequest struct {
	Source      string // source directory; its contents are copied, not the directory itself
	Destination string // staging directory, created by the syncer if missing
	ExcludeFile string // ignore policy file consumed verbatim
	LinkDest    string // previous snapshot to hard-link unchanged files from; "" for none
}

// Syncer materializes a staged snapshot. Implementations must mirror the
// source: anything missing from the source or excluded is absent from the
// destination. A non-nil error means the staging directory must not be
// committed.
type Syncer interface {
	Sync(ctx context.Context, req SyncRequest) error
}
