package inkwell

import (
	"path/filepath"
	"time"
)

// IgnorePolicy is the resolved exclusion-rules file for a run.
type IgnorePolicy struct {
	Path     string
	Patterns []string
}

// BackupRun is the context threaded through the backup pipeline.
// Each step receives a copy and returns an enriched copy; nothing else
// holds run state.
type BackupRun struct {
	ID string

	// Raw arguments as given on the command line.
	RawSource      string
	RawDestination string

	Source      string // absolute, validated source directory
	Destination string // absolute destination root
	Timestamp   time.Time

	Ignore IgnorePolicy

	StagingPath string
	FinalPath   string

	// Reference is the name of the latest committed snapshot used as the
	// hard-link reference, or "" on the first run.
	Reference string

	lock Lock
}

// SnapshotName returns the committed name of the snapshot this run produces.
func (r BackupRun) SnapshotName() string {
	return SnapshotName(r.Timestamp)
}

// ReferencePath returns the absolute path of the reference snapshot, or ""
// when there is none.
func (r BackupRun) ReferencePath() string {
	if r.Reference == "" {
		return ""
	}
	return filepath.Join(r.Destination, r.Reference)
}
