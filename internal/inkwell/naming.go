package inkwell

import (
	"fmt"
	"strings"
	"time"
)

const (
	// SnapshotPrefix marks a committed snapshot directory.
	SnapshotPrefix = "back-"

	// StagingPrefix marks a snapshot that is still being written.
	StagingPrefix = "incomplete-" + SnapshotPrefix

	// CurrentLinkName is the symlink naming the latest committed snapshot.
	CurrentLinkName = "current"

	// LockFileName is the advisory lock file held while a run mutates the destination.
	LockFileName = ".inkwell.lock"

	// DefaultIgnoreFileName is the ignore policy file searched for from the source upward.
	DefaultIgnoreFileName = ".inkwellignore"

	// TimestampLayout is fixed-width, 24-hour and zero padded so that
	// lexicographic order of snapshot names equals chronological order.
	TimestampLayout = "2006-01-02.15-04-05"
)

// FormatTimestamp encodes t (in UTC) with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SnapshotName returns the committed directory name for a run started at t.
func SnapshotName(t time.Time) string {
	return SnapshotPrefix + FormatTimestamp(t)
}

// StagingName returns the staging directory name for a run started at t.
func StagingName(t time.Time) string {
	return StagingPrefix + FormatTimestamp(t)
}

// IsSnapshotName reports whether name carries the committed snapshot marker.
// Staging names start with "incomplete-" and never match.
func IsSnapshotName(name string) bool {
	return strings.HasPrefix(name, SnapshotPrefix)
}

// IsStagingName reports whether name carries the staging marker.
func IsStagingName(name string) bool {
	return strings.HasPrefix(name, StagingPrefix)
}

// SnapshotTime parses the timestamp out of a committed or staging name.
// Only the exact fixed-width encoding is accepted.
func SnapshotTime(name string) (time.Time, error) {
	var ts string
	switch {
	case IsStagingName(name):
		ts = strings.TrimPrefix(name, StagingPrefix)
	case IsSnapshotName(name):
		ts = strings.TrimPrefix(name, SnapshotPrefix)
	default:
		return time.Time{}, fmt.Errorf("not a snapshot name: %s", name)
	}

	t, err := time.ParseInLocation(TimestampLayout, ts, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing snapshot timestamp %q: %w", ts, err)
	}
	if FormatTimestamp(t) != ts {
		return time.Time{}, fmt.Errorf("snapshot timestamp %q is not in %s form", ts, TimestampLayout)
	}
	return t, nil
}
