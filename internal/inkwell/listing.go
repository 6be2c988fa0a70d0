package inkwell

import (
	"fmt"
	"path/filepath"
)

// SnapshotListing describes the state of a destination root.
type SnapshotListing struct {
	Destination string
	Snapshots   []string // committed, oldest first
	Current     string   // target of the current link, "" if absent
	Staging     []string // incomplete snapshots left by failed runs
}

// Latest returns the newest committed snapshot, or "".
func (l *SnapshotListing) Latest() string {
	if len(l.Snapshots) == 0 {
		return ""
	}
	return l.Snapshots[len(l.Snapshots)-1]
}

// ListDestination reports the committed snapshots, current link and leftover
// staging directories under dest. It never modifies dest.
func (s *Service) ListDestination(dest string) (*SnapshotListing, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolving destination: %w", err)
	}

	snapshots, err := ListSnapshots(abs)
	if err != nil {
		return nil, err
	}
	staging, err := ListStaging(abs)
	if err != nil {
		return nil, err
	}
	current, err := s.workspace.ReadCurrent(abs)
	if err != nil {
		return nil, err
	}

	return &SnapshotListing{
		Destination: abs,
		Snapshots:   snapshots,
		Current:     current,
		Staging:     staging,
	}, nil
}

// GetHistory returns the most recent backup runs, newest first.
func (s *Service) GetHistory(limit int) ([]*RunRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("run history is not configured")
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing backup runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the recorded run with the given run ID.
func (s *Service) GetRun(runID string) (*RunRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("run history is not configured")
	}
	run, err := s.store.FindRun(runID)
	if err != nil {
		return nil, fmt.Errorf("finding backup run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("no backup run with id %s", runID)
	}
	return run, nil
}
