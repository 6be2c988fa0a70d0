package inkwell

import (
	"database/sql"
	"time"
)

// Run statuses recorded in the run history.
const (
	RunStatusRunning   = "running"
	RunStatusSuccess   = "success"
	RunStatusError     = "error"
	RunStatusCancelled = "cancelled"
)

// RunRecord is one backup run as stored in the run history.
type RunRecord struct {
	ID          int64
	RunID       string
	Source      string
	Destination string
	Snapshot    string
	Reference   string
	Status      string
	Error       string
	StartedAt   time.Time
	FinishedAt  sql.NullTime
}

// RunOutcome is what is known about a run once it has finished.
type RunOutcome struct {
	Snapshot   string
	Reference  string
	Status     string
	Error      string
	FinishedAt time.Time
}

// RunStore persists the history of backup runs.
type RunStore interface {
	// CreateRun records a run as started and returns it with its assigned ID.
	CreateRun(runID, source, destination string, startedAt time.Time) (*RunRecord, error)

	// FinishRun records the outcome of a previously created run.
	FinishRun(id int64, outcome RunOutcome) error

	// ListRuns returns at most limit runs, newest first.
	ListRuns(limit int) ([]*RunRecord, error)

	// FindRun returns the run with the given run ID, or nil if there is none.
	FindRun(runID string) (*RunRecord, error)

	// Close closes the underlying storage.
	Close() error
}
