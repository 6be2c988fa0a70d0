package app

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/inkwell"
)

// BackupOperation tracks one backup run as it is recorded in the run history.
// It is created in memory with ID=0 and gets its ID once the run store has
// accepted it.
type BackupOperation struct {
	ID          int64
	RunID       string
	Source      string
	Destination string
	Status      string
}

// NewBackupOperation creates a new in-memory backup operation.
func NewBackupOperation(runID, source, destination string) *BackupOperation {
	return &BackupOperation{
		RunID:       runID,
		Source:      source,
		Destination: destination,
		Status:      inkwell.RunStatusRunning,
	}
}

// Outcome summarizes a finished run for the run store.
func (op *BackupOperation) Outcome(run inkwell.BackupRun, err error, finishedAt time.Time) inkwell.RunOutcome {
	op.Status = statusFor(err)

	out := inkwell.RunOutcome{
		Reference:  run.Reference,
		Status:     op.Status,
		FinishedAt: finishedAt,
	}
	if !run.Timestamp.IsZero() {
		out.Snapshot = run.SnapshotName()
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// statusFor maps a run error to the status recorded in the run history.
func statusFor(err error) string {
	switch {
	case err == nil:
		return inkwell.RunStatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return inkwell.RunStatusCancelled
	default:
		return inkwell.RunStatusError
	}
}
