package inkwell

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for every way a backup run can abort.
// Callers test for them with errors.Is.
var (
	// ErrUsage indicates the command line was missing the source or destination.
	ErrUsage = errors.New("usage: inkwell SOURCE DESTINATION")

	// ErrNotADirectory indicates the source does not exist or is not a directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIgnorePolicyNotFound indicates no ignore file exists in the source or any ancestor.
	ErrIgnorePolicyNotFound = errors.New("ignore policy not found")

	// ErrDirectoryCreate indicates the destination root could not be created.
	ErrDirectoryCreate = errors.New("unable to create directory")

	// ErrDestinationUnwritable indicates the destination root exists but cannot be written.
	ErrDestinationUnwritable = errors.New("destination is not writable")

	// ErrDestinationLocked indicates another run holds the destination lock.
	ErrDestinationLocked = errors.New("destination is locked by another run")

	// ErrSyncFailed indicates the content sync did not complete successfully.
	ErrSyncFailed = errors.New("sync failed")

	// ErrCommitFailed indicates the staged snapshot could not be promoted or the
	// current pointer could not be moved.
	ErrCommitFailed = errors.New("commit failed")
)

// StepError records which pipeline step aborted a run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// SyncError describes a failed invocation of the external sync tool.
// It matches ErrSyncFailed as well as the underlying exec error.
type SyncError struct {
	Command  []string
	ExitCode int // -1 when the process never produced an exit status
	Stderr   string
	Err      error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", commandName(e.Command), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SyncError) Unwrap() []error {
	return []error{ErrSyncFailed, e.Err}
}

func commandName(cmd []string) string {
	if len(cmd) == 0 {
		return "sync"
	}
	return cmd[0]
}
