// Package rsync implements the snapshot sync step by shelling out to rsync.
package rsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"inkwell/internal/inkwell"
)

// DefaultBinary is the rsync executable looked up on PATH.
const DefaultBinary = "rsync"

// Syncer runs rsync in mirror mode with hard-link reuse of the reference
// snapshot. It never retries: a partial transfer is reported as a failure
// and the staging directory is left for inspection.
type Syncer struct {
	binary    string
	extraArgs []string
	timeout   time.Duration
	logger    inkwell.Logger
}

// NewSyncer creates a Syncer. extraArgs are inserted before the source and
// destination operands. A zero timeout means no limit beyond ctx.
func NewSyncer(binary string, extraArgs []string, timeout time.Duration, logger inkwell.Logger) *Syncer {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Syncer{
		binary:    binary,
		extraArgs: extraArgs,
		timeout:   timeout,
		logger:    logger,
	}
}

// Args builds the rsync argument list for req.
//
// The source gets a trailing slash so its contents, not the directory
// itself, land in the staging directory.
func (s *Syncer) Args(req inkwell.SyncRequest) []string {
	args := []string{
		"--archive",
		"--delete",
		"--delete-excluded",
		"--exclude-from=" + req.ExcludeFile,
	}
	if req.LinkDest != "" {
		args = append(args, "--link-dest="+req.LinkDest)
	}
	args = append(args, s.extraArgs...)
	args = append(args, withTrailingSlash(req.Source), withTrailingSlash(req.Destination))
	return args
}

// Sync runs rsync for req and waits for it to finish.
func (s *Syncer) Sync(ctx context.Context, req inkwell.SyncRequest) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := s.Args(req)
	cmd := exec.CommandContext(ctx, s.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("running rsync", "command", s.binary+" "+strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if desc := ExitCodeDescription(exitCode); desc != "" {
			err = fmt.Errorf("%s: %w", desc, err)
		}
		return &inkwell.SyncError{
			Command:  append([]string{s.binary}, args...),
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	s.logger.Debug("rsync finished", "duration", time.Since(start).Truncate(time.Millisecond).String())
	if out := strings.TrimSpace(stdout.String()); out != "" {
		s.logger.Debug("rsync output", "output", out)
	}
	return nil
}

// exitCodes are rsync's documented exit values.
var exitCodes = map[int]string{
	1:  "syntax or usage error",
	2:  "protocol incompatibility",
	3:  "errors selecting input/output files, dirs",
	4:  "requested action not supported",
	5:  "error starting client-server protocol",
	10: "error in socket I/O",
	11: "error in file I/O",
	12: "error in rsync protocol data stream",
	13: "errors with program diagnostics",
	14: "error in IPC code",
	20: "received SIGUSR1 or SIGINT",
	21: "some error returned by waitpid()",
	22: "error allocating core memory buffers",
	23: "partial transfer due to error",
	24: "partial transfer due to vanished source files",
	25: "the --max-delete limit stopped deletions",
	30: "timeout in data send/receive",
	35: "timeout waiting for daemon connection",
}

// ExitCodeDescription returns rsync's meaning for an exit code, or "".
func ExitCodeDescription(code int) string {
	return exitCodes[code]
}

func withTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// Compile-time check that Syncer implements inkwell.Syncer interface
var _ inkwell.Syncer = (*Syncer)(nil)
