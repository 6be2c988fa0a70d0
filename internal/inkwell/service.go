package inkwell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Options tunes how a Service resolves paths for a run.
type Options struct {
	// IgnoreFileName is the ignore policy file searched for from the source
	// upward. Defaults to DefaultIgnoreFileName.
	IgnoreFileName string

	// NestSourceBasename stores snapshots under <dest>/<basename(source)>
	// instead of directly under dest.
	NestSourceBasename bool
}

// Service is the orchestration layer: it runs the backup state machine
// against a destination and answers questions about its history.
type Service struct {
	fsmgr     FilesystemManager
	syncer    Syncer
	locker    Locker
	workspace *Workspace
	store     RunStore
	logger    Logger
	clock     Clock
	opts      Options
}

// NewService creates a new Service with the provided dependencies.
// store may be nil if run history is not needed.
func NewService(fsmgr FilesystemManager, syncer Syncer, locker Locker, store RunStore, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = DefaultIgnoreFileName
	}
	return &Service{
		fsmgr:     fsmgr,
		syncer:    syncer,
		locker:    locker,
		workspace: NewWorkspace(idgen),
		store:     store,
		logger:    logger,
		clock:     clock,
		opts:      opts,
	}
}

// Backup takes one snapshot of source into dest.
//
// The returned run holds whatever the pipeline resolved before it stopped,
// which is useful for reporting even when err is non-nil. A failed run never
// changes committed history or the current link; its staging directory, if
// one was written, is left in place for inspection.
func (s *Service) Backup(ctx context.Context, runID, source, dest string) (BackupRun, error) {
	run := BackupRun{
		ID:             runID,
		RawSource:      source,
		RawDestination: dest,
	}

	steps := []step{
		{StepValidateSource, s.validateSource},
		{StepResolvePaths, s.resolvePaths},
		{StepResolveIgnore, s.resolveIgnorePolicy},
		{StepPrepareWorkspace, s.prepareWorkspace},
		{StepAcquireLock, s.acquireLock},
		{StepResolveReference, s.resolveReference},
		{StepStage, s.stage},
		{StepCommit, s.commit},
		{StepRepointCurrent, s.repointCurrent},
	}

	run, err := runSteps(ctx, run, steps, s.logger)

	if run.lock != nil {
		if releaseErr := run.lock.Release(); releaseErr != nil {
			s.logger.Warn("releasing destination lock", "error", releaseErr)
		}
		run.lock = nil
	}

	if err != nil {
		s.logger.Error("backup aborted", "error", err)
		if run.StagingPath != "" {
			if _, statErr := os.Stat(run.StagingPath); statErr == nil {
				s.logger.Warn("staging directory left for inspection", "path", run.StagingPath)
			}
		}
		return run, err
	}

	s.logger.Info("backup complete", "snapshot", run.FinalPath, "reference", run.Reference)
	return run, nil
}

func (s *Service) validateSource(_ context.Context, run BackupRun) (BackupRun, error) {
	p, err := s.fsmgr.Resolve(run.RawSource)
	if err != nil {
		return run, fmt.Errorf("%w: %s: %w", ErrNotADirectory, run.RawSource, err)
	}
	if !p.IsDir() {
		return run, fmt.Errorf("%w: %s (only directories can be backed up)", ErrNotADirectory, p.String())
	}
	run.Source = p.String()
	return run, nil
}

func (s *Service) resolvePaths(_ context.Context, run BackupRun) (BackupRun, error) {
	dest, err := filepath.Abs(run.RawDestination)
	if err != nil {
		return run, fmt.Errorf("resolving destination: %w", err)
	}

	if s.opts.NestSourceBasename {
		base := filepath.Base(run.Source)
		// Avoid <dest>/docs/docs when the destination already names the source.
		if filepath.Base(dest) == base {
			dest = filepath.Dir(dest)
		}
		dest = filepath.Join(dest, base)
	}

	run.Destination = dest
	run.Timestamp = s.clock.Now().UTC()
	run.StagingPath = filepath.Join(dest, StagingName(run.Timestamp))
	run.FinalPath = filepath.Join(dest, SnapshotName(run.Timestamp))

	s.logger.Debug("resolved run paths",
		"source", run.Source,
		"destination", run.Destination,
		"staging", run.StagingPath,
		"final", run.FinalPath,
		"timestamp", FormatTimestamp(run.Timestamp),
	)
	return run, nil
}

func (s *Service) resolveIgnorePolicy(_ context.Context, run BackupRun) (BackupRun, error) {
	policy, err := LoadIgnorePolicy(s.fsmgr, run.Source, s.opts.IgnoreFileName)
	if err != nil {
		return run, err
	}
	run.Ignore = policy
	s.logger.Info("using ignore policy", "path", policy.Path, "patterns", len(policy.Patterns))
	return run, nil
}

func (s *Service) prepareWorkspace(_ context.Context, run BackupRun) (BackupRun, error) {
	if err := s.workspace.Prepare(run.Destination); err != nil {
		return run, err
	}
	return run, nil
}

func (s *Service) acquireLock(_ context.Context, run BackupRun) (BackupRun, error) {
	lock, err := s.locker.TryLock(run.Destination)
	if err != nil {
		return run, err
	}
	run.lock = lock
	return run, nil
}

func (s *Service) resolveReference(_ context.Context, run BackupRun) (BackupRun, error) {
	latest, err := LatestSnapshot(run.Destination)
	if err != nil {
		return run, err
	}
	run.Reference = latest

	current, err := s.workspace.ReadCurrent(run.Destination)
	if err != nil {
		return run, err
	}
	if current != latest {
		s.logger.Warn("current link does not name the latest snapshot", "current", current, "latest", latest)
	}

	stale, err := ListStaging(run.Destination)
	if err != nil {
		return run, err
	}
	for _, name := range stale {
		s.logger.Warn("found incomplete snapshot from an earlier run", "name", name)
	}

	if latest == "" {
		s.logger.Info("no previous snapshot, performing full copy")
		return run, nil
	}

	taken, err := SnapshotTime(latest)
	if err != nil {
		s.logger.Warn("reference snapshot name carries no timestamp", "reference", latest, "error", err)
		s.logger.Info("using reference snapshot", "reference", latest)
		return run, nil
	}
	s.logger.Info("using reference snapshot", "reference", latest, "age", run.Timestamp.Sub(taken).String())
	return run, nil
}

func (s *Service) stage(ctx context.Context, run BackupRun) (BackupRun, error) {
	if _, err := os.Lstat(run.FinalPath); err == nil {
		return run, fmt.Errorf("%w: snapshot already exists: %s", ErrCommitFailed, run.FinalPath)
	}
	if _, err := os.Lstat(run.StagingPath); err == nil {
		return run, fmt.Errorf("%w: staging path already exists: %s", ErrSyncFailed, run.StagingPath)
	}

	req := SyncRequest{
		Source:      run.Source,
		Destination: run.StagingPath,
		ExcludeFile: run.Ignore.Path,
		LinkDest:    run.ReferencePath(),
	}

	s.logger.Info("syncing", "source", req.Source, "staging", req.Destination)
	if err := s.syncer.Sync(ctx, req); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return run, fmt.Errorf("%w: %w: %w", ErrSyncFailed, ctxErr, err)
		}
		if errors.Is(err, ErrSyncFailed) {
			return run, err
		}
		return run, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	return run, nil
}

func (s *Service) commit(_ context.Context, run BackupRun) (BackupRun, error) {
	if err := CommitSnapshot(run.StagingPath, run.FinalPath); err != nil {
		return run, err
	}
	s.logger.Info("snapshot committed", "path", run.FinalPath)
	return run, nil
}

func (s *Service) repointCurrent(_ context.Context, run BackupRun) (BackupRun, error) {
	if err := s.workspace.RepointCurrent(run.Destination, run.SnapshotName()); err != nil {
		return run, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	s.logger.Debug("current link updated", "target", run.SnapshotName())
	return run, nil
}
