package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/fs"
	"inkwell/internal/inkwell"
	"inkwell/internal/lock"
	"inkwell/internal/rsync"
)

// App is the application layer between the CLI and the inkwell Service.
// It constructs all dependencies from config, records every backup run in
// the run store, and releases resources on Close.
type App struct {
	cfg     *config.Config
	store   inkwell.RunStore
	service *inkwell.Service
	logger  inkwell.Logger
	clock   inkwell.Clock
	runID   string
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// The caller must call Close when done.
func NewApp(cfg *config.Config) (*App, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	runID := inkwell.UUIDGenerator{}.New()
	l, logFile, err := newLogger(cfg.LogDir, runID, level, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	syncer, err := rsync.NewSyncerFromConfig(cfg.Sync, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating syncer: %w", err)
	}

	a, err := newApp(cfg, syncer, logger, inkwell.RealClock{}, runID)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.logFile = logFile
	return a, nil
}

// newApp wires an App around an existing syncer and logger.
func newApp(cfg *config.Config, syncer inkwell.Syncer, logger inkwell.Logger, clock inkwell.Clock, runID string) (*App, error) {
	store, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	svc := inkwell.NewService(
		fs.NewOSFilesystemManager(),
		syncer,
		lock.NewFileLocker(),
		store,
		logger,
		clock,
		inkwell.UUIDGenerator{},
		inkwell.Options{
			IgnoreFileName:     cfg.IgnoreFileName,
			NestSourceBasename: cfg.NestSourceBasename,
		},
	)

	return &App{
		cfg:     cfg,
		store:   store,
		service: svc,
		logger:  logger,
		clock:   clock,
		runID:   runID,
	}, nil
}

// RunID identifies this invocation in the log and the run history.
func (a *App) RunID() string {
	return a.runID
}

// Backup takes one snapshot of source into dest and records the run.
// The returned error is the run's error if it failed, otherwise any error
// from recording the outcome.
func (a *App) Backup(ctx context.Context, source, dest string) (inkwell.BackupRun, error) {
	op := NewBackupOperation(a.runID, absOrRaw(source), absOrRaw(dest))

	rec, err := a.store.CreateRun(op.RunID, op.Source, op.Destination, a.clock.Now())
	if err != nil {
		return inkwell.BackupRun{}, fmt.Errorf("recording backup run: %w", err)
	}
	op.ID = rec.ID

	a.logger.Info("backup started", "source", op.Source, "destination", op.Destination)
	run, runErr := a.service.Backup(ctx, op.RunID, source, dest)

	outcome := op.Outcome(run, runErr, a.clock.Now())
	if err := a.store.FinishRun(op.ID, outcome); err != nil {
		if runErr != nil {
			a.logger.Error("recording backup outcome", "error", err)
			return run, runErr
		}
		return run, fmt.Errorf("recording backup outcome: %w", err)
	}
	return run, runErr
}

// ListDestination reports the snapshots held in dest.
func (a *App) ListDestination(dest string) (*inkwell.SnapshotListing, error) {
	return a.service.ListDestination(dest)
}

// GetHistory returns the most recent backup runs.
func (a *App) GetHistory(limit int) ([]*inkwell.RunRecord, error) {
	return a.service.GetHistory(limit)
}

// GetRun returns one recorded backup run.
func (a *App) GetRun(runID string) (*inkwell.RunRecord, error) {
	return a.service.GetRun(runID)
}

// Close closes the run store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

// WriteConfig prints the effective configuration.
func WriteConfig(w io.Writer, path string, cfg *config.Config) error {
	fmt.Fprintf(w, "Configuration from %s:\n\n", path)
	m := &config.Manager{}
	return m.Write(w, cfg)
}

func absOrRaw(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
