package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"inkwell/internal/database/migrations"
	"inkwell/internal/inkwell"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements inkwell.RunStore using SQLite.
type SQLiteDatabase struct {
	db *sql.DB
}

var _ inkwell.RunStore = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens the database at path and migrates it to the latest
// schema. path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	return &SQLiteDatabase{db: db}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every new connection to ":memory:" is a separate empty database, and
	// one process never writes concurrently anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Run operations

func (s *SQLiteDatabase) CreateRun(runID, source, destination string, startedAt time.Time) (*inkwell.RunRecord, error) {
	startedAt = startedAt.UTC()
	res, err := s.db.Exec(`
		INSERT INTO backup_runs (run_id, source, destination, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		runID, source, destination, inkwell.RunStatusRunning, startedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run %s: %w", runID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading run id: %w", err)
	}

	return &inkwell.RunRecord{
		ID:          id,
		RunID:       runID,
		Source:      source,
		Destination: destination,
		Status:      inkwell.RunStatusRunning,
		StartedAt:   startedAt,
	}, nil
}

func (s *SQLiteDatabase) FinishRun(id int64, outcome inkwell.RunOutcome) error {
	res, err := s.db.Exec(`
		UPDATE backup_runs
		SET snapshot = ?, reference = ?, status = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		outcome.Snapshot, outcome.Reference, outcome.Status, outcome.Error, outcome.FinishedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*inkwell.RunRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, source, destination, snapshot, reference, status, error, started_at, finished_at
		FROM backup_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*inkwell.RunRecord
	for rows.Next() {
		var r inkwell.RunRecord
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Source, &r.Destination, &r.Snapshot, &r.Reference,
			&r.Status, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// FindRun returns the run with the given run ID, or nil if there is none.
func (s *SQLiteDatabase) FindRun(runID string) (*inkwell.RunRecord, error) {
	var r inkwell.RunRecord
	err := s.db.QueryRow(`
		SELECT id, run_id, source, destination, snapshot, reference, status, error, started_at, finished_at
		FROM backup_runs
		WHERE run_id = ?`, runID).Scan(
		&r.ID, &r.RunID, &r.Source, &r.Destination, &r.Snapshot, &r.Reference,
		&r.Status, &r.Error, &r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding run %s: %w", runID, err)
	}
	return &r, nil
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}
