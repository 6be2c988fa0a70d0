package database

import (
	"fmt"
	"path/filepath"

	"inkwell/internal/config"
	"inkwell/internal/inkwell"
)

// FileName is the name of the run history database inside data_dir.
const FileName = "inkwell.db"

// NewDatabaseFromConfig creates a RunStore implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (inkwell.RunStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, FileName))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
