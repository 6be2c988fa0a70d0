package rsync

import (
	"fmt"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/inkwell"
)

// NewSyncerFromConfig creates a Syncer implementation based on the sync config type.
func NewSyncerFromConfig(cfg config.SyncConfig, logger inkwell.Logger) (inkwell.Syncer, error) {
	var timeout time.Duration
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing sync timeout: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("sync timeout must not be negative: %s", cfg.Timeout)
		}
		timeout = d
	}

	switch cfg.Type {
	case "", "rsync":
		return NewSyncer(cfg.Binary, cfg.ExtraArgs, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown sync type: %s", cfg.Type)
	}
}
