package config

import (
	"fmt"

	"github.com/adhocore/gronx"
)

// set defaults, fail fast on critical errors
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	cfg.ApplyDefaults()

	switch cfg.Store.Backend {
	case BackendPebble:
		if eff.DBPath == "" {
			return fmt.Errorf("database path is empty: set --db flag, GUARDCOMMS_DB_PATH env, or server.db_path in config")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store.backend %q: want %q or %q", cfg.Store.Backend, BackendPebble, BackendMemory)
	}

	switch cfg.Messages.WriteMode {
	case WriteModeSync, WriteModeAsync:
	default:
		return fmt.Errorf("unknown messages.write_mode %q: want %q or %q", cfg.Messages.WriteMode, WriteModeSync, WriteModeAsync)
	}
	if cfg.Messages.QueueCapacity < 0 {
		return fmt.Errorf("messages.queue_capacity must be positive, got %d", cfg.Messages.QueueCapacity)
	}

	if cfg.Archive.Enabled {
		if !gronx.New().IsValid(cfg.Archive.Cron) {
			return fmt.Errorf("invalid archive.cron: not a valid cron expression: %s", cfg.Archive.Cron)
		}
		if cfg.Archive.InactiveAfter.Duration() < 0 {
			return fmt.Errorf("archive.inactive_after must not be negative")
		}
	}
	return nil
}
