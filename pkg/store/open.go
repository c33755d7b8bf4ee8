package store

import (
	"fmt"

	"guardcomms/pkg/config"
	"guardcomms/pkg/logger"
)

// Open builds the configured backend and wraps it in a Failover. When the
// pebble backend cannot be opened and fallback is allowed, the process runs
// on memory alone.
func Open(cfg config.StoreConfig, dbPath string) (*Failover, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("store_memory_backend", "durability", "records are lost on restart")
		return NewFailover(NewMemory()), nil
	case config.BackendPebble, "":
		p, err := OpenPebble(dbPath, PebbleOptions{CacheSize: cfg.CacheSize.Int64()})
		if err == nil {
			return NewFailover(p), nil
		}
		if !cfg.UseFallback() {
			return nil, fmt.Errorf("failed to open pebble at %s: %w", dbPath, err)
		}
		logger.Warn("store_fallback_memory", "path", dbPath, "error", err)
		return NewFailover(NewMemory()), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
