package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	defaultPort          = 8080
	defaultReadTimeout   = 10 * time.Second
	defaultMaxBodySize   = 2 * 1024 * 1024 // 2 MiB
	defaultRateRPS       = 200
	defaultRateBurst     = 400
	defaultCacheSize     = 64 * 1024 * 1024 // 64 MiB
	defaultQueueCapacity = 1024
	defaultWriteTimeout  = 5 * time.Second
	defaultSummaryLength = 80
	// archive defaults
	defaultArchiveCron          = "30 3 * * *" // daily at 03:30
	defaultArchiveInactiveAfter = 90 * 24 * time.Hour
)

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.Server.ReadTimeout.Duration() == 0 {
		c.Server.ReadTimeout = Duration(defaultReadTimeout)
	}
	if c.Server.MaxBodySize.Int64() == 0 {
		c.Server.MaxBodySize = SizeBytes(defaultMaxBodySize)
	}

	if c.Security.RateLimit.RPS <= 0 {
		c.Security.RateLimit.RPS = defaultRateRPS
	}
	if c.Security.RateLimit.Burst <= 0 {
		c.Security.RateLimit.Burst = defaultRateBurst
	}

	if c.Store.Backend == "" {
		c.Store.Backend = BackendPebble
	}
	if c.Store.CacheSize.Int64() == 0 {
		c.Store.CacheSize = SizeBytes(defaultCacheSize)
	}

	if c.Messages.WriteMode == "" {
		c.Messages.WriteMode = WriteModeAsync
	}
	if c.Messages.QueueCapacity == 0 {
		c.Messages.QueueCapacity = defaultQueueCapacity
	}
	if c.Messages.WriteTimeout.Duration() == 0 {
		c.Messages.WriteTimeout = Duration(defaultWriteTimeout)
	}
	if c.Messages.SummaryLength <= 0 {
		c.Messages.SummaryLength = defaultSummaryLength
	}

	if c.Archive.Cron == "" {
		c.Archive.Cron = defaultArchiveCron
	}
	if c.Archive.InactiveAfter.Duration() == 0 {
		c.Archive.InactiveAfter = Duration(defaultArchiveInactiveAfter)
	}
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("GUARDCOMMS_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
