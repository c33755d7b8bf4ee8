package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	Messages MessagesConfig `yaml:"messages"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// ServerConfig holds http settings.
type ServerConfig struct {
	Address     string    `yaml:"address"`
	Port        int       `yaml:"port"`
	DBPath      string    `yaml:"db_path"`
	ReadTimeout Duration  `yaml:"read_timeout"`
	MaxBodySize SizeBytes `yaml:"max_body_size"`
}

// SecurityConfig holds request filtering settings. There is no
// authentication here; callers are trusted to send X-User-ID.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

const (
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "pebble" or "memory"
	// FallbackMemory runs on the memory backend when pebble cannot be opened.
	FallbackMemory *bool     `yaml:"fallback_memory"`
	CacheSize      SizeBytes `yaml:"cache_size"`
}

// UseFallback reports whether a failed pebble open should degrade to memory.
func (s StoreConfig) UseFallback() bool {
	return s.FallbackMemory == nil || *s.FallbackMemory
}

const (
	WriteModeSync  = "sync"
	WriteModeAsync = "async"
)

// MessagesConfig controls how sent messages reach the durable store.
type MessagesConfig struct {
	WriteMode     string   `yaml:"write_mode"` // "sync" or "async"
	QueueCapacity int      `yaml:"queue_capacity"`
	WriteTimeout  Duration `yaml:"write_timeout"`
	SummaryLength int      `yaml:"summary_length"`
}

// ArchiveConfig drives the scheduled sweep that archives idle conversations.
type ArchiveConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Cron          string   `yaml:"cron"`
	InactiveAfter Duration `yaml:"inactive_after"`
	DryRun        bool     `yaml:"dry_run"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := parseSizeValue(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func parseSizeValue(raw interface{}) (SizeBytes, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return SizeBytes(v), nil
	case int64:
		return SizeBytes(v), nil
	case uint64:
		return SizeBytes(v), nil
	case float64:
		return SizeBytes(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		if b, err := humanize.ParseBytes(s); err == nil {
			return SizeBytes(b), nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return SizeBytes(i), nil
		}
		return 0, fmt.Errorf("invalid size value: %q", v)
	}
	return 0, fmt.Errorf("invalid size value: %v", raw)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration supports YAML strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := parseDurationValue(raw)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func parseDurationValue(raw interface{}) (Duration, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return Duration(time.Duration(v) * time.Second), nil
	case int64:
		return Duration(time.Duration(v) * time.Second), nil
	case uint64:
		return Duration(time.Duration(v) * time.Second), nil
	case float64:
		return Duration(time.Duration(v * float64(time.Second))), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		if td, err := time.ParseDuration(s); err == nil {
			return Duration(td), nil
		}
		// allow numeric seconds
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Duration(time.Duration(f * float64(time.Second))), nil
		}
		return 0, fmt.Errorf("invalid duration value: %q", v)
	}
	return 0, fmt.Errorf("invalid duration value: %v", raw)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
