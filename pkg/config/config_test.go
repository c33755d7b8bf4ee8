package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfigFile(t *testing.T) {
	p := writeFile(t, `
server:
  address: 127.0.0.1
  port: 9090
  db_path: /var/lib/guardcomms
  read_timeout: 3s
  max_body_size: 4MB
store:
  backend: memory
  fallback_memory: false
messages:
  write_mode: sync
  write_timeout: 1.5
archive:
  enabled: true
  cron: "0 4 * * 1"
  inactive_after: 720h
`)
	cfg, err := LoadConfigFile(p)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, int64(4_000_000), cfg.Server.MaxBodySize.Int64())
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.False(t, cfg.Store.UseFallback())
	assert.Equal(t, WriteModeSync, cfg.Messages.WriteMode)
	assert.Equal(t, 1500*time.Millisecond, cfg.Messages.WriteTimeout.Duration())
	assert.Equal(t, 720*time.Hour, cfg.Archive.InactiveAfter.Duration())
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, BackendPebble, cfg.Store.Backend)
	assert.True(t, cfg.Store.UseFallback())
	assert.Equal(t, WriteModeAsync, cfg.Messages.WriteMode)
	assert.Equal(t, defaultQueueCapacity, cfg.Messages.QueueCapacity)
	assert.Equal(t, defaultSummaryLength, cfg.Messages.SummaryLength)
	assert.Equal(t, defaultArchiveCron, cfg.Archive.Cron)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		dbPath  string
		wantErr bool
	}{
		{name: "pebble needs db path", cfg: Config{}, wantErr: true},
		{name: "pebble with db path", cfg: Config{}, dbPath: "/tmp/db"},
		{name: "memory without db path", cfg: Config{Store: StoreConfig{Backend: BackendMemory}}},
		{name: "unknown backend", cfg: Config{Store: StoreConfig{Backend: "postgres"}}, dbPath: "/tmp/db", wantErr: true},
		{name: "unknown write mode", cfg: Config{Messages: MessagesConfig{WriteMode: "later"}}, dbPath: "/tmp/db", wantErr: true},
		{name: "negative queue", cfg: Config{Messages: MessagesConfig{QueueCapacity: -1}}, dbPath: "/tmp/db", wantErr: true},
		{name: "bad cron", cfg: Config{Archive: ArchiveConfig{Enabled: true, Cron: "every day"}}, dbPath: "/tmp/db", wantErr: true},
		{name: "bad cron ignored when disabled", cfg: Config{Archive: ArchiveConfig{Cron: "every day"}}, dbPath: "/tmp/db"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := ValidateConfig(EffectiveConfigResult{Config: &cfg, DBPath: tc.dbPath})
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("GUARDCOMMS_ADDR", "10.0.0.5:7000")
	t.Setenv("GUARDCOMMS_STORE_BACKEND", "MEMORY")
	t.Setenv("GUARDCOMMS_STORE_FALLBACK_MEMORY", "no")
	t.Setenv("GUARDCOMMS_MESSAGES_WRITE_TIMEOUT", "250ms")
	t.Setenv("GUARDCOMMS_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, used := ParseConfigEnvs()
	require.True(t, used)
	assert.Equal(t, "10.0.0.5:7000", cfg.Addr())
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.False(t, cfg.Store.UseFallback())
	assert.Equal(t, 250*time.Millisecond, cfg.Messages.WriteTimeout.Duration())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORS.AllowedOrigins)
}

func TestLoadEffectiveConfigPrecedence(t *testing.T) {
	fileCfg := &Config{}
	fileCfg.Server.Port = 9000
	fileCfg.Server.DBPath = "/from/file"
	fileCfg.Store.Backend = BackendMemory
	envCfg := &Config{}
	envCfg.Server.DBPath = "/from/env"

	t.Run("config flag requires file", func(t *testing.T) {
		flags := Flags{Config: "missing.yaml", Set: map[string]bool{"config": true}}
		_, err := LoadEffectiveConfig(flags, nil, false, envCfg)
		assert.Error(t, err)
	})

	t.Run("db flag keeps file settings", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		flags, err := ParseConfigFlagsFrom(fs, []string{"--db", "/from/flag"})
		require.NoError(t, err)
		res, err := LoadEffectiveConfig(flags, fileCfg, true, envCfg)
		require.NoError(t, err)
		assert.Equal(t, "flags", res.Source)
		assert.Equal(t, "/from/flag", res.DBPath)
		assert.Equal(t, BackendMemory, res.Config.Store.Backend)
		assert.Equal(t, 9000, res.Config.Server.Port)
	})

	t.Run("file wins over env", func(t *testing.T) {
		res, err := LoadEffectiveConfig(Flags{Set: map[string]bool{}}, fileCfg, true, envCfg)
		require.NoError(t, err)
		assert.Equal(t, "config", res.Source)
		assert.Equal(t, "/from/file", res.DBPath)
	})

	t.Run("env when nothing else", func(t *testing.T) {
		res, err := LoadEffectiveConfig(Flags{Set: map[string]bool{}}, nil, false, envCfg)
		require.NoError(t, err)
		assert.Equal(t, "env", res.Source)
		assert.Equal(t, "/from/env", res.DBPath)
	})
}
