package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardcomms/pkg/config"
	"guardcomms/pkg/models"
)

func effective(t *testing.T, backend string) config.EffectiveConfigResult {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.Backend = backend
	cfg.Server.Address = "127.0.0.1"
	eff := config.EffectiveConfigResult{Config: cfg, Addr: "127.0.0.1:0", DBPath: t.TempDir(), Source: "config"}
	require.NoError(t, config.ValidateConfig(eff))
	return eff
}

func TestAppLifecycle(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendPebble} {
		t.Run(backend, func(t *testing.T) {
			a, err := New(effective(t, backend), "dev", "none", "unknown")
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- a.Run(ctx) }()

			require.NoError(t, a.provisioner.EnsureChannelsForUser(ctx, models.User{ID: "g1", Role: models.RoleGuard}))
			m := a.messages.SendMessage(ctx, "support:dispatch:g1", models.Sender{ID: "s1"}, "hello", nil)

			cancel()
			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatalf("Run did not return after cancel")
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			require.NoError(t, a.Shutdown(shutdownCtx))
			assert.Equal(t, "stopped", a.state)
			assert.Equal(t, 0, a.messages.Pending(), "message %s should be durable", m.ID)
		})
	}
}
