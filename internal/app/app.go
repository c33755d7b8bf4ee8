package app

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"guardcomms/internal/retention"
	"guardcomms/pkg/channels"
	"guardcomms/pkg/config"
	"guardcomms/pkg/directory"
	"guardcomms/pkg/logger"
	"guardcomms/pkg/messages"
	"guardcomms/pkg/state"
	"guardcomms/pkg/store"
)

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	store       *store.Failover
	provisioner *channels.Provisioner
	directory   *directory.Directory
	messages    *messages.Service
	archive     *retention.Manager

	archiveStop func()
	srvFast     *fasthttp.Server
	state       string
}

// New opens the store and builds the services. It does not start the HTTP
// server or the archive scheduler; Run does.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	cfg := eff.Config
	dbPath := eff.DBPath
	if cfg.Store.Backend == config.BackendPebble {
		if err := state.EnsureDirs(eff.DBPath); err != nil {
			if !cfg.Store.UseFallback() {
				return nil, fmt.Errorf("failed to prepare %s: %w", eff.DBPath, err)
			}
			logger.Warn("state_dirs_setup_failed", "path", eff.DBPath, "error", err)
		}
		dbPath = state.StorePath(eff.DBPath)
	}
	st, err := store.Open(cfg.Store, dbPath)
	if err != nil {
		return nil, err
	}

	dir := directory.New(st)
	a := &App{
		eff:         eff,
		version:     version,
		commit:      commit,
		buildDate:   buildDate,
		store:       st,
		provisioner: channels.NewProvisioner(st),
		directory:   dir,
		messages:    messages.NewService(st, cfg.Messages),
		archive:     retention.New(cfg.Archive, dir),
		state:       "initialized",
	}
	a.logSummary()
	return a, nil
}

func (a *App) logSummary() {
	cfg := a.eff.Config
	ver := a.version
	if a.commit != "none" {
		ver += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" {
		ver += " @ " + a.buildDate
	}
	items := []string{
		fmt.Sprintf("version: %s", ver),
		fmt.Sprintf("listen: %s", a.eff.Addr),
		fmt.Sprintf("config_source: %s", a.eff.Source),
		fmt.Sprintf("store_backend: %s", cfg.Store.Backend),
		fmt.Sprintf("db_path: %s", a.eff.DBPath),
		fmt.Sprintf("store_cache: %s", humanize.IBytes(uint64(cfg.Store.CacheSize.Int64()))),
		fmt.Sprintf("max_body_size: %s", humanize.IBytes(uint64(cfg.Server.MaxBodySize.Int64()))),
		fmt.Sprintf("message_write_mode: %s", cfg.Messages.WriteMode),
		fmt.Sprintf("message_queue_capacity: %s", humanize.Comma(int64(cfg.Messages.QueueCapacity))),
		fmt.Sprintf("archive: enabled=%t cron=%q inactive_after=%s", cfg.Archive.Enabled, cfg.Archive.Cron, cfg.Archive.InactiveAfter.Duration()),
	}
	logger.LogConfigSummary("guardcomms_config", items)
}

// Run starts the archive scheduler and the HTTP server and blocks until ctx
// is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.archiveStop = a.archive.Start(ctx)
	errCh := a.startHTTP()
	a.state = "running"
	logger.Info("server_started", "addr", a.eff.Addr)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and the scheduler, drains queued message
// writes and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.state = "shutting_down"
	logger.Info("shutdown_requested")

	if a.srvFast != nil {
		if err := a.srvFast.Shutdown(); err != nil {
			logger.Error("http_shutdown_failed", "error", err)
		}
	}
	// waits out a sweep in progress so it never sees a closed store
	if a.archiveStop != nil {
		a.archiveStop()
	}
	if err := a.messages.Close(ctx); err != nil {
		logger.Error("message_writer_drain_failed", "error", err, "pending", a.messages.Pending())
	}
	if n := a.messages.Pending(); n > 0 {
		logger.Warn("messages_not_durable", "count", n)
	}
	err := a.store.Close()
	if err != nil {
		logger.Error("store_close_failed", "error", err)
		return err
	}
	a.state = "stopped"
	logger.Info("shutdown_complete")
	return nil
}
