// Package retention runs the scheduled sweep that archives idle
// conversations. Nothing is ever deleted; archived conversations stay
// readable and listed.
package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"guardcomms/pkg/config"
	"guardcomms/pkg/directory"
	"guardcomms/pkg/logger"
	"guardcomms/pkg/models"
)

var (
	ErrRunning = errors.New("retention: sweep already running")
	ErrStopped = errors.New("retention: sweep stopped")
)

// exempt subkinds are mandatory channels that must stay active.
var exempt = map[models.ChannelSubkind]struct{}{
	models.SubkindSupport: {},
	models.SubkindCompany: {},
	models.SubkindPeer:    {},
}

type Manager struct {
	cfg config.ArchiveConfig
	dir *directory.Directory
	now func() time.Time

	mutex   sync.Mutex
	idle    *sync.Cond
	running bool
	stopped bool
}

// Report summarises one sweep.
type Report struct {
	RunID    string    `json:"run_id"`
	Cutoff   time.Time `json:"cutoff"`
	DryRun   bool      `json:"dry_run"`
	Scanned  int       `json:"scanned"`
	Archived []string  `json:"archived"`
	Failed   int       `json:"failed"`
}

func New(cfg config.ArchiveConfig, dir *directory.Directory) *Manager {
	m := &Manager{cfg: cfg, dir: dir, now: time.Now}
	m.idle = sync.NewCond(&m.mutex)
	return m
}

// Start launches the cron loop when the sweep is enabled. The returned
// function stops the loop and blocks until no sweep is running; RunNow
// fails with ErrStopped afterwards.
func (m *Manager) Start(ctx context.Context) func() {
	if !m.cfg.Enabled {
		logger.Info("archive_sweep_disabled")
		return m.stop
	}
	ctx, cancel := context.WithCancel(ctx)
	logger.Info("archive_sweep_enabled", "cron", m.cfg.Cron, "inactive_after", m.cfg.InactiveAfter.Duration().String(), "dry_run", m.cfg.DryRun)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.scheduleLoop(ctx)
	}()
	return func() {
		cancel()
		<-done
		m.stop()
	}
}

func (m *Manager) stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stopped = true
	for m.running {
		m.idle.Wait()
	}
}

func (m *Manager) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(m.cfg.Cron, m.now(), false)
		if err != nil {
			logger.Error("archive_nexttick_failed", "cron", m.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			m.runJob(ctx)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			m.runJob(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) runJob(ctx context.Context) {
	if _, err := m.RunNow(ctx); err != nil && !errors.Is(err, ErrRunning) && !errors.Is(err, ErrStopped) {
		logger.Error("archive_run_error", "error", err)
	}
}

// RunNow performs one sweep immediately. Only one sweep runs at a time.
func (m *Manager) RunNow(ctx context.Context) (Report, error) {
	m.mutex.Lock()
	if m.stopped {
		m.mutex.Unlock()
		return Report{}, ErrStopped
	}
	if m.running {
		m.mutex.Unlock()
		return Report{}, ErrRunning
	}
	m.running = true
	m.mutex.Unlock()
	defer func() {
		m.mutex.Lock()
		m.running = false
		m.idle.Broadcast()
		m.mutex.Unlock()
	}()
	return m.sweep(ctx)
}

func (m *Manager) sweep(ctx context.Context) (Report, error) {
	rep := Report{
		RunID:    uuid.NewString(),
		Cutoff:   m.now().Add(-m.cfg.InactiveAfter.Duration()).UTC(),
		DryRun:   m.cfg.DryRun,
		Archived: []string{},
	}
	logger.Info("archive_run_start", "run_id", rep.RunID, "cutoff", rep.Cutoff.Format(time.RFC3339), "dry_run", rep.DryRun)

	candidates, err := m.dir.Inactive(ctx, rep.Cutoff)
	if err != nil {
		return rep, err
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Scanned++
		if _, ok := exempt[c.Subkind]; ok {
			continue
		}
		if rep.DryRun {
			logger.Info("archive_item", "run_id", rep.RunID, "id", c.ID, "status", "dry_run")
			rep.Archived = append(rep.Archived, c.ID)
			continue
		}
		if _, err := m.dir.Archive(ctx, c.ID); err != nil {
			rep.Failed++
			logger.Error("archive_item_failed", "run_id", rep.RunID, "id", c.ID, "error", err)
			continue
		}
		rep.Archived = append(rep.Archived, c.ID)
	}
	logger.Info("archive_run_complete", "run_id", rep.RunID, "scanned", rep.Scanned, "archived", len(rep.Archived), "failed", rep.Failed)
	return rep, nil
}
