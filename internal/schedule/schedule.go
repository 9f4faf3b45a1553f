// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule runs the availability check on a cron schedule.
// At most one run is in flight: an in-process flag covers cron, start-up and
// HTTP triggers, and an optional lock file covers other shelfwatch processes
// sharing the same reading list.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/internal/config"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

// ErrBusy means a run was requested while another one holds the run slot.
var ErrBusy = errors.New("a run is already in progress")

// Job performs one full run.
type Job func(ctx context.Context) (types.RunReport, error)

// Scheduler triggers Job from cron, at start-up and over HTTP.
type Scheduler struct {
	cfg    types.SchedulerConfig
	job    Job
	logger *zap.Logger

	cron  *cron.Cron
	entry cron.EntryID

	mu        sync.Mutex
	ctx       context.Context
	running   bool
	lastRun   *types.RunReport
	lastError string
	wg        sync.WaitGroup
}

// New validates the cron expression and timezone and prepares the
// scheduler. Nothing runs until Run.
func New(cfg types.SchedulerConfig, job Job, logger *zap.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: scheduler needs a job", types.ErrConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := config.Location(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConfig, err)
	}
	sched, err := cron.ParseStandard(cfg.Cron)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduler.cron %q: %v", types.ErrConfig, cfg.Cron, err)
	}

	s := &Scheduler{
		cfg:    cfg,
		job:    job,
		logger: logger,
		cron:   cron.New(cron.WithLocation(loc)),
	}
	s.entry = s.cron.Schedule(sched, cron.FuncJob(func() {
		_ = s.Trigger("cron")
	}))
	return s, nil
}

// Acquire takes the cross-process run lock at path and returns the function
// that releases it. A lock held by another process or another open handle
// yields ErrBusy. An empty path takes no lock.
func Acquire(path string) (release func() error, err error) {
	if path == "" {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: lock %s held by another process", ErrBusy, path)
	}
	return lock.Unlock, nil
}

// Run starts the cron loop and the optional status server, then blocks until
// ctx is cancelled. An in-flight run sees the same cancellation and is
// awaited before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	var srv *http.Server
	if s.cfg.Listen != "" {
		srv = &http.Server{
			Addr:              s.cfg.Listen,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("status server stopped", zap.Error(err))
			}
		}()
		s.logger.Info("status server listening", zap.String("addr", s.cfg.Listen))
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("cron", s.cfg.Cron),
		zap.String("timezone", s.cfg.Timezone),
		zap.Time("next_run", s.NextRun()))

	if s.cfg.RunOnStart {
		_ = s.Trigger("start")
	}

	<-ctx.Done()
	s.logger.Info("scheduler stopping")

	<-s.cron.Stop().Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("status server shutdown", zap.Error(err))
		}
	}
	s.wg.Wait()
	return nil
}

// Trigger starts a run in the background. It returns ErrBusy without
// starting anything when a run is already in flight.
func (s *Scheduler) Trigger(reason string) error {
	if !s.begin() {
		s.logger.Warn("run skipped, previous run still in progress", zap.String("trigger", reason))
		return ErrBusy
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.end()
		_, _ = s.execute(s.runContext(), reason)
	}()
	return nil
}

// RunOnce performs one run in the caller's goroutine.
func (s *Scheduler) RunOnce(ctx context.Context) (types.RunReport, error) {
	if !s.begin() {
		return types.RunReport{}, ErrBusy
	}
	defer s.end()
	return s.execute(ctx, "manual")
}

func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Scheduler) execute(ctx context.Context, reason string) (types.RunReport, error) {
	release, err := Acquire(s.cfg.LockFile)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			s.logger.Warn("run skipped, lock held by another process",
				zap.String("lock", s.cfg.LockFile), zap.String("trigger", reason))
		}
		return types.RunReport{}, err
	}
	defer func() {
		if err := release(); err != nil {
			s.logger.Warn("failed to release run lock", zap.Error(err))
		}
	}()

	s.logger.Info("run starting", zap.String("trigger", reason))
	report, err := s.job(ctx)

	s.mu.Lock()
	if report.RunID != "" {
		r := report
		s.lastRun = &r
	}
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("run failed", zap.String("trigger", reason), zap.Error(err))
		return report, err
	}
	s.logger.Info("run finished",
		zap.String("run_id", report.RunID),
		zap.Int("checked", len(report.Results)),
		zap.Int("available", report.Count(types.OutcomeAvailable)),
		zap.Int("failed", report.Count(types.OutcomeFailed)),
		zap.Duration("took", report.Duration()),
		zap.Time("next_run", s.NextRun()))
	return report, nil
}

// NextRun is the next cron fire time, or zero before Run starts the loop.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Status is the scheduler state served at /status.
type Status struct {
	Running   bool             `json:"running"`
	Cron      string           `json:"cron"`
	Timezone  string           `json:"timezone"`
	NextRun   *time.Time       `json:"next_run,omitempty"`
	LastRun   *types.RunReport `json:"last_run,omitempty"`
	LastError string           `json:"last_error,omitempty"`
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{
		Running:   s.running,
		Cron:      s.cfg.Cron,
		Timezone:  s.cfg.Timezone,
		LastRun:   s.lastRun,
		LastError: s.lastError,
	}
	s.mu.Unlock()

	if next := s.NextRun(); !next.IsZero() {
		st.NextRun = &next
	}
	return st
}
