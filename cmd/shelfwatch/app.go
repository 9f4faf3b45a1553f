// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/internal/judge"
	"github.com/pdiddy/shelfwatch/internal/ledger"
	"github.com/pdiddy/shelfwatch/internal/notify"
	"github.com/pdiddy/shelfwatch/internal/notion"
	"github.com/pdiddy/shelfwatch/internal/pipeline"
	"github.com/pdiddy/shelfwatch/internal/schedule"
	"github.com/pdiddy/shelfwatch/internal/search"
)

// signalContext is cancelled on SIGINT or SIGTERM. A run in progress stops
// between books.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newNotionStore() *notion.Store {
	return notion.NewStore(cfg.Notion, nil, logger)
}

func newJudge() *judge.Judge {
	return judge.New(judge.NewOpenAIBackend(cfg.LLM), cfg.LLM, logger)
}

// lockRun takes the run lock at path so a manual run cannot overlap a
// scheduled one. It returns schedule.ErrBusy when another process holds it.
func lockRun(path string) (func(), error) {
	release, err := schedule.Acquire(path)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := release(); err != nil {
			logger.Warn("failed to release run lock", zap.String("lock", path), zap.Error(err))
		}
	}, nil
}

// openLedger returns nil when the ledger is disabled.
func openLedger() (*ledger.Store, error) {
	if cfg.Ledger.Path == "" {
		return nil, nil
	}
	return ledger.NewStore(cfg.Ledger)
}

// pipelineSetup collects the optional parts of an orchestrator.
type pipelineSetup struct {
	store    pipeline.Store
	notify   bool
	ledger   *ledger.Store
	progress io.Writer
}

func newOrchestrator(p pipelineSetup) (*pipeline.Orchestrator, error) {
	opts := pipeline.Options{
		Store:          p.store,
		Search:         search.NewWeReadClient(cfg.Search, logger),
		Judge:          newJudge(),
		Logger:         logger,
		Progress:       p.progress,
		InterBookDelay: cfg.Search.InterBookDelay,
		AlwaysNotify:   cfg.Notification.AlwaysNotify,
	}
	if p.notify {
		opts.Notifier = notify.NewDispatcher(cfg.Notification, logger)
	}
	// A nil *ledger.Store must stay a nil interface.
	if p.ledger != nil {
		opts.Recorder = p.ledger
	}
	return pipeline.New(opts)
}
