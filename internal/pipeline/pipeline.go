// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives one availability run over the reading list:
// list pending records, then for each one search, normalize, judge,
// reconcile and write back, and finally send one batched notification.
//
// Records are processed strictly one at a time in store order. A
// record-scoped failure is logged, reported and skipped; it never aborts the
// run. A failed search or judge leaves the record untouched, including its
// last-checked time.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/internal/notify"
	"github.com/pdiddy/shelfwatch/internal/search"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

// Store is the reading-list source of truth.
type Store interface {
	// ListPending returns records not yet available, in store order.
	ListPending(ctx context.Context) ([]types.BookRecord, error)

	// Update applies u to one record as a single write.
	Update(ctx context.Context, recordID string, u types.RecordUpdate) error
}

// Judge classifies a query against its candidates.
type Judge interface {
	Judge(ctx context.Context, query types.BookQuery, candidates []types.Candidate, keyword string) (types.Verdict, error)
}

// Notifier delivers the run summary.
type Notifier interface {
	Notify(ctx context.Context, s notify.Summary) error
}

// Recorder keeps an audit trail of runs. Errors are logged and ignored.
type Recorder interface {
	RecordCheck(ctx context.Context, runID string, r types.CheckResult) error
	RecordRun(ctx context.Context, r types.RunReport) error
}

// Options wires an Orchestrator. Store, Search and Judge are required.
type Options struct {
	Store  Store
	Search search.Client
	Judge  Judge

	// Notifier and Recorder are optional.
	Notifier Notifier
	Recorder Recorder

	Logger *zap.Logger

	// Progress receives one human-readable line per book. Nil discards.
	Progress io.Writer

	// InterBookDelay is waited between consecutive books.
	InterBookDelay time.Duration

	// AlwaysNotify sends the summary even when nothing became available.
	AlwaysNotify bool
}

// Orchestrator runs the pipeline.
type Orchestrator struct {
	opts   Options
	logger *zap.Logger
	out    io.Writer

	// now and newRunID are replaced in tests.
	now      func() time.Time
	newRunID func() string
}

// New builds an Orchestrator from opts.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil || opts.Search == nil || opts.Judge == nil {
		return nil, fmt.Errorf("%w: pipeline needs a store, a search client and a judge", types.ErrConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := opts.Progress
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{
		opts:     opts,
		logger:   logger,
		out:      out,
		now:      time.Now,
		newRunID: uuid.NewString,
	}, nil
}

// Result is what Run returns: the report plus the batch of records that
// became available in this run.
type Result struct {
	Report types.RunReport
	Batch  Batch
}

// Run processes every pending record once. The returned error is run-level
// (the pending list could not be read); record-scoped failures are in the
// report. A cancelled context stops the run between books and returns the
// partial result with Report.Interrupted set.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	report := types.RunReport{
		RunID:     o.newRunID(),
		StartedAt: o.now(),
	}
	log := o.logger.With(zap.String("run_id", report.RunID))

	records, err := o.opts.Store.ListPending(ctx)
	if err != nil {
		report.FinishedAt = o.now()
		return Result{Report: report}, fmt.Errorf("listing pending records: %w", err)
	}
	log.Info("run started", zap.Int("records", len(records)))
	fmt.Fprintf(o.out, "checking %d books\n", len(records))

	var batch Batch
	for i, rec := range records {
		if i > 0 && !o.pause(ctx) {
			report.Interrupted = true
			break
		}
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		res := o.check(ctx, rec, log)
		report.Results = append(report.Results, res)
		if res.Outcome == types.OutcomeAvailable && res.ErrorKind == "" {
			batch = batch.Add(rec, res)
		}
		o.record(ctx, report.RunID, res, log)
	}
	if report.Interrupted {
		log.Warn("run interrupted", zap.Int("processed", len(report.Results)), zap.Int("records", len(records)))
	}

	report.FinishedAt = o.now()
	o.notify(ctx, &report, batch, log)

	if o.opts.Recorder != nil {
		if err := o.opts.Recorder.RecordRun(context.WithoutCancel(ctx), report); err != nil {
			log.Warn("recording run failed", zap.Error(err))
		}
	}

	log.Info("run finished",
		zap.Int("available", report.Count(types.OutcomeAvailable)),
		zap.Int("pending", report.Count(types.OutcomePending)),
		zap.Int("not_found", report.Count(types.OutcomeNotFound)),
		zap.Int("skipped", report.Count(types.OutcomeSkipped)),
		zap.Int("failed", report.Count(types.OutcomeFailed)),
		zap.Duration("duration", report.Duration()))
	return Result{Report: report, Batch: batch}, nil
}

// pause waits InterBookDelay and reports whether the run should continue.
func (o *Orchestrator) pause(ctx context.Context) bool {
	if o.opts.InterBookDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(o.opts.InterBookDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// check runs one record through search, judge, reconcile and persist.
func (o *Orchestrator) check(ctx context.Context, rec types.BookRecord, runLog *zap.Logger) types.CheckResult {
	res := types.CheckResult{
		RecordID:  rec.ID,
		Title:     rec.Title,
		Author:    rec.Author,
		CheckedAt: o.now(),
	}
	log := runLog.With(zap.String("record", rec.ID), zap.String("title", rec.Title))

	if rec.IsAvailable {
		res.Outcome = types.OutcomeSkipped
		fmt.Fprintf(o.out, "skipped %s (already available)\n", rec.Title)
		log.Debug("already available, skipping")
		return res
	}

	query := rec.Query()
	if !query.Valid() {
		return o.fail(res, fmt.Errorf("record has no title"), log)
	}
	fmt.Fprintf(o.out, "checking %s\n", query.Label())

	found, err := o.opts.Search.Search(ctx, query)
	res.Keyword = found.Keyword
	if err != nil {
		return o.fail(res, err, log)
	}

	candidates := search.Normalize(found.Records)
	log.Debug("search done", zap.String("keyword", found.Keyword), zap.Int("candidates", len(candidates)))

	verdict, err := o.opts.Judge.Judge(ctx, query, candidates, found.Keyword)
	if err != nil {
		return o.fail(res, err, log)
	}
	res.Verdict = &verdict
	res.Outcome = types.OutcomeFor(verdict.Status)

	update := Reconcile(rec, verdict, res.CheckedAt)
	if err := o.opts.Store.Update(ctx, rec.ID, update); err != nil {
		res.Outcome = types.OutcomeFailed
		res.ErrorKind = types.ErrorKind(err)
		res.Error = err.Error()
		fmt.Fprintf(o.out, "failed  %s: %v\n", rec.Title, err)
		log.Error("write-back failed", zap.String("status", string(verdict.Status)), zap.Error(err))
		return res
	}

	fmt.Fprintf(o.out, "  %s (confidence %.2f): %s\n", verdict.Status, verdict.Confidence, verdict.Rationale)
	log.Info("book checked",
		zap.String("status", string(verdict.Status)),
		zap.Float64("confidence", verdict.Confidence),
		zap.String("candidate", verdict.MatchedCandidateID),
		zap.String("keyword", verdict.SearchKeywordUsed))
	return res
}

func (o *Orchestrator) fail(res types.CheckResult, err error, log *zap.Logger) types.CheckResult {
	res.Outcome = types.OutcomeFailed
	res.ErrorKind = types.ErrorKind(err)
	res.Error = err.Error()
	fmt.Fprintf(o.out, "failed  %s: %v\n", res.Title, err)
	log.Warn("check failed, record left unchanged", zap.String("kind", res.ErrorKind), zap.Error(err))
	return res
}

func (o *Orchestrator) record(ctx context.Context, runID string, res types.CheckResult, log *zap.Logger) {
	if o.opts.Recorder == nil {
		return
	}
	if err := o.opts.Recorder.RecordCheck(context.WithoutCancel(ctx), runID, res); err != nil {
		log.Warn("recording check failed", zap.String("record", res.RecordID), zap.Error(err))
	}
}

// notify sends the summary once. Delivery failures are kept on the report.
func (o *Orchestrator) notify(ctx context.Context, report *types.RunReport, batch Batch, log *zap.Logger) {
	if o.opts.Notifier == nil {
		return
	}
	if batch.Len() == 0 && !o.opts.AlwaysNotify {
		log.Debug("nothing became available, no notification")
		return
	}
	// Books already written back deserve a notification even if the run
	// itself was cancelled.
	if err := o.opts.Notifier.Notify(context.WithoutCancel(ctx), BuildSummary(*report, batch)); err != nil {
		report.NotifyError = err.Error()
		log.Error("notification failed", zap.Error(err))
		return
	}
	report.Notified = true
}
