// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"time"

	"github.com/pdiddy/shelfwatch/internal/notify"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

// Reconcile folds a verdict into the write-back for rec. Only AVAILABLE sets
// IsAvailable; PENDING and NOT_FOUND keep the prior value. LastChecked,
// SearchKeyword and Notes are always written so every checked record carries
// an audit trail.
func Reconcile(rec types.BookRecord, v types.Verdict, checkedAt time.Time) types.RecordUpdate {
	return types.RecordUpdate{
		IsAvailable:   rec.IsAvailable || v.Status == types.StatusAvailable,
		LastChecked:   checkedAt,
		SearchKeyword: v.SearchKeywordUsed,
		Notes:         v.Notes(),
	}
}

// Batch accumulates the records that became available during one run. It is
// a value: Add returns the extended batch.
type Batch struct {
	Entries []BatchEntry
}

// BatchEntry is one newly available book.
type BatchEntry struct {
	RecordID    string
	Title       string
	Author      string
	CandidateID string
	Rationale   string
}

// Add returns b with rec appended.
func (b Batch) Add(rec types.BookRecord, res types.CheckResult) Batch {
	e := BatchEntry{RecordID: rec.ID, Title: rec.Title, Author: rec.Author}
	if res.Verdict != nil {
		e.CandidateID = res.Verdict.MatchedCandidateID
		e.Rationale = res.Verdict.Rationale
	}
	entries := make([]BatchEntry, len(b.Entries), len(b.Entries)+1)
	copy(entries, b.Entries)
	return Batch{Entries: append(entries, e)}
}

// Len returns the number of entries.
func (b Batch) Len() int { return len(b.Entries) }

// BuildSummary renders the notification payload for a run.
func BuildSummary(report types.RunReport, batch Batch) notify.Summary {
	s := notify.Summary{
		CheckedAt: report.StartedAt,
		Total:     len(report.Results),
		Available: batch.Len(),
		Pending:   report.Count(types.OutcomePending),
		NotFound:  report.Count(types.OutcomeNotFound),
		Skipped:   report.Count(types.OutcomeSkipped),
		Failed:    report.Count(types.OutcomeFailed),
	}
	for _, e := range batch.Entries {
		s.NewlyAvailable = append(s.NewlyAvailable, notify.BookLine{Title: e.Title, Author: e.Author})
	}
	for _, f := range report.Failures() {
		s.Failures = append(s.Failures, notify.BookLine{Title: f.Title, Author: f.Author, Detail: f.ErrorKind})
	}
	return s
}
