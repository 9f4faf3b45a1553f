// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Outcome is what happened to one record in one run.
type Outcome string

const (
	OutcomeAvailable Outcome = "available"
	OutcomePending   Outcome = "pending"
	OutcomeNotFound  Outcome = "not_found"

	// OutcomeSkipped means the record was already available; nothing was
	// called.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed means a record-scoped error stopped the check. The
	// record keeps its prior state unless only the write-back failed.
	OutcomeFailed Outcome = "failed"
)

// OutcomeFor maps a verdict status to its outcome.
func OutcomeFor(s VerdictStatus) Outcome {
	switch s {
	case StatusAvailable:
		return OutcomeAvailable
	case StatusPending:
		return OutcomePending
	default:
		return OutcomeNotFound
	}
}

// CheckResult records one record's pass through the pipeline.
type CheckResult struct {
	RecordID string `json:"record_id" yaml:"record_id"`
	Title    string `json:"title" yaml:"title"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`

	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// Verdict is set once the judge answered, even if the write-back
	// then failed.
	Verdict *Verdict `json:"verdict,omitempty" yaml:"verdict,omitempty"`

	// Keyword is the last search keyword tried.
	Keyword string `json:"keyword,omitempty" yaml:"keyword,omitempty"`

	// ErrorKind is ErrorKind(err) for failed checks.
	ErrorKind string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`

	CheckedAt time.Time `json:"checked_at" yaml:"checked_at"`
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Results    []CheckResult `json:"results" yaml:"results"`

	// Interrupted is true when cancellation stopped the run between books.
	Interrupted bool `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`

	Notified    bool   `json:"notified" yaml:"notified"`
	NotifyError string `json:"notify_error,omitempty" yaml:"notify_error,omitempty"`
}

// Count returns the number of results with outcome o.
func (r RunReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns the failed results in run order.
func (r RunReport) Failures() []CheckResult {
	var out []CheckResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

// Duration returns the wall time of the run.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
