// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// VerdictStatus classifies a book's availability on the platform.
type VerdictStatus string

const (
	// StatusAvailable means readable now. Nothing else maps here.
	StatusAvailable VerdictStatus = "AVAILABLE"
	// StatusPending means listed but not yet readable (pre-order, upcoming).
	StatusPending VerdictStatus = "PENDING"
	// StatusNotFound means no candidate matches the book.
	StatusNotFound VerdictStatus = "NOT_FOUND"
)

// validStatuses is the set of accepted VerdictStatus values.
var validStatuses = map[VerdictStatus]bool{
	StatusAvailable: true,
	StatusPending:   true,
	StatusNotFound:  true,
}

// Valid reports whether s is one of the defined statuses.
func (s VerdictStatus) Valid() bool { return validStatuses[s] }

// Matched reports whether the status refers to a concrete candidate.
func (s VerdictStatus) Matched() bool {
	return s == StatusAvailable || s == StatusPending
}

// Verdict is the structured outcome of judging one book. It is produced once
// per record per run, folded into the record and then discarded.
type Verdict struct {
	Status     VerdictStatus `json:"status" yaml:"status"`
	Confidence float64       `json:"confidence" yaml:"confidence"`

	// MatchedCandidateID is non-empty iff Status is AVAILABLE or PENDING.
	MatchedCandidateID string `json:"matched_candidate_id,omitempty" yaml:"matched_candidate_id,omitempty"`

	Rationale         string `json:"rationale" yaml:"rationale"`
	SearchKeywordUsed string `json:"search_keyword_used" yaml:"search_keyword_used"`
}

// Check verifies the verdict invariants.
func (v Verdict) Check() error {
	if !v.Status.Valid() {
		return fmt.Errorf("invalid status %q", v.Status)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("confidence %f out of range [0,1]", v.Confidence)
	}
	if v.Status.Matched() && v.MatchedCandidateID == "" {
		return fmt.Errorf("status %s requires a matched candidate id", v.Status)
	}
	if !v.Status.Matched() && v.MatchedCandidateID != "" {
		return fmt.Errorf("status %s must not carry a matched candidate id", v.Status)
	}
	return nil
}

// Notes renders the rationale as stored on the record. PENDING verdicts get
// PendingNotePrefix so the next run can derive PriorPending.
func (v Verdict) Notes() string {
	if v.Status == StatusPending {
		return PendingNotePrefix + v.Rationale
	}
	return v.Rationale
}
