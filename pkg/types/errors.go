// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Record-scoped and delivery-scoped failures. Stages wrap these with %w; the
// orchestrator classifies with errors.Is and keeps going.
var (
	// ErrSearchUnavailable means the platform search failed after all retries.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrJudgeParse means the LLM answer was malformed, inconsistent or not
	// confident enough to act on.
	ErrJudgeParse = errors.New("judge response rejected")

	// ErrJudgeUnavailable means the LLM endpoint could not be reached.
	ErrJudgeUnavailable = errors.New("judge unavailable")

	// ErrPersistence means the record write-back failed.
	ErrPersistence = errors.New("persisting record")

	// ErrNotification means a notification channel rejected the message.
	ErrNotification = errors.New("notification delivery failed")
)

// ErrConfig is run-level and fatal: the run aborts before any record is read.
var ErrConfig = errors.New("invalid configuration")

// ErrorKind returns a short label for the taxonomy member err wraps, or
// "other".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSearchUnavailable):
		return "search_unavailable"
	case errors.Is(err, ErrJudgeParse):
		return "judge_parse"
	case errors.Is(err, ErrJudgeUnavailable):
		return "judge_unavailable"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrNotification):
		return "notification"
	case errors.Is(err, ErrConfig):
		return "config"
	default:
		return "other"
	}
}
