// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judge decides whether a book is readable on the platform by asking
// an LLM to pick the matching candidate, if any, from a search result list.
//
// The model's answer is never trusted as-is. Every field is validated against
// a strict schema and the verdict is repaired when it names a candidate that
// was not offered or reports a coming-soon listing as available.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/internal/httputil"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

// Backend abstracts the chat-completion API so tests can supply a fake.
// Complete returns the raw text of the model's answer.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NoHitsRationale is the rationale of the local NOT_FOUND shortcut.
const NoHitsRationale = "no search hits"

const defaultMinConfidence = 0.5

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Judge turns a query and its candidates into a Verdict.
type Judge struct {
	backend       Backend
	maxRetries    int
	minConfidence float64
	logger        *zap.Logger
}

// New builds a Judge. cfg supplies MaxRetries and MinConfidence; the other
// LLM settings belong to the backend.
func New(backend Backend, cfg types.LLMConfig, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	minConf := cfg.MinConfidence
	if minConf <= 0 || minConf > 1 {
		minConf = defaultMinConfidence
	}
	return &Judge{
		backend:       backend,
		maxRetries:    maxRetries,
		minConfidence: minConf,
		logger:        logger,
	}
}

// Judge classifies query against candidates. keyword is the search keyword
// that produced the candidates and is carried into the verdict.
//
// Empty candidates short-circuit to NOT_FOUND with confidence 1.0 and no
// backend call. Malformed, inconsistent or low-confidence answers return an
// error wrapping types.ErrJudgeParse; backend failures that survive the
// retries wrap types.ErrJudgeUnavailable.
func (j *Judge) Judge(ctx context.Context, query types.BookQuery, candidates []types.Candidate, keyword string) (types.Verdict, error) {
	if len(candidates) == 0 {
		return types.Verdict{
			Status:            types.StatusNotFound,
			Confidence:        1.0,
			Rationale:         NoHitsRationale,
			SearchKeywordUsed: keyword,
		}, nil
	}

	userPrompt, err := renderPrompt(query, candidates, keyword)
	if err != nil {
		return types.Verdict{}, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := j.callWithRetry(ctx, userPrompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Verdict{}, ctxErr
		}
		return types.Verdict{}, fmt.Errorf("%w: %v", types.ErrJudgeUnavailable, err)
	}

	var resp response
	if err := DecodeLLMJSON(raw, &resp); err != nil {
		return types.Verdict{}, fmt.Errorf("%w: decoding answer: %v", types.ErrJudgeParse, err)
	}

	v, err := j.convert(resp, candidates)
	if err != nil {
		return types.Verdict{}, err
	}
	v.SearchKeywordUsed = keyword

	if err := v.Check(); err != nil {
		return types.Verdict{}, fmt.Errorf("%w: %v", types.ErrJudgeParse, err)
	}
	return v, nil
}

// response is the answer schema. Pointers distinguish a missing field from a
// zero value.
type response struct {
	Status             *string      `json:"status"`
	Confidence         *float64     `json:"confidence"`
	MatchedCandidateID *candidateID `json:"matched_candidate_id"`
	Rationale          *string      `json:"rationale"`
}

// candidateID accepts the id as a JSON string or, since platform ids look
// numeric, as a bare number kept in its decimal form.
type candidateID string

func (c *candidateID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = candidateID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("matched_candidate_id must be a string or number, got %s", data)
	}
	*c = candidateID(n.String())
	return nil
}

// convert validates resp and applies the repairs.
func (j *Judge) convert(resp response, candidates []types.Candidate) (types.Verdict, error) {
	var problems []string

	var status types.VerdictStatus
	if resp.Status == nil {
		problems = append(problems, "missing status")
	} else {
		status = types.VerdictStatus(strings.TrimSpace(*resp.Status))
		if !status.Valid() {
			problems = append(problems, fmt.Sprintf("invalid status %q", *resp.Status))
		}
	}

	var confidence float64
	if resp.Confidence == nil {
		problems = append(problems, "missing confidence")
	} else {
		confidence = *resp.Confidence
		if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
			problems = append(problems, fmt.Sprintf("confidence %f out of range [0,1]", confidence))
		}
	}

	var rationale string
	if resp.Rationale != nil {
		rationale = strings.TrimSpace(*resp.Rationale)
	}
	if rationale == "" {
		problems = append(problems, "empty rationale")
	}

	var matchedID string
	if resp.MatchedCandidateID != nil {
		matchedID = strings.TrimSpace(string(*resp.MatchedCandidateID))
	}
	if status.Matched() && matchedID == "" {
		problems = append(problems, fmt.Sprintf("status %s without matched_candidate_id", status))
	}

	if len(problems) > 0 {
		return types.Verdict{}, fmt.Errorf("%w: %s", types.ErrJudgeParse, strings.Join(problems, "; "))
	}
	if confidence < j.minConfidence {
		return types.Verdict{}, fmt.Errorf("%w: no confident match (confidence %.2f below %.2f)",
			types.ErrJudgeParse, confidence, j.minConfidence)
	}

	v := types.Verdict{
		Status:             status,
		Confidence:         confidence,
		MatchedCandidateID: matchedID,
		Rationale:          rationale,
	}
	return j.repair(v, candidates), nil
}

// repair enforces the verdict invariants against the offered candidates.
func (j *Judge) repair(v types.Verdict, candidates []types.Candidate) types.Verdict {
	if v.Status == types.StatusNotFound {
		if v.MatchedCandidateID != "" {
			j.logger.Debug("clearing candidate id on NOT_FOUND", zap.String("candidate", v.MatchedCandidateID))
			v.MatchedCandidateID = ""
		}
		return v
	}

	c, ok := findCandidate(candidates, v.MatchedCandidateID)
	if !ok {
		j.logger.Warn("judge named an unknown candidate",
			zap.String("candidate", v.MatchedCandidateID),
			zap.String("status", string(v.Status)))
		v.Rationale = fmt.Sprintf("model matched unknown candidate %q, treated as not found; model said: %s",
			v.MatchedCandidateID, v.Rationale)
		v.Status = types.StatusNotFound
		v.MatchedCandidateID = ""
		return v
	}

	if v.Status == types.StatusAvailable && c.StatusHint == types.HintComingSoon {
		j.logger.Warn("judge reported a coming-soon listing as available",
			zap.String("candidate", c.PlatformID),
			zap.String("title", c.Title))
		v.Status = types.StatusPending
		v.Rationale = fmt.Sprintf("candidate %s is listed as coming soon and not yet readable, recorded as pending; model said: %s",
			c.PlatformID, v.Rationale)
	}
	return v
}

func findCandidate(candidates []types.Candidate, id string) (types.Candidate, bool) {
	for _, c := range candidates {
		if c.PlatformID == id {
			return c, true
		}
	}
	return types.Candidate{}, false
}

// callWithRetry calls the backend with exponential backoff. Non-retryable
// HTTP status errors stop the loop at once.
func (j *Judge) callWithRetry(ctx context.Context, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= j.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			j.logger.Warn("judge request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := j.backend.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var se *httputil.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return "", err
		}
	}
	return "", fmt.Errorf("after %d retries: %w", j.maxRetries, lastErr)
}
