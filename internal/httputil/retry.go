// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RetryBaseDelay is the backoff used when a Policy leaves BaseDelay unset.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = time.Second

const defaultMaxRetries = 2

// Policy bounds DoWithRetry and Retry. MaxRetries counts retries after the first
// attempt; zero or less means the default (2).
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// OnRetry, when set, is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// StatusError is returned for a non-2xx response that was not recovered.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// DoWithRetry executes req and retries transport errors and 408/429/5xx
// responses with exponential backoff: BaseDelay, 2×BaseDelay, 4×BaseDelay...
//
// The loop is bounded: at most 1+MaxRetries requests are sent. A 2xx or 3xx
// response is returned to the caller, who must close its body. Any other
// outcome is returned as an error; non-retryable 4xx responses fail
// immediately. Context cancellation during a backoff wait returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, p Policy) (*http.Response, error) {
	var out *http.Response
	err := Retry(ctx, p, func(ctx context.Context) error {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return err
		}
		if resp.StatusCode < http.StatusBadRequest {
			out = resp
			return nil
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: drainSnippet(resp.Body)}
		resp.Body.Close()
		if !statusErr.Retryable() {
			return Permanent(statusErr)
		}
		return statusErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// permanentError stops Retry without further attempts.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns the wrapped
// error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it returns nil, returns an error marked Permanent,
// or 1+MaxRetries attempts have failed. Every other error is retried after
// the same backoff DoWithRetry uses. Exhaustion wraps the last error as
// "after N retries: ...".
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	base := p.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := base << (attempt - 1)
			if p.OnRetry != nil {
				p.OnRetry(attempt, delay, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// drainSnippet reads and discards the body, keeping a short prefix for errors.
func drainSnippet(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 512))
	io.Copy(io.Discard, body)
	return strings.TrimSpace(string(data))
}
