// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/internal/httputil"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

// WeReadClient queries the WeChat Read global search endpoint.
type WeReadClient struct {
	client *http.Client
	cfg    types.SearchConfig
	logger *zap.Logger
}

// NewWeReadClient builds a client from cfg. A zero Timeout falls back to 30s.
func NewWeReadClient(cfg types.SearchConfig, logger *zap.Logger) *WeReadClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = types.DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeReadClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// Search tries each keyword from Keywords in turn and returns the first
// non-empty hit list. A keyword whose retries run out is skipped in favour
// of the next one; ErrSearchUnavailable is returned only when the last
// keyword tried failed too.
func (c *WeReadClient) Search(ctx context.Context, query types.BookQuery) (Result, error) {
	keywords := Keywords(query)
	if len(keywords) == 0 {
		return Result{}, fmt.Errorf("search: empty title")
	}

	var (
		res     Result
		lastErr error
	)
	for _, kw := range keywords {
		res.Keyword = kw
		res.Attempted = append(res.Attempted, kw)

		records, err := c.fetch(ctx, kw)
		if err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("%w: %v", types.ErrSearchUnavailable, ctx.Err())
			}
			c.logger.Warn("search keyword failed",
				zap.String("keyword", kw), zap.Error(err))
			lastErr = fmt.Errorf("keyword %q: %w", kw, err)
			continue
		}
		lastErr = nil
		c.logger.Debug("search keyword done", zap.String("keyword", kw), zap.Int("hits", len(records)))
		if len(records) > 0 {
			res.Records = records
			return res, nil
		}
	}
	if lastErr != nil {
		return res, fmt.Errorf("%w: %v", types.ErrSearchUnavailable, lastErr)
	}
	return res, nil
}

// fetch runs one keyword inside a bounded retry loop. Every failure is
// retried: transport errors, any non-2xx status (WeRead answers 403 when it
// throttles), a body that is not JSON (a captcha page) and a non-zero
// errcode.
func (c *WeReadClient) fetch(ctx context.Context, keyword string) ([]RawRecord, error) {
	params := url.Values{"keyword": {keyword}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", "https://weread.qq.com/")

	var records []RawRecord
	err = httputil.Retry(ctx, httputil.Policy{
		MaxRetries: c.cfg.MaxRetries,
		BaseDelay:  c.cfg.RetryDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.logger.Warn("search request failed, retrying",
				zap.String("keyword", keyword),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	}, func(ctx context.Context) error {
		var err error
		records, err = c.fetchOnce(ctx, req)
		return err
	})
	return records, err
}

func (c *WeReadClient) fetchOnce(ctx context.Context, req *http.Request) ([]RawRecord, error) {
	resp, err := c.client.Do(req.Clone(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var wr wereadResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parsing WeRead response: %w", err)
	}
	if wr.ErrCode != 0 {
		return nil, fmt.Errorf("WeRead error %d: %s", wr.ErrCode, wr.ErrMsg)
	}

	var records []RawRecord
	for _, b := range wr.Books {
		if b.BookInfo == nil {
			continue
		}
		records = append(records, b.BookInfo)
		if len(records) >= c.cfg.MaxResults {
			break
		}
	}
	return records, nil
}

// WeRead search JSON structures.
type wereadResponse struct {
	Books      []wereadBook `json:"books"`
	TotalCount int          `json:"totalCount"`
	ErrCode    int          `json:"errcode"`
	ErrMsg     string       `json:"errmsg"`
}

type wereadBook struct {
	BookInfo RawRecord `json:"bookInfo"`
}
