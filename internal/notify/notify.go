// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// Channel is one webhook sink.
type Channel interface {
	Name() string
	Send(ctx context.Context, s Summary) error
}

// Dispatcher fans a summary out to every enabled channel.
type Dispatcher struct {
	channels []Channel
	logger   *zap.Logger
}

// NewDispatcher builds channels for cfg.EnabledChannels. A channel enabled
// without a webhook URL is skipped with a warning; config validation normally
// rejects that combination earlier.
func NewDispatcher(cfg types.NotificationConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var channels []Channel
	for _, name := range cfg.EnabledChannels {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case types.ChannelWeCom:
			if cfg.WeComWebhook == "" {
				logger.Warn("wecom enabled without webhook, skipping")
				continue
			}
			channels = append(channels, &WeCom{Webhook: cfg.WeComWebhook, Client: client})
		case types.ChannelFeishu:
			if cfg.FeishuWebhook == "" {
				logger.Warn("feishu enabled without webhook, skipping")
				continue
			}
			channels = append(channels, &Feishu{Webhook: cfg.FeishuWebhook, Client: client})
		default:
			logger.Warn("unknown notification channel", zap.String("channel", name))
		}
	}
	return newDispatcherWithChannels(logger, channels...)
}

// newDispatcherWithChannels wraps explicit channels.
func newDispatcherWithChannels(logger *zap.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{channels: channels, logger: logger}
}

// Channels returns the names of the configured channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, c := range d.channels {
		names[i] = c.Name()
	}
	return names
}

// Notify sends s on every channel. Every channel is attempted; the returned
// error joins one types.ErrNotification per failed channel. No channels is
// not an error.
func (d *Dispatcher) Notify(ctx context.Context, s Summary) error {
	if len(d.channels) == 0 {
		d.logger.Info("no notification channels configured, skipping")
		return nil
	}

	var errs []error
	sent := 0
	for _, c := range d.channels {
		if err := c.Send(ctx, s); err != nil {
			d.logger.Error("notification failed", zap.String("channel", c.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%w: %s: %v", types.ErrNotification, c.Name(), err))
			continue
		}
		sent++
	}
	d.logger.Info("notifications sent", zap.Int("ok", sent), zap.Int("channels", len(d.channels)))
	return errors.Join(errs...)
}

// WeCom posts Markdown messages to a WeCom group robot.
type WeCom struct {
	Webhook string
	Client  *http.Client
}

func (w *WeCom) Name() string { return types.ChannelWeCom }

// Send posts s and checks the robot's errcode.
func (w *WeCom) Send(ctx context.Context, s Summary) error {
	payload := map[string]any{
		"msgtype":  "markdown",
		"markdown": map[string]string{"content": s.Markdown()},
	}
	var result struct {
		ErrCode *int   `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := postJSON(ctx, w.Client, w.Webhook, payload, &result); err != nil {
		return err
	}
	if result.ErrCode == nil || *result.ErrCode != 0 {
		code := -1
		if result.ErrCode != nil {
			code = *result.ErrCode
		}
		return fmt.Errorf("wecom errcode %d: %s", code, result.ErrMsg)
	}
	return nil
}

// Feishu posts interactive cards to a Feishu custom bot.
type Feishu struct {
	Webhook string
	Client  *http.Client
}

func (f *Feishu) Name() string { return types.ChannelFeishu }

// Send posts s and checks the bot's code. Older bots answer with
// StatusCode instead of code.
func (f *Feishu) Send(ctx context.Context, s Summary) error {
	payload := map[string]any{
		"msg_type": "interactive",
		"card":     s.card(),
	}
	var result struct {
		Code       *int   `json:"code"`
		Msg        string `json:"msg"`
		StatusCode *int   `json:"StatusCode"`
	}
	if err := postJSON(ctx, f.Client, f.Webhook, payload, &result); err != nil {
		return err
	}
	if (result.Code != nil && *result.Code == 0) || (result.StatusCode != nil && *result.StatusCode == 0) {
		return nil
	}
	code := -1
	if result.Code != nil {
		code = *result.Code
	}
	return fmt.Errorf("feishu code %d: %s", code, result.Msg)
}

// postJSON sends payload and decodes the JSON reply into out.
func postJSON(ctx context.Context, client *http.Client, url string, payload, out any) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
