// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

var checkedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleSummary() Summary {
	return Summary{
		CheckedAt: checkedAt,
		Total:     4,
		Available: 1,
		Pending:   1,
		NotFound:  1,
		Failed:    1,
		NewlyAvailable: []BookLine{
			{Title: "活着", Author: "余华"},
		},
		Failures: []BookLine{
			{Title: "某书", Detail: "search unavailable"},
		},
	}
}

// webhook records the decoded request body and answers with reply.
func webhook(t *testing.T, status int, reply string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.WriteHeader(status)
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// --- message rendering ---

func TestSummaryMarkdown(t *testing.T) {
	md := sampleSummary().Markdown()

	assert.True(t, strings.HasPrefix(md, "## 📚 书籍检查报告"))
	assert.Contains(t, md, "**检查时间**: 2026-03-01 09:00:00")
	assert.Contains(t, md, "- 总书籍数: 4")
	assert.Contains(t, md, "### ✅ 新上架书籍 (1)")
	assert.Contains(t, md, "- 活着 - 余华")
	assert.Contains(t, md, "### ⚠️ 检查失败 (1)")
	assert.Contains(t, md, "- 某书: search unavailable")
}

func TestSummaryMarkdownCapsLists(t *testing.T) {
	s := Summary{CheckedAt: checkedAt}
	for i := 0; i < 12; i++ {
		s.NewlyAvailable = append(s.NewlyAvailable, BookLine{Title: fmt.Sprintf("书%02d", i)})
	}
	for i := 0; i < 7; i++ {
		s.Failures = append(s.Failures, BookLine{Title: fmt.Sprintf("败%02d", i), Detail: "x"})
	}
	md := s.Markdown()

	assert.Contains(t, md, "书09")
	assert.NotContains(t, md, "书10")
	assert.Contains(t, md, "…另有 2 本")
	assert.Contains(t, md, "败04")
	assert.NotContains(t, md, "败05")
}

func TestSummaryOmitsEmptySections(t *testing.T) {
	md := Summary{CheckedAt: checkedAt, Total: 2, NotFound: 2}.Markdown()
	assert.NotContains(t, md, "新上架书籍")
	assert.NotContains(t, md, "检查失败 (")
}

func TestSummaryCard(t *testing.T) {
	c := sampleSummary().card()
	assert.Equal(t, "green", c.Header.Template)
	assert.Equal(t, "plain_text", c.Header.Title.Tag)

	var texts []string
	for _, e := range c.Elements {
		if e.Text != nil {
			texts = append(texts, e.Text.Content)
		}
	}
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "• 活着 - 余华")
	assert.Contains(t, joined, "• 某书: search unavailable")
}

func TestTestSummary(t *testing.T) {
	md := TestSummary(checkedAt).Markdown()
	assert.Contains(t, md, "通知测试")
	assert.NotContains(t, md, "统计信息")
}

// --- channels ---

func TestWeComSend(t *testing.T) {
	var got map[string]any
	srv := webhook(t, http.StatusOK, `{"errcode":0,"errmsg":"ok"}`, &got)

	w := &WeCom{Webhook: srv.URL}
	require.NoError(t, w.Send(context.Background(), sampleSummary()))

	assert.Equal(t, "markdown", got["msgtype"])
	md, ok := got["markdown"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, md["content"], "活着")
}

func TestWeComSendErrCode(t *testing.T) {
	srv := webhook(t, http.StatusOK, `{"errcode":93000,"errmsg":"invalid webhook url"}`, nil)
	err := (&WeCom{Webhook: srv.URL}).Send(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "93000")
}

func TestFeishuSend(t *testing.T) {
	var got map[string]any
	srv := webhook(t, http.StatusOK, `{"code":0,"msg":"success"}`, &got)

	f := &Feishu{Webhook: srv.URL}
	require.NoError(t, f.Send(context.Background(), sampleSummary()))
	assert.Equal(t, "interactive", got["msg_type"])
	card, ok := got["card"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, card, "elements")
}

func TestFeishuSendLegacyStatusCode(t *testing.T) {
	srv := webhook(t, http.StatusOK, `{"StatusCode":0,"StatusMessage":"success"}`, nil)
	assert.NoError(t, (&Feishu{Webhook: srv.URL}).Send(context.Background(), sampleSummary()))
}

func TestFeishuSendRejected(t *testing.T) {
	srv := webhook(t, http.StatusOK, `{"code":19001,"msg":"param invalid"}`, nil)
	err := (&Feishu{Webhook: srv.URL}).Send(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "param invalid")
}

func TestChannelHTTPError(t *testing.T) {
	srv := webhook(t, http.StatusInternalServerError, `oops`, nil)
	err := (&WeCom{Webhook: srv.URL}).Send(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

// --- dispatcher ---

type fakeChannel struct {
	name string
	err  error
	sent []Summary
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, s Summary) error {
	f.sent = append(f.sent, s)
	return f.err
}

func TestDispatcherAttemptsEveryChannel(t *testing.T) {
	bad := &fakeChannel{name: "wecom", err: errors.New("boom")}
	good := &fakeChannel{name: "feishu"}
	d := newDispatcherWithChannels(nil, bad, good)

	err := d.Notify(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotification)
	assert.Contains(t, err.Error(), "wecom")
	assert.Len(t, bad.sent, 1)
	assert.Len(t, good.sent, 1)
}

func TestDispatcherNoChannels(t *testing.T) {
	d := NewDispatcher(types.NotificationConfig{}, nil)
	assert.Empty(t, d.Channels())
	assert.NoError(t, d.Notify(context.Background(), sampleSummary()))
}

func TestNewDispatcherFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.NotificationConfig
		want []string
	}{
		{
			name: "both",
			cfg: types.NotificationConfig{
				EnabledChannels: []string{"wecom", "feishu"},
				WeComWebhook:    "http://w", FeishuWebhook: "http://f",
			},
			want: []string{"wecom", "feishu"},
		},
		{
			name: "missing webhook skipped",
			cfg: types.NotificationConfig{
				EnabledChannels: []string{"wecom", "feishu"},
				FeishuWebhook:   "http://f",
			},
			want: []string{"feishu"},
		},
		{
			name: "not enabled",
			cfg:  types.NotificationConfig{WeComWebhook: "http://w"},
			want: []string{},
		},
		{
			name: "unknown channel ignored",
			cfg: types.NotificationConfig{
				EnabledChannels: []string{"Slack", " WeCom "},
				WeComWebhook:    "http://w",
			},
			want: []string{"wecom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewDispatcher(tt.cfg, nil).Channels())
		})
	}
}

func TestDispatcherEndToEnd(t *testing.T) {
	var wecomBody, feishuBody map[string]any
	wsrv := webhook(t, http.StatusOK, `{"errcode":0}`, &wecomBody)
	fsrv := webhook(t, http.StatusOK, `{"code":0}`, &feishuBody)

	d := NewDispatcher(types.NotificationConfig{
		EnabledChannels: []string{"wecom", "feishu"},
		WeComWebhook:    wsrv.URL,
		FeishuWebhook:   fsrv.URL,
		Timeout:         time.Second,
	}, nil)
	require.NoError(t, d.Notify(context.Background(), sampleSummary()))
	assert.Equal(t, "markdown", wecomBody["msgtype"])
	assert.Equal(t, "interactive", feishuBody["msg_type"])
}
