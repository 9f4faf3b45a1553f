// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers the run summary to webhook channels (WeCom group
// robots and Feishu custom bots). Delivery failures are reported to the
// caller wrapped in types.ErrNotification and never retried.
package notify

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxShownAvailable = 10
	maxShownFailures  = 5
	timeLayout        = "2006-01-02 15:04:05"
)

// BookLine is one book listed in a summary.
type BookLine struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`

	// Detail is the failure reason for failed books; unused otherwise.
	Detail string `json:"detail,omitempty"`
}

func (b BookLine) label() string {
	if b.Author == "" {
		return b.Title
	}
	return b.Title + " - " + b.Author
}

// Summary is the payload of one run notification.
type Summary struct {
	CheckedAt time.Time `json:"checked_at"`

	Total     int `json:"total"`
	Available int `json:"available"`
	Pending   int `json:"pending"`
	NotFound  int `json:"not_found"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	NewlyAvailable []BookLine `json:"newly_available,omitempty"`
	Failures       []BookLine `json:"failures,omitempty"`

	// Test marks a connectivity test message.
	Test bool `json:"test,omitempty"`
}

// TestSummary returns the message sent by "notify test".
func TestSummary(now time.Time) Summary {
	return Summary{CheckedAt: now, Test: true}
}

func (s Summary) title() string {
	if s.Test {
		return "📚 shelfwatch 通知测试"
	}
	return "📚 书籍检查报告"
}

func (s Summary) statsLines() []string {
	return []string{
		fmt.Sprintf("总书籍数: %d", s.Total),
		fmt.Sprintf("新上架: %d 本", s.Available),
		fmt.Sprintf("待上架: %d 本", s.Pending),
		fmt.Sprintf("未找到: %d 本", s.NotFound),
		fmt.Sprintf("已跳过: %d 本", s.Skipped),
		fmt.Sprintf("检查失败: %d 本", s.Failed),
	}
}

func (s Summary) availableLines(bullet string) []string {
	var lines []string
	for i, b := range s.NewlyAvailable {
		if i == maxShownAvailable {
			lines = append(lines, fmt.Sprintf("%s…另有 %d 本", bullet, len(s.NewlyAvailable)-maxShownAvailable))
			break
		}
		lines = append(lines, bullet+b.label())
	}
	return lines
}

func (s Summary) failureLines(bullet string) []string {
	var lines []string
	for i, b := range s.Failures {
		if i == maxShownFailures {
			lines = append(lines, fmt.Sprintf("%s…另有 %d 本", bullet, len(s.Failures)-maxShownFailures))
			break
		}
		lines = append(lines, fmt.Sprintf("%s%s: %s", bullet, b.Title, b.Detail))
	}
	return lines
}

// Markdown renders the summary as WeCom-flavoured Markdown.
func (s Summary) Markdown() string {
	lines := []string{
		"## " + s.title(),
		"",
		"**检查时间**: " + s.CheckedAt.Format(timeLayout),
	}
	if s.Test {
		lines = append(lines, "", "通知渠道配置正常。")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "", "### 📊 统计信息")
	for _, l := range s.statsLines() {
		lines = append(lines, "- "+l)
	}
	if len(s.NewlyAvailable) > 0 {
		lines = append(lines, "", fmt.Sprintf("### ✅ 新上架书籍 (%d)", len(s.NewlyAvailable)))
		lines = append(lines, s.availableLines("- ")...)
	}
	if len(s.Failures) > 0 {
		lines = append(lines, "", fmt.Sprintf("### ⚠️ 检查失败 (%d)", len(s.Failures)))
		lines = append(lines, s.failureLines("- ")...)
	}
	return strings.Join(lines, "\n")
}

// Feishu interactive card structures.
type feishuCard struct {
	Header   feishuHeader    `json:"header"`
	Elements []feishuElement `json:"elements"`
}

type feishuHeader struct {
	Title    feishuText `json:"title"`
	Template string     `json:"template"`
}

type feishuElement struct {
	Tag  string      `json:"tag"`
	Text *feishuText `json:"text,omitempty"`
}

type feishuText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

func mdDiv(content string) feishuElement {
	return feishuElement{Tag: "div", Text: &feishuText{Tag: "lark_md", Content: content}}
}

var hr = feishuElement{Tag: "hr"}

// card renders the summary as a Feishu interactive card.
func (s Summary) card() feishuCard {
	c := feishuCard{
		Header: feishuHeader{
			Title:    feishuText{Tag: "plain_text", Content: s.title()},
			Template: "blue",
		},
		Elements: []feishuElement{
			mdDiv("**检查时间**: " + s.CheckedAt.Format(timeLayout)),
		},
	}
	if s.Test {
		c.Elements = append(c.Elements, mdDiv("通知渠道配置正常。"))
		return c
	}

	c.Elements = append(c.Elements, hr,
		mdDiv("**📊 统计信息**\n"+strings.Join(s.statsLines(), "\n")))
	if len(s.NewlyAvailable) > 0 {
		c.Header.Template = "green"
		head := fmt.Sprintf("**✅ 新上架书籍 (%d)**\n", len(s.NewlyAvailable))
		c.Elements = append(c.Elements, hr, mdDiv(head+strings.Join(s.availableLines("• "), "\n")))
	}
	if len(s.Failures) > 0 {
		head := fmt.Sprintf("**⚠️ 检查失败 (%d)**\n", len(s.Failures))
		c.Elements = append(c.Elements, hr, mdDiv(head+strings.Join(s.failureLines("• "), "\n")))
	}
	return c
}
