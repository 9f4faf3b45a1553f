// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// WeRead bookStatus values.
const (
	bookStatusOnShelf  = 1
	bookStatusUpcoming = 5
)

const snippetLimit = 200

// comingSoonMarkers are phrases that signal a pre-order or upcoming listing.
// They only refine an unknown platform status; the judge reads the snippet too.
var comingSoonMarkers = []string{
	"即将上架", "待上架", "预告", "预售", "敬请期待", "即将上线",
	"coming soon", "pre-order", "preorder",
}

var stripHTML = bluemonday.StrictPolicy()

// Normalize maps raw platform records to candidates. It never fails:
// unparseable fields become empty strings or HintUnknown. Platform order is
// preserved because it is the only relevance signal the judge gets. A record
// repeating an earlier platform id is dropped.
func Normalize(records []RawRecord) []types.Candidate {
	candidates := make([]types.Candidate, 0, len(records))
	seen := make(map[string]bool, len(records))

	for i, r := range records {
		id := stringField(r, "bookId")
		if id == "" {
			id = fmt.Sprintf("pos-%d", i+1)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		statusText, hint := statusOf(r)
		intro := cleanText(stringField(r, "intro"))
		if hint == types.HintUnknown && mentionsComingSoon(intro) {
			hint = types.HintComingSoon
		}

		candidates = append(candidates, types.Candidate{
			PlatformID: id,
			Title:      foldText(stringField(r, "title")),
			Author:     foldText(stringField(r, "author")),
			StatusHint: hint,
			RawSnippet: buildSnippet(statusText, foldText(stringField(r, "publisher")), intro),
		})
	}
	return candidates
}

// statusOf reads bookStatus/soldout into a human-readable status and a hint.
func statusOf(r RawRecord) (string, types.StatusHint) {
	status, hasStatus := intField(r, "bookStatus")
	soldout, _ := intField(r, "soldout")

	switch {
	case hasStatus && status == bookStatusOnShelf && soldout == 0:
		return "已上架可阅读", types.HintReadable
	case status == bookStatusUpcoming || soldout == 1:
		return "待上架（可订阅但不可阅读）", types.HintComingSoon
	case hasStatus:
		return fmt.Sprintf("未知状态(bookStatus=%d, soldout=%d)", status, soldout), types.HintUnknown
	default:
		return "", types.HintUnknown
	}
}

func mentionsComingSoon(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range comingSoonMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func buildSnippet(status, publisher, intro string) string {
	var parts []string
	if status != "" {
		parts = append(parts, "状态: "+status)
	}
	if publisher != "" {
		parts = append(parts, "出版社: "+publisher)
	}
	if intro != "" {
		parts = append(parts, "简介: "+truncateRunes(intro, snippetLimit))
	}
	return strings.Join(parts, " | ")
}

// foldText applies NFKC and width folding so full-width punctuation and
// letters compare equal to their narrow forms, then collapses whitespace.
func foldText(s string) string {
	s = width.Fold.String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// cleanText strips markup from platform prose before folding it.
func cleanText(s string) string {
	return foldText(stripHTML.Sanitize(s))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// stringField returns r[key] rendered as a string, or "" when absent or
// not scalar.
func stringField(r RawRecord, key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// intField returns r[key] as an int and whether it parsed.
func intField(r RawRecord, key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
