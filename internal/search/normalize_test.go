// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

func TestNormalizeStatusHints(t *testing.T) {
	tests := []struct {
		name   string
		record RawRecord
		want   types.StatusHint
	}{
		{"on shelf", RawRecord{"bookId": "a", "bookStatus": 1.0, "soldout": 0.0}, types.HintReadable},
		{"upcoming status", RawRecord{"bookId": "a", "bookStatus": 5.0, "soldout": 0.0}, types.HintComingSoon},
		{"sold out", RawRecord{"bookId": "a", "bookStatus": 1.0, "soldout": 1.0}, types.HintComingSoon},
		{"other status", RawRecord{"bookId": "a", "bookStatus": 3.0}, types.HintUnknown},
		{"missing status", RawRecord{"bookId": "a"}, types.HintUnknown},
		{"string status", RawRecord{"bookId": "a", "bookStatus": "1", "soldout": "0"}, types.HintReadable},
		{"json number status", RawRecord{"bookId": "a", "bookStatus": json.Number("5")}, types.HintComingSoon},
		{"garbage status", RawRecord{"bookId": "a", "bookStatus": []any{1}}, types.HintUnknown},
		{"intro says coming soon", RawRecord{"bookId": "a", "intro": "本书即将上架，敬请期待"}, types.HintComingSoon},
		{"english marker", RawRecord{"bookId": "a", "bookStatus": 3.0, "intro": "Coming Soon to your shelf"}, types.HintComingSoon},
		{"marker does not override readable", RawRecord{"bookId": "a", "bookStatus": 1.0, "intro": "预售版已结束"}, types.HintReadable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]RawRecord{tt.record})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].StatusHint)
		})
	}
}

func TestNormalizePreservesOrder(t *testing.T) {
	records := []RawRecord{
		{"bookId": "c", "title": "C"},
		{"bookId": "a", "title": "A"},
		{"bookId": "b", "title": "B"},
	}
	got := Normalize(records)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].PlatformID)
	assert.Equal(t, "a", got[1].PlatformID)
	assert.Equal(t, "b", got[2].PlatformID)
}

func TestNormalizeMissingAndDuplicateIDs(t *testing.T) {
	records := []RawRecord{
		{"title": "no id"},
		{"bookId": "x", "title": "first"},
		{"bookId": "x", "title": "second"},
		{"bookId": 12345.0, "title": "numeric id"},
	}
	got := Normalize(records)
	require.Len(t, got, 3)
	assert.Equal(t, "pos-1", got[0].PlatformID)
	assert.Equal(t, "first", got[1].Title)
	assert.Equal(t, "12345", got[2].PlatformID)
}

func TestNormalizeFoldsText(t *testing.T) {
	got := Normalize([]RawRecord{{
		"bookId": "a",
		"title":  "三体（Ｉ）",
		"author": "  刘慈欣   著 ",
	}})
	require.Len(t, got, 1)
	assert.Equal(t, "三体(I)", got[0].Title)
	assert.Equal(t, "刘慈欣 著", got[0].Author)
}

func TestNormalizeSnippet(t *testing.T) {
	long := strings.Repeat("长", 300)
	got := Normalize([]RawRecord{{
		"bookId":     "a",
		"bookStatus": 1.0,
		"publisher":  "作家出版社",
		"intro":      "<p>讲述了<b>福贵</b>的一生</p>" + long,
	}})
	require.Len(t, got, 1)
	s := got[0].RawSnippet
	assert.Contains(t, s, "状态: 已上架可阅读")
	assert.Contains(t, s, "出版社: 作家出版社")
	assert.Contains(t, s, "讲述了福贵的一生")
	assert.NotContains(t, s, "<b>")
	assert.True(t, strings.HasSuffix(s, "…"))
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]RawRecord{}))
}

func TestNormalizeIsPure(t *testing.T) {
	records := []RawRecord{{"bookId": "a", "title": "活着", "bookStatus": 1.0}}
	first := Normalize(records)
	second := Normalize(records)
	assert.Equal(t, first, second)
	assert.Equal(t, "活着", records[0]["title"])
}
