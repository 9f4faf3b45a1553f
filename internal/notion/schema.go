// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notion

import (
	"github.com/jomei/notionapi"
)

// Column name candidates, first match wins. The first entry is the name
// "notion init" creates.
var (
	titleNames       = []string{"书名", "名称", "Name", "Title", "书籍名称"}
	authorNames      = []string{"作者", "Author", "作者名"}
	availableNames   = []string{"已上架", "Available", "微信读书可用"}
	lastCheckedNames = []string{"最后检查时间", "Last Check", "检查时间"}
	keywordNames     = []string{"搜索关键词", "Keywords", "关键词"}
	notesNames       = []string{"备注", "Notes", "说明"}
)

// Schema maps record fields to the database's column names. An empty name
// means the column is absent.
type Schema struct {
	Title       string
	Author      string
	Available   string
	LastChecked string
	Keyword     string
	Notes       string
}

// Missing lists the writable columns the database lacks.
func (s Schema) Missing() []string {
	var missing []string
	if s.Available == "" {
		missing = append(missing, availableNames[0])
	}
	if s.LastChecked == "" {
		missing = append(missing, lastCheckedNames[0])
	}
	if s.Keyword == "" {
		missing = append(missing, keywordNames[0])
	}
	if s.Notes == "" {
		missing = append(missing, notesNames[0])
	}
	return missing
}

// resolveSchema picks column names from the database's property configs.
// A candidate only matches when its column has the expected type. Without a
// named title column the database's title property is used.
func resolveSchema(props notionapi.PropertyConfigs) Schema {
	s := Schema{
		Title:       pick(props, titleNames, notionapi.PropertyConfigTypeTitle),
		Author:      pick(props, authorNames, notionapi.PropertyConfigTypeRichText),
		Available:   pick(props, availableNames, notionapi.PropertyConfigTypeCheckbox),
		LastChecked: pick(props, lastCheckedNames, notionapi.PropertyConfigTypeDate),
		Keyword:     pick(props, keywordNames, notionapi.PropertyConfigTypeRichText),
		Notes:       pick(props, notesNames, notionapi.PropertyConfigTypeRichText),
	}
	if s.Title == "" {
		for name, cfg := range props {
			if cfg.GetType() == notionapi.PropertyConfigTypeTitle {
				s.Title = name
				break
			}
		}
	}
	return s
}

func pick(props notionapi.PropertyConfigs, candidates []string, want notionapi.PropertyConfigType) string {
	for _, name := range candidates {
		if cfg, ok := props[name]; ok && cfg.GetType() == want {
			return name
		}
	}
	return ""
}

// missingConfigs returns property configs for the columns "notion init"
// should add.
func missingConfigs(s Schema) notionapi.PropertyConfigs {
	add := notionapi.PropertyConfigs{}
	if s.Author == "" {
		add[authorNames[0]] = &notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}
	}
	if s.Available == "" {
		add[availableNames[0]] = &notionapi.CheckboxPropertyConfig{Type: notionapi.PropertyConfigTypeCheckbox}
	}
	if s.LastChecked == "" {
		add[lastCheckedNames[0]] = &notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate}
	}
	if s.Keyword == "" {
		add[keywordNames[0]] = &notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}
	}
	if s.Notes == "" {
		add[notesNames[0]] = &notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}
	}
	return add
}
