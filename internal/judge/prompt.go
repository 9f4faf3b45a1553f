// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// systemPrompt fixes the answer schema and the readable/pending distinction.
const systemPrompt = `你是一个图书信息分析助手。根据微信读书的搜索结果，判断目标书籍是否在微信读书**已上架且可阅读**。

搜索结果按平台相关度排序，序号越小越相关。每个候选项带有 status_hint：
- readable: 平台标记为已上架可阅读
- coming_soon: 待上架、预售或预告，可订阅但不可阅读
- unknown: 平台没有给出明确状态，请结合摘要判断

判断标准：
1. 书名必须匹配（允许繁简体、版本、副标题差异），书名相同也不一定是同一本书
2. 如果提供了作者，作者必须匹配
3. 只有可以立即阅读的匹配书籍才是 AVAILABLE
4. 匹配的书籍处于待上架、预售、即将上架等状态时是 PENDING，绝不能是 AVAILABLE
5. 没有匹配的书籍时是 NOT_FOUND

只返回一个 JSON 对象，不要输出其他文字：
{
  "status": "AVAILABLE" | "PENDING" | "NOT_FOUND",
  "confidence": 0 到 1 之间的数字,
  "matched_candidate_id": 匹配候选项的 id 字符串，NOT_FOUND 时为 null,
  "rationale": 简短的判断理由
}`

// userPromptTmpl lists the query and every candidate in platform order.
var userPromptTmpl = template.Must(template.New("judge").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`目标书籍：{{.Query.Title}}
{{- if .Query.Author}}
作者：{{.Query.Author}}
{{- end}}
{{- if eq .Query.PriorStatus "pending"}}
上次检查结果：待上架
{{- end}}
搜索关键词：{{.Keyword}}

搜索结果（共 {{len .Candidates}} 条）：
{{- range $i, $c := .Candidates}}
{{inc $i}}. id="{{$c.PlatformID}}"
   书名：{{$c.Title}}
   作者：{{if $c.Author}}{{$c.Author}}{{else}}未知{{end}}
   status_hint：{{$c.StatusHint}}
{{- if $c.RawSnippet}}
   摘要：{{$c.RawSnippet}}
{{- end}}
{{- end}}

请判断目标书籍的状态，并以 JSON 格式返回。`))

type promptData struct {
	Query      types.BookQuery
	Keyword    string
	Candidates []types.Candidate
}

// renderPrompt fills userPromptTmpl for one query.
func renderPrompt(query types.BookQuery, candidates []types.Candidate, keyword string) (string, error) {
	var buf bytes.Buffer
	err := userPromptTmpl.Execute(&buf, promptData{
		Query:      query,
		Keyword:    keyword,
		Candidates: candidates,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
