// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// rewriteTransport sends every request to the test server, keeping the path.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	req.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

// fakeNotion serves the handful of endpoints the store uses.
type fakeNotion struct {
	mu         sync.Mutex
	schemaJSON string
	pages      []string // query result pages, one JSON array per call
	queries    []map[string]any
	updates    map[string]map[string]any
	dbUpdates  []map[string]any
	search     string
	failUpdate bool
}

func (f *fakeNotion) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/databases/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"object":"database","id":%q,"title":[{"type":"text","plain_text":"书单","text":{"content":"书单"}}],"properties":%s}`,
			r.PathValue("id"), f.schemaJSON)
	})
	mux.HandleFunc("PATCH /v1/databases/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.dbUpdates = append(f.dbUpdates, decodeBody(t, r.Body))
		f.mu.Unlock()
		fmt.Fprintf(w, `{"object":"database","id":%q,"properties":{}}`, r.PathValue("id"))
	})
	mux.HandleFunc("POST /v1/databases/{id}/query", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		call := len(f.queries)
		f.queries = append(f.queries, decodeBody(t, r.Body))
		f.mu.Unlock()
		hasMore := call < len(f.pages)-1
		next := ""
		if hasMore {
			next = fmt.Sprintf("cursor-%d", call+1)
		}
		fmt.Fprintf(w, `{"object":"list","results":%s,"has_more":%t,"next_cursor":%q}`, f.pages[call], hasMore, next)
	})
	mux.HandleFunc("PATCH /v1/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.failUpdate {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"object":"error","status":400,"code":"validation_error","message":"bad property"}`)
			return
		}
		f.mu.Lock()
		if f.updates == nil {
			f.updates = map[string]map[string]any{}
		}
		f.updates[r.PathValue("id")] = decodeBody(t, r.Body)
		f.mu.Unlock()
		fmt.Fprintf(w, `{"object":"page","id":%q,"properties":{}}`, r.PathValue("id"))
	})
	mux.HandleFunc("POST /v1/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.search)
	})
	return mux
}

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var m map[string]any
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	if len(data) == 0 {
		return m
	}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func newTestStore(t *testing.T, f *fakeNotion) *Store {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	client := &http.Client{Transport: rewriteTransport{target: target}, Timeout: 5 * time.Second}
	return NewStore(types.NotionConfig{APIToken: "secret", DatabaseID: "db1"}, client, nil)
}

const fullSchema = `{
	"书名": {"id": "title", "type": "title", "title": {}},
	"作者": {"id": "a", "type": "rich_text", "rich_text": {}},
	"已上架": {"id": "b", "type": "checkbox", "checkbox": {}},
	"最后检查时间": {"id": "c", "type": "date", "date": {}},
	"搜索关键词": {"id": "d", "type": "rich_text", "rich_text": {}},
	"备注": {"id": "e", "type": "rich_text", "rich_text": {}}
}`

func page(id, title, author string, available bool, notes string) string {
	return fmt.Sprintf(`{"object":"page","id":%q,"archived":false,"properties":{
		"书名":{"id":"title","type":"title","title":[{"type":"text","plain_text":%q,"text":{"content":%q}}]},
		"作者":{"id":"a","type":"rich_text","rich_text":[{"type":"text","plain_text":%q,"text":{"content":%q}}]},
		"已上架":{"id":"b","type":"checkbox","checkbox":%t},
		"最后检查时间":{"id":"c","type":"date","date":{"start":"2026-01-02T09:00:00Z"}},
		"搜索关键词":{"id":"d","type":"rich_text","rich_text":[]},
		"备注":{"id":"e","type":"rich_text","rich_text":[{"type":"text","plain_text":%q,"text":{"content":%q}}]}
	}}`, id, title, title, author, author, available, notes, notes)
}

func TestListPendingPaginatesAndSkipsAvailable(t *testing.T) {
	f := &fakeNotion{
		schemaJSON: fullSchema,
		pages: []string{
			"[" + page("p1", "三体", "刘慈欣", false, "[PENDING] 即将上架") + "," + page("p2", "活着", "余华", true, "") + "]",
			"[" + page("p3", "不存在的书名XYZ", "", false, "") + "]",
		},
	}
	s := newTestStore(t, f)

	records, err := s.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "p1", records[0].ID)
	assert.Equal(t, "三体", records[0].Title)
	assert.Equal(t, "刘慈欣", records[0].Author)
	assert.Equal(t, types.PriorPending, records[0].PriorStatus())
	assert.Equal(t, time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC), records[0].LastChecked.UTC())
	assert.Equal(t, "p3", records[1].ID)

	require.Len(t, f.queries, 2)
	assert.Nil(t, f.queries[0]["start_cursor"])
	assert.Equal(t, "cursor-1", f.queries[1]["start_cursor"])
}

func TestUpdateWritesAllColumnsInOneRequest(t *testing.T) {
	f := &fakeNotion{schemaJSON: fullSchema}
	s := newTestStore(t, f)

	checked := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	err := s.Update(context.Background(), "p2", types.RecordUpdate{
		IsAvailable:   true,
		LastChecked:   checked,
		SearchKeyword: "活着 余华",
		Notes:         "书名作者一致",
	})
	require.NoError(t, err)

	require.Contains(t, f.updates, "p2")
	props, ok := f.updates["p2"]["properties"].(map[string]any)
	require.True(t, ok)

	avail := props["已上架"].(map[string]any)
	assert.Equal(t, true, avail["checkbox"])

	date := props["最后检查时间"].(map[string]any)["date"].(map[string]any)
	assert.True(t, strings.HasPrefix(date["start"].(string), "2026-03-01T09:00:00"))

	notes := props["备注"].(map[string]any)["rich_text"].([]any)
	require.Len(t, notes, 1)
	text := notes[0].(map[string]any)["text"].(map[string]any)
	assert.Equal(t, "书名作者一致", text["content"])

	kw := props["搜索关键词"].(map[string]any)["rich_text"].([]any)
	require.Len(t, kw, 1)
}

func TestUpdateFailureIsPersistenceError(t *testing.T) {
	f := &fakeNotion{schemaJSON: fullSchema, failUpdate: true}
	s := newTestStore(t, f)

	err := s.Update(context.Background(), "p1", types.RecordUpdate{LastChecked: time.Now()})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPersistence)
}

func TestUpdateSkipsMissingColumns(t *testing.T) {
	f := &fakeNotion{schemaJSON: `{
		"书名": {"id": "title", "type": "title", "title": {}},
		"备注": {"id": "n", "type": "rich_text", "rich_text": {}}
	}`}
	s := newTestStore(t, f)

	require.NoError(t, s.Update(context.Background(), "p1", types.RecordUpdate{Notes: "未找到", LastChecked: time.Now()}))
	props := f.updates["p1"]["properties"].(map[string]any)
	assert.Len(t, props, 1)
	assert.Contains(t, props, "备注")
}

func TestUpdateAvailableWithoutCheckboxColumnFails(t *testing.T) {
	f := &fakeNotion{schemaJSON: `{
		"书名": {"id": "title", "type": "title", "title": {}},
		"备注": {"id": "n", "type": "rich_text", "rich_text": {}}
	}`}
	s := newTestStore(t, f)

	err := s.Update(context.Background(), "p1", types.RecordUpdate{IsAvailable: true, Notes: "已上架"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.NotContains(t, f.updates, "p1", "nothing is written when the verdict cannot be stored")
}

func TestRichTextTruncates(t *testing.T) {
	long := strings.Repeat("字", maxRichText+50)
	rt := richText(long)
	require.Len(t, rt.RichText, 1)
	assert.Len(t, []rune(rt.RichText[0].Text.Content), maxRichText)
	assert.Empty(t, richText("").RichText)
}
