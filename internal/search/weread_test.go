// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

func testCfg(baseURL string) types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
		BaseURL:    baseURL,
		MaxResults: 10,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}
}

// keywordServer answers with a canned body per keyword and records the
// keywords it saw.
type keywordServer struct {
	mu     sync.Mutex
	seen   []string
	bodies map[string]string
	status int
}

func (s *keywordServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kw := r.URL.Query().Get("keyword")
	s.mu.Lock()
	s.seen = append(s.seen, kw)
	s.mu.Unlock()

	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	body, ok := s.bodies[kw]
	if !ok {
		body = `{"books":[],"totalCount":0}`
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func TestWeReadSearchFirstKeywordHits(t *testing.T) {
	ks := &keywordServer{bodies: map[string]string{
		"活着 余华": `{"books":[{"bookInfo":{"bookId":"b1","title":"活着","author":"余华","bookStatus":1,"soldout":0}}],"totalCount":1}`,
	}}
	srv := httptest.NewServer(ks)
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	res, err := c.Search(context.Background(), types.BookQuery{Title: "活着", Author: "余华"})
	require.NoError(t, err)

	assert.Equal(t, "活着 余华", res.Keyword)
	assert.Equal(t, []string{"活着 余华"}, res.Attempted)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "b1", res.Records[0]["bookId"])
}

func TestWeReadSearchFallsBackToTitle(t *testing.T) {
	ks := &keywordServer{bodies: map[string]string{
		"活着": `{"books":[{"bookInfo":{"bookId":"b2","title":"活着"}}]}`,
	}}
	srv := httptest.NewServer(ks)
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	res, err := c.Search(context.Background(), types.BookQuery{Title: "活着", Author: "余华"})
	require.NoError(t, err)

	assert.Equal(t, "活着", res.Keyword)
	assert.Equal(t, []string{"活着 余华", "活着"}, res.Attempted)
	assert.Len(t, res.Records, 1)
}

func TestWeReadSearchNoHitsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(&keywordServer{})
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	res, err := c.Search(context.Background(), types.BookQuery{Title: "不存在的书名XYZ"})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, "不存在的书名XYZ", res.Keyword)
}

func TestWeReadSearchServerErrorExhaustsRetries(t *testing.T) {
	ks := &keywordServer{status: http.StatusBadGateway}
	srv := httptest.NewServer(ks)
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	_, err := c.Search(context.Background(), types.BookQuery{Title: "三体"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSearchUnavailable))
	assert.Len(t, ks.seen, 3, "one request plus two retries")
}

func TestWeReadSearchPlatformErrorCode(t *testing.T) {
	ks := &keywordServer{bodies: map[string]string{
		"三体": `{"errcode":-2012,"errmsg":"login timeout"}`,
	}}
	srv := httptest.NewServer(ks)
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	_, err := c.Search(context.Background(), types.BookQuery{Title: "三体"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSearchUnavailable)
	assert.Contains(t, err.Error(), "login timeout")
	assert.Len(t, ks.seen, 3, "errcode is retried like any other failure")
}

func TestWeReadSearchCapsResults(t *testing.T) {
	body := `{"books":[`
	for i := 0; i < 15; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"bookInfo":{"bookId":"id%d","title":"t%d"}}`, i, i)
	}
	body += `]}`
	ks := &keywordServer{bodies: map[string]string{"三体": body}}
	srv := httptest.NewServer(ks)
	defer srv.Close()

	cfg := testCfg(srv.URL)
	cfg.MaxResults = 4
	c := NewWeReadClient(cfg, nil)
	res, err := c.Search(context.Background(), types.BookQuery{Title: "三体"})
	require.NoError(t, err)
	require.Len(t, res.Records, 4)
	assert.Equal(t, "id0", res.Records[0]["bookId"])
	assert.Equal(t, "id3", res.Records[3]["bookId"])
}

func TestWeReadSearchSendsHeaders(t *testing.T) {
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		fmt.Fprint(w, `{"books":[]}`)
	}))
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	_, err := c.Search(context.Background(), types.BookQuery{Title: "三体"})
	require.NoError(t, err)
	assert.Equal(t, "test/0.1", gotUA)
	assert.Equal(t, "https://weread.qq.com/", gotReferer)
}

func TestWeReadSearchEmptyTitle(t *testing.T) {
	c := NewWeReadClient(testCfg("http://127.0.0.1:1"), nil)
	_, err := c.Search(context.Background(), types.BookQuery{Title: "  "})
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrSearchUnavailable))
}

// step is one canned reply; a zero status means 200.
type step struct {
	status int
	body   string
}

// scriptedServer replays steps per keyword, repeating the last step once the
// script runs out.
type scriptedServer struct {
	mu      sync.Mutex
	seen    []string
	scripts map[string][]step
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kw := r.URL.Query().Get("keyword")
	s.mu.Lock()
	s.seen = append(s.seen, kw)
	script := s.scripts[kw]
	st := step{body: `{"books":[]}`}
	if len(script) > 0 {
		st = script[0]
		if len(script) > 1 {
			s.scripts[kw] = script[1:]
		}
	}
	s.mu.Unlock()

	if st.status != 0 {
		w.WriteHeader(st.status)
	}
	fmt.Fprint(w, st.body)
}

const hitBody = `{"books":[{"bookInfo":{"bookId":"695233","title":"活着","author":"余华"}}]}`

func TestWeReadSearchRetriesForbiddenThenSucceeds(t *testing.T) {
	ss := &scriptedServer{scripts: map[string][]step{
		"活着 余华": {{status: http.StatusForbidden, body: "blocked"}, {body: hitBody}},
	}}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	res, err := c.Search(context.Background(), types.BookQuery{Title: "活着", Author: "余华"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "695233", res.Records[0]["bookId"])
	assert.Equal(t, []string{"活着 余华", "活着 余华"}, ss.seen)
}

func TestWeReadSearchRetriesNonJSONBody(t *testing.T) {
	ss := &scriptedServer{scripts: map[string][]step{
		"活着 余华": {{body: "<html>captcha</html>"}, {body: hitBody}},
	}}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	res, err := c.Search(context.Background(), types.BookQuery{Title: "活着", Author: "余华"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Len(t, ss.seen, 2)
}

func TestWeReadSearchFailedKeywordFallsThroughToTitle(t *testing.T) {
	ss := &scriptedServer{scripts: map[string][]step{
		"活着 余华": {{status: http.StatusForbidden}},
		"活着":    {{body: hitBody}},
	}}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	res, err := c.Search(context.Background(), types.BookQuery{Title: "活着", Author: "余华"})
	require.NoError(t, err)
	assert.Equal(t, "活着", res.Keyword)
	require.Len(t, res.Records, 1)
	assert.Equal(t, []string{"活着 余华", "活着 余华", "活着 余华", "活着"}, ss.seen)
}

func TestWeReadSearchEveryKeywordFails(t *testing.T) {
	ss := &scriptedServer{scripts: map[string][]step{
		"活着 余华": {{status: http.StatusForbidden}},
		"活着":    {{body: "<html>captcha</html>"}},
	}}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	c := NewWeReadClient(testCfg(srv.URL), nil)
	res, err := c.Search(context.Background(), types.BookQuery{Title: "活着", Author: "余华"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSearchUnavailable)
	assert.Contains(t, err.Error(), `keyword "活着"`)
	assert.Equal(t, []string{"活着 余华", "活着"}, res.Attempted)
	assert.Len(t, ss.seen, 6, "three attempts per keyword")
}
