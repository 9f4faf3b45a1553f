// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package booklist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

const sample = `books:
  - title: 三体
    author: 刘慈欣
  - id: huozhe
    title: " 活着 "
    author: 余华
  - title: 已读完的书
    available: true
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestOpenAssignsIDs(t *testing.T) {
	s, err := Open(writeSample(t))
	require.NoError(t, err)

	recs := s.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "book-1", recs[0].ID)
	assert.Equal(t, "huozhe", recs[1].ID)
	assert.Equal(t, "活着", recs[1].Title)
	assert.Equal(t, "book-3", recs[2].ID)
}

func TestGeneratedIDsAvoidExplicitOnes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`books:
  - id: book-2
    title: 三体
  - title: 活着
  - id: book-2
    title: 球状闪电
`), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	recs := s.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "book-2", recs[0].ID)
	assert.Equal(t, "book-3", recs[1].ID)
	assert.Equal(t, "book-4", recs[2].ID, "duplicate explicit id is replaced")

	require.NoError(t, s.Update(context.Background(), recs[1].ID, types.RecordUpdate{IsAvailable: true, Notes: "已上架"}))
	reopened, err := Open(path)
	require.NoError(t, err)
	got := reopened.Records()
	assert.False(t, got[0].IsAvailable, "explicit book-2 untouched")
	assert.True(t, got[1].IsAvailable)
	assert.Equal(t, "已上架", got[1].Notes)
}

func TestListPendingSkipsAvailable(t *testing.T) {
	s, err := Open(writeSample(t))
	require.NoError(t, err)

	pending, err := s.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "三体", pending[0].Title)
	assert.Equal(t, "活着", pending[1].Title)
}

func TestUpdateWritesThrough(t *testing.T) {
	path := writeSample(t)
	s, err := Open(path)
	require.NoError(t, err)

	checked := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Update(context.Background(), "huozhe", types.RecordUpdate{
		IsAvailable:   true,
		LastChecked:   checked,
		SearchKeyword: "活着 余华",
		Notes:         "一致",
	}))

	reopened, err := Open(path)
	require.NoError(t, err)
	rec := reopened.Records()[1]
	assert.True(t, rec.IsAvailable)
	assert.True(t, checked.Equal(rec.LastChecked))
	assert.Equal(t, "一致", rec.Notes)

	pending, err := reopened.ListPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestUpdateUnknownID(t *testing.T) {
	s := NewMemory(types.BookRecord{Title: "活着"})
	err := s.Update(context.Background(), "nope", types.RecordUpdate{})
	assert.ErrorIs(t, err, types.ErrPersistence)
}

func TestNewMemoryNeverWrites(t *testing.T) {
	s := NewMemory(types.BookRecord{Title: "活着", Author: "余华"})
	require.NoError(t, s.Update(context.Background(), "book-1", types.RecordUpdate{IsAvailable: true}))
	assert.True(t, s.Records()[0].IsAvailable)
	assert.NoError(t, s.SetSummary(types.RunReport{RunID: "r"}))
}

func TestSetSummary(t *testing.T) {
	path := writeSample(t)
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.SetSummary(types.RunReport{
		RunID: "run-1",
		Results: []types.CheckResult{
			{Outcome: types.OutcomePending},
			{Outcome: types.OutcomeAvailable},
		},
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: run-1")
	assert.Contains(t, string(data), "pending: 1")
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
