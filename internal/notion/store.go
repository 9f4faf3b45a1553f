// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notion implements the reading-list store on a Notion database and
// the schema tooling behind the "notion" command.
//
// Column names are resolved from lists of accepted names (Chinese and
// English), so existing databases work without renaming.
package notion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// maxRichText is Notion's limit for one rich-text content string.
const maxRichText = 2000

const queryPageSize = 100

// Store reads pending books from and writes verdicts to one database.
type Store struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
	logger     *zap.Logger

	mu     sync.Mutex
	schema *Schema
}

// NewStore builds a store from cfg. httpClient may be nil.
func NewStore(cfg types.NotionConfig, httpClient *http.Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Store{
		client:     notionapi.NewClient(notionapi.Token(cfg.APIToken), notionapi.WithHTTPClient(httpClient)),
		databaseID: notionapi.DatabaseID(cfg.DatabaseID),
		logger:     logger,
	}
}

// Schema returns the resolved column names, fetching the database once.
func (s *Store) Schema(ctx context.Context) (Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schema != nil {
		return *s.schema, nil
	}

	db, err := s.client.Database.Get(ctx, s.databaseID)
	if err != nil {
		return Schema{}, fmt.Errorf("retrieving database %s: %w", s.databaseID, err)
	}
	schema := resolveSchema(db.Properties)
	if schema.Title == "" {
		return Schema{}, fmt.Errorf("database %s has no title column", s.databaseID)
	}
	if missing := schema.Missing(); len(missing) > 0 {
		s.logger.Warn("database is missing columns, run `shelfwatch notion init`",
			zap.Strings("missing", missing))
	}
	s.schema = &schema
	return schema, nil
}

// ListPending returns every record not yet marked available, in database
// order, following pagination to the end.
func (s *Store) ListPending(ctx context.Context) ([]types.BookRecord, error) {
	schema, err := s.Schema(ctx)
	if err != nil {
		return nil, err
	}

	var records []types.BookRecord
	var cursor notionapi.Cursor
	skipped := 0
	for {
		resp, err := s.client.Database.Query(ctx, s.databaseID, &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    queryPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("querying database %s: %w", s.databaseID, err)
		}

		for _, page := range resp.Results {
			if page.Archived {
				continue
			}
			r := recordFromPage(page, schema)
			if r.IsAvailable {
				skipped++
				continue
			}
			if strings.TrimSpace(r.Title) == "" {
				s.logger.Warn("skipping page without title", zap.String("page", r.ID))
				continue
			}
			records = append(records, r)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	s.logger.Info("loaded reading list",
		zap.Int("pending", len(records)),
		zap.Int("already_available", skipped))
	return records, nil
}

// Update writes u to the record's page in one request. Optional columns
// absent from the database are left out, but marking a record available
// without an available column fails: the record would stay pending and be
// announced again on the next run. Failures wrap types.ErrPersistence.
func (s *Store) Update(ctx context.Context, recordID string, u types.RecordUpdate) error {
	schema, err := s.Schema(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	if u.IsAvailable && schema.Available == "" {
		return fmt.Errorf("%w: cannot mark %s available, database has no checkbox column (run `shelfwatch notion init`)", types.ErrPersistence, recordID)
	}

	props := updateProperties(schema, u)
	if len(props) == 0 {
		return fmt.Errorf("%w: database has none of the writable columns", types.ErrPersistence)
	}

	_, err = s.client.Page.Update(ctx, notionapi.PageID(recordID), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	if err != nil {
		return fmt.Errorf("%w: updating page %s: %v", types.ErrPersistence, recordID, err)
	}
	return nil
}

// recordFromPage maps a page onto a BookRecord.
func recordFromPage(page notionapi.Page, schema Schema) types.BookRecord {
	r := types.BookRecord{ID: string(page.ID)}
	props := page.Properties

	r.Title = textOf(props[schema.Title])
	r.Author = textOf(props[schema.Author])
	r.SearchKeyword = textOf(props[schema.Keyword])
	r.Notes = textOf(props[schema.Notes])

	if p, ok := props[schema.Available].(*notionapi.CheckboxProperty); ok {
		r.IsAvailable = p.Checkbox
	}
	if p, ok := props[schema.LastChecked].(*notionapi.DateProperty); ok && p.Date != nil && p.Date.Start != nil {
		r.LastChecked = time.Time(*p.Date.Start)
	}
	return r
}

// textOf flattens title and rich-text properties to plain text.
func textOf(p notionapi.Property) string {
	var parts []notionapi.RichText
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		parts = v.Title
	case *notionapi.RichTextProperty:
		parts = v.RichText
	default:
		return ""
	}
	var b strings.Builder
	for _, rt := range parts {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

func updateProperties(schema Schema, u types.RecordUpdate) notionapi.Properties {
	props := notionapi.Properties{}
	if schema.Available != "" {
		props[schema.Available] = &notionapi.CheckboxProperty{
			Type:     notionapi.PropertyTypeCheckbox,
			Checkbox: u.IsAvailable,
		}
	}
	if schema.LastChecked != "" {
		start := notionapi.Date(u.LastChecked)
		props[schema.LastChecked] = &notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &start},
		}
	}
	if schema.Keyword != "" {
		props[schema.Keyword] = richText(u.SearchKeyword)
	}
	if schema.Notes != "" {
		props[schema.Notes] = richText(u.Notes)
	}
	return props
}

func richText(s string) *notionapi.RichTextProperty {
	if runes := []rune(s); len(runes) > maxRichText {
		s = string(runes[:maxRichText-1]) + "…"
	}
	content := []notionapi.RichText{}
	if s != "" {
		content = append(content, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		})
	}
	return &notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: content,
	}
}
