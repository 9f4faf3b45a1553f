// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jomei/notionapi"
)

// Column describes one database property.
type Column struct {
	Name string
	Type string
}

// DatabaseInfo describes one database the integration can access.
type DatabaseInfo struct {
	ID    string
	Title string
	URL   string
}

// Init adds the columns shelfwatch writes but the database lacks. It returns
// the names of the added columns; an empty slice means nothing was missing.
func (s *Store) Init(ctx context.Context) ([]string, error) {
	db, err := s.client.Database.Get(ctx, s.databaseID)
	if err != nil {
		return nil, fmt.Errorf("retrieving database %s: %w", s.databaseID, err)
	}
	schema := resolveSchema(db.Properties)
	add := missingConfigs(schema)
	if len(add) == 0 {
		return nil, nil
	}

	if _, err := s.client.Database.Update(ctx, s.databaseID, &notionapi.DatabaseUpdateRequest{
		Properties: add,
	}); err != nil {
		return nil, fmt.Errorf("updating database %s: %w", s.databaseID, err)
	}

	s.mu.Lock()
	s.schema = nil
	s.mu.Unlock()

	added := make([]string, 0, len(add))
	for name := range add {
		added = append(added, name)
	}
	sort.Strings(added)
	return added, nil
}

// Inspect lists the database's columns sorted by name, plus the resolved
// schema.
func (s *Store) Inspect(ctx context.Context) ([]Column, Schema, error) {
	db, err := s.client.Database.Get(ctx, s.databaseID)
	if err != nil {
		return nil, Schema{}, fmt.Errorf("retrieving database %s: %w", s.databaseID, err)
	}
	cols := make([]Column, 0, len(db.Properties))
	for name, cfg := range db.Properties {
		cols = append(cols, Column{Name: name, Type: string(cfg.GetType())})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols, resolveSchema(db.Properties), nil
}

// Databases lists every database shared with the integration.
func (s *Store) Databases(ctx context.Context) ([]DatabaseInfo, error) {
	var out []DatabaseInfo
	var cursor notionapi.Cursor
	for {
		resp, err := s.client.Search.Do(ctx, &notionapi.SearchRequest{
			Filter:      notionapi.SearchFilter{Property: "object", Value: "database"},
			StartCursor: cursor,
			PageSize:    queryPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("searching databases: %w", err)
		}
		for _, obj := range resp.Results {
			db, ok := obj.(*notionapi.Database)
			if !ok {
				continue
			}
			out = append(out, DatabaseInfo{
				ID:    string(db.ID),
				Title: plainText(db.Title),
				URL:   db.URL,
			})
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return out, nil
}

func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}
