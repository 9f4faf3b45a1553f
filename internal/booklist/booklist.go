// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package booklist is a reading-list store backed by a YAML file, used by
// the check command to run the pipeline without Notion. Results are written
// back into the same file so a list can be re-checked later.
package booklist

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// File is the on-disk representation of a book list.
type File struct {
	Books   []Book   `yaml:"books"`
	Summary *Summary `yaml:"summary,omitempty"`
}

// Book is one entry of the list.
type Book struct {
	ID            string    `yaml:"id,omitempty"`
	Title         string    `yaml:"title"`
	Author        string    `yaml:"author,omitempty"`
	Available     bool      `yaml:"available,omitempty"`
	LastChecked   time.Time `yaml:"last_checked,omitempty"`
	SearchKeyword string    `yaml:"search_keyword,omitempty"`
	Notes         string    `yaml:"notes,omitempty"`
}

// Summary stores the totals of the last run over the file.
type Summary struct {
	RunID     string    `yaml:"run_id"`
	Checked   int       `yaml:"checked"`
	Available int       `yaml:"available"`
	Pending   int       `yaml:"pending"`
	NotFound  int       `yaml:"not_found"`
	Failed    int       `yaml:"failed"`
	Timestamp time.Time `yaml:"timestamp"`
}

func (b Book) record() types.BookRecord {
	return types.BookRecord{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		IsAvailable:   b.Available,
		LastChecked:   b.LastChecked,
		SearchKeyword: b.SearchKeyword,
		Notes:         b.Notes,
	}
}

// Store holds a list in memory. With a path, every Update is written
// through to the file.
type Store struct {
	mu   sync.Mutex
	path string
	file File
}

// Open loads path. Books without an id get "book-<n>".
func Open(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading book list: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing book list: %w", err)
	}
	s := &Store{path: path, file: f}
	s.assignIDs()
	return s, nil
}

// NewMemory returns a store over records that is never written to disk.
func NewMemory(records ...types.BookRecord) *Store {
	s := &Store{}
	for _, r := range records {
		s.file.Books = append(s.file.Books, Book{
			ID:            r.ID,
			Title:         r.Title,
			Author:        r.Author,
			Available:     r.IsAvailable,
			LastChecked:   r.LastChecked,
			SearchKeyword: r.SearchKeyword,
			Notes:         r.Notes,
		})
	}
	s.assignIDs()
	return s
}

// assignIDs keeps the first use of every explicit id and gives the other
// books book-<n>, skipping any n already taken.
func (s *Store) assignIDs() {
	seen := map[string]bool{}
	for i := range s.file.Books {
		b := &s.file.Books[i]
		b.Title = strings.TrimSpace(b.Title)
		b.Author = strings.TrimSpace(b.Author)
		b.ID = strings.TrimSpace(b.ID)
		if seen[b.ID] {
			b.ID = ""
		}
		if b.ID != "" {
			seen[b.ID] = true
		}
	}
	for i := range s.file.Books {
		b := &s.file.Books[i]
		if b.ID != "" {
			continue
		}
		for n := i + 1; ; n++ {
			id := fmt.Sprintf("book-%d", n)
			if !seen[id] {
				b.ID = id
				seen[id] = true
				break
			}
		}
	}
}

// ListPending returns the books not yet available, in file order.
func (s *Store) ListPending(_ context.Context) ([]types.BookRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.BookRecord
	for _, b := range s.file.Books {
		if b.Available {
			continue
		}
		out = append(out, b.record())
	}
	return out, nil
}

// Update applies u to the book and saves the file.
func (s *Store) Update(_ context.Context, recordID string, u types.RecordUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.file.Books {
		b := &s.file.Books[i]
		if b.ID != recordID {
			continue
		}
		b.Available = u.IsAvailable
		b.LastChecked = u.LastChecked
		b.SearchKeyword = u.SearchKeyword
		b.Notes = u.Notes
		if err := s.saveLocked(); err != nil {
			return fmt.Errorf("%w: %v", types.ErrPersistence, err)
		}
		return nil
	}
	return fmt.Errorf("%w: no book with id %q", types.ErrPersistence, recordID)
}

// Records returns a snapshot of every book.
func (s *Store) Records() []types.BookRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.BookRecord, len(s.file.Books))
	for i, b := range s.file.Books {
		out[i] = b.record()
	}
	return out
}

// SetSummary stores the run totals and saves the file.
func (s *Store) SetSummary(r types.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.Summary = &Summary{
		RunID:     r.RunID,
		Checked:   len(r.Results) - r.Count(types.OutcomeSkipped),
		Available: r.Count(types.OutcomeAvailable),
		Pending:   r.Count(types.OutcomePending),
		NotFound:  r.Count(types.OutcomeNotFound),
		Failed:    r.Count(types.OutcomeFailed),
		Timestamp: r.FinishedAt,
	}
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(&s.file)
	if err != nil {
		return fmt.Errorf("marshaling book list: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing book list: %w", err)
	}
	return os.Rename(tmp, s.path)
}
