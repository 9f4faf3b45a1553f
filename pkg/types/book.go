// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the shelfwatch pipeline:
// reading-list records, search candidates, availability verdicts,
// configuration and the error taxonomy shared across stages.
package types

import (
	"strings"
	"time"
)

// PriorStatus is the availability state a book carried into the current run.
type PriorStatus string

const (
	PriorUnknown   PriorStatus = "unknown"
	PriorAvailable PriorStatus = "available"
	PriorPending   PriorStatus = "pending"
)

// PendingNotePrefix marks notes written for a PENDING verdict so the next run
// can tell a pre-order book from one that was never found.
const PendingNotePrefix = "[PENDING] "

// BookRecord is one row of the reading list. The record store owns it; the
// pipeline only reads it and writes back a RecordUpdate.
type BookRecord struct {
	// ID is the store's identifier (the Notion page id).
	ID string `json:"id" yaml:"id"`

	// Title is the book title as entered by the user.
	Title string `json:"title" yaml:"title"`

	// Author is optional; when present it narrows the search.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// IsAvailable is true once the book has been found readable. Terminal.
	IsAvailable bool `json:"is_available" yaml:"is_available"`

	// LastChecked is the time of the last conclusive check.
	LastChecked time.Time `json:"last_checked,omitempty" yaml:"last_checked,omitempty"`

	// SearchKeyword is the keyword used by the last conclusive check.
	SearchKeyword string `json:"search_keyword,omitempty" yaml:"search_keyword,omitempty"`

	// Notes carries the judge rationale of the last conclusive check.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// PriorStatus derives the availability state recorded by previous runs.
func (r BookRecord) PriorStatus() PriorStatus {
	switch {
	case r.IsAvailable:
		return PriorAvailable
	case strings.HasPrefix(r.Notes, PendingNotePrefix):
		return PriorPending
	default:
		return PriorUnknown
	}
}

// Query builds the search query for this record.
func (r BookRecord) Query() BookQuery {
	return BookQuery{
		Title:       strings.TrimSpace(r.Title),
		Author:      strings.TrimSpace(r.Author),
		PriorStatus: r.PriorStatus(),
	}
}

// RecordUpdate is the single logical write-back applied to a BookRecord.
type RecordUpdate struct {
	IsAvailable   bool
	LastChecked   time.Time
	SearchKeyword string
	Notes         string
}

// Apply returns a copy of r with the update folded in.
func (u RecordUpdate) Apply(r BookRecord) BookRecord {
	r.IsAvailable = u.IsAvailable
	r.LastChecked = u.LastChecked
	r.SearchKeyword = u.SearchKeyword
	r.Notes = u.Notes
	return r
}

// BookQuery is what the search and judge stages see of a book.
type BookQuery struct {
	// Title is trimmed and must be non-empty.
	Title string `json:"title" yaml:"title"`

	// Author is optional. Without it the search is wider but weaker.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	PriorStatus PriorStatus `json:"prior_status,omitempty" yaml:"prior_status,omitempty"`
}

// Valid reports whether the query has a usable title.
func (q BookQuery) Valid() bool {
	return strings.TrimSpace(q.Title) != ""
}

// Label returns "title" or "title / author" for logs and messages.
func (q BookQuery) Label() string {
	if q.Author == "" {
		return q.Title
	}
	return q.Title + " / " + q.Author
}
