// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the reading platform for a book and turns the raw
// hits into uniform candidates for the availability judge.
//
// A search never mutates the reading list. An empty hit list is a valid
// outcome; only transport failures that survive the bounded retries are
// errors, and those wrap types.ErrSearchUnavailable.
package search

import (
	"context"
	"strings"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// RawRecord is one platform hit before normalization. Values are kept as
// decoded from JSON so the normalizer can tolerate odd field types.
type RawRecord map[string]any

// Result holds the raw hits for one book.
type Result struct {
	// Keyword is the keyword that produced Records, or the last keyword tried
	// when nothing was found.
	Keyword string

	// Attempted lists every keyword sent, in order.
	Attempted []string

	// Records are in platform relevance order.
	Records []RawRecord
}

// Client searches one platform. Implementations are expected to bound every
// request with a timeout.
type Client interface {
	Search(ctx context.Context, query types.BookQuery) (Result, error)
}

// Keywords returns the search keywords for q, most specific first. With an
// author the combined "title author" keyword disambiguates homonymous titles;
// the bare title follows for recall.
func Keywords(q types.BookQuery) []string {
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return nil
	}
	author := strings.TrimSpace(q.Author)
	if author == "" {
		return []string{title}
	}
	return []string{title + " " + author, title}
}
