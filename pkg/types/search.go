// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StatusHint is the normalizer's reading of a platform's status signal. It is
// advisory: the judge makes the final call, except that a coming_soon
// candidate can never be reported as available.
type StatusHint string

const (
	HintReadable   StatusHint = "readable"
	HintComingSoon StatusHint = "coming_soon"
	HintUnknown    StatusHint = "unknown"
)

// Candidate is one normalized search hit considered as a possible match.
// Candidates are produced fresh for every query and never persisted on their
// own. Slice order is the platform's relevance order.
type Candidate struct {
	// PlatformID is unique per platform (the WeRead bookId).
	PlatformID string `json:"platform_id" yaml:"platform_id"`

	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`

	StatusHint StatusHint `json:"status_hint" yaml:"status_hint"`

	// RawSnippet is free text from the platform: status text, intro excerpt.
	RawSnippet string `json:"raw_snippet,omitempty" yaml:"raw_snippet,omitempty"`
}
