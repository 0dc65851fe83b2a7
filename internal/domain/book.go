// Package domain contains the core entities of the ReadingNook library.
package domain

import (
	"slices"
	"time"
)

// Placeholders substituted when a source record carries no title or author.
const (
	UntitledPlaceholder      = "無標題"
	UnknownAuthorPlaceholder = "未知作者"
	UnknownLookupTitle       = "未知書名"

	MinRating = 0
	MaxRating = 5
)

// Book is one library entry.
type Book struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	Status        ReadingStatus `json:"status"`
	Rating        int           `json:"rating"`
	Summary       string        `json:"summary"`
	Thoughts      string        `json:"thoughts"`
	Tags          []string      `json:"tags"`
	AddedAt       int64         `json:"added_at"` // epoch milliseconds
	CoverURL      string        `json:"cover_url,omitempty"`
	CoverBlurhash string        `json:"cover_blurhash,omitempty"`
	SourceID      string        `json:"source_id,omitempty"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

// IsImported reports whether the book came from an external sync.
func (b *Book) IsImported() bool {
	return b.SourceID != ""
}

// Clone returns a deep copy so callers can hand books out without sharing tags.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	c := *b
	c.Tags = slices.Clone(b.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if b.UpdatedAt != nil {
		t := *b.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// AddedTime returns AddedAt as a time.Time.
func (b *Book) AddedTime() time.Time {
	return time.UnixMilli(b.AddedAt)
}

// MergeTags returns existing followed by every suggested tag not already present.
// Order of first appearance is preserved; empty tags are dropped.
func MergeTags(existing, suggested []string) []string {
	seen := make(map[string]bool, len(existing)+len(suggested))
	merged := make([]string, 0, len(existing)+len(suggested))
	for _, list := range [][]string{existing, suggested} {
		for _, tag := range list {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}
