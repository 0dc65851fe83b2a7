// Package search provides full-text search over the book collection using
// Bleve. Titles, authors and summaries are analyzed with the CJK analyzer so
// Chinese text is searchable by bigram; tags and status are exact keywords.
package search

import (
	"github.com/readingnook/readingnook-server/internal/domain"
)

// Document is the indexed form of a book.
type Document struct {
	ID       string
	Title    string
	Author   string
	Summary  string
	Thoughts string
	Tags     []string
	Status   string
	Rating   int
	AddedAt  int64 // Unix millis
}

// FromBook builds the index document for a book.
func FromBook(b *domain.Book) *Document {
	return &Document{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Summary:  b.Summary,
		Thoughts: b.Thoughts,
		Tags:     b.Tags,
		Status:   string(b.Status),
		Rating:   b.Rating,
		AddedAt:  b.AddedAt,
	}
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":       d.ID,
		"title":    d.Title,
		"author":   d.Author,
		"status":   d.Status,
		"rating":   d.Rating,
		"added_at": d.AddedAt,
	}
	if d.Summary != "" {
		m["summary"] = d.Summary
	}
	if d.Thoughts != "" {
		m["thoughts"] = d.Thoughts
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
