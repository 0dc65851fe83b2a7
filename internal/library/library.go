// Package library holds the in-memory book collection and derives the views
// shown to readers.
package library

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/readingnook/readingnook-server/internal/domain"
)

// Library is the authoritative in-memory collection.
// It is safe for concurrent use; every read returns copies.
type Library struct {
	mu    sync.RWMutex
	books []*domain.Book
}

// New creates an empty library.
func New() *Library {
	return &Library{books: []*domain.Book{}}
}

// Load replaces the collection with books read from storage.
func (l *Library) Load(books []*domain.Book) {
	l.ReplaceAll(books)
}

// ReplaceAll discards the previous collection entirely.
func (l *Library) ReplaceAll(books []*domain.Book) {
	next := make([]*domain.Book, 0, len(books))
	for _, b := range books {
		if b != nil {
			next = append(next, b.Clone())
		}
	}

	l.mu.Lock()
	l.books = next
	l.mu.Unlock()
}

// Upsert replaces the book with the same id in place, or prepends it.
// It reports whether an existing book was replaced.
func (l *Library) Upsert(book *domain.Book) bool {
	c := book.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexOf(book.ID); i >= 0 {
		l.books[i] = c
		return true
	}
	l.books = slices.Insert(l.books, 0, c)
	return false
}

// Remove drops the book with id. It reports whether anything was removed.
func (l *Library) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.books = slices.Delete(l.books, i, i+1)
	return true
}

// Get returns a copy of the book with id.
func (l *Library) Get(id string) (*domain.Book, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.indexOf(id); i >= 0 {
		return l.books[i].Clone(), true
	}
	return nil, false
}

// Len returns the number of books.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.books)
}

// Snapshot returns a copy of the collection in stored order.
func (l *Library) Snapshot() []*domain.Book {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.Book, len(l.books))
	for i, b := range l.books {
		out[i] = b.Clone()
	}
	return out
}

// DeriveView returns the filtered, sorted view of the current collection.
func (l *Library) DeriveView(filter domain.ViewFilter) []*domain.Book {
	return DeriveView(l.Snapshot(), filter)
}

// DeriveStats returns counts of the current collection.
func (l *Library) DeriveStats() domain.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return DeriveStats(l.books)
}

// caller holds l.mu.
func (l *Library) indexOf(id string) int {
	return slices.IndexFunc(l.books, func(b *domain.Book) bool { return b.ID == id })
}

// DeriveView filters books by status and search text and sorts them newest
// first. The search text is matched as typed, spaces included, against title
// and author. Ties keep their input order. The input slice is not modified.
func DeriveView(books []*domain.Book, filter domain.ViewFilter) []*domain.Book {
	needle := Fold(filter.Search)

	out := make([]*domain.Book, 0, len(books))
	for _, b := range books {
		if !filter.MatchesAllStatuses() && string(b.Status) != filter.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(Fold(b.Title), needle) &&
			!strings.Contains(Fold(b.Author), needle) {
			continue
		}
		out = append(out, b)
	}

	slices.SortStableFunc(out, func(a, b *domain.Book) int {
		switch {
		case a.AddedAt > b.AddedAt:
			return -1
		case a.AddedAt < b.AddedAt:
			return 1
		default:
			return 0
		}
	})
	return out
}

// DeriveStats counts books by status.
func DeriveStats(books []*domain.Book) domain.Stats {
	stats := domain.Stats{Total: len(books)}
	for _, b := range books {
		switch b.Status {
		case domain.StatusReading:
			stats.Reading++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusPlanToRead:
			stats.PlanToRead++
		}
	}
	return stats
}

// Fold normalizes s for case-insensitive matching: full-width forms become
// their ASCII equivalents and letters are case-folded.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(s))
}
