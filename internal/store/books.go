package store

import (
	"context"
	"slices"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/sse"
)

// ListBooks returns every stored book, newest first.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book
	for book, err := range s.Books.List(ctx) {
		if err != nil {
			return nil, err
		}
		if book.Tags == nil {
			book.Tags = []string{}
		}
		books = append(books, book)
	}
	sortNewestFirst(books)
	return books, nil
}

// GetBook returns the book with id, or ErrNotFound.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.Books.Get(ctx, id)
}

// GetBookBySource returns the book imported from the given Notion page.
func (s *Store) GetBookBySource(ctx context.Context, sourceID string) (*domain.Book, error) {
	return s.Books.GetByIndex(ctx, "source", sourceID)
}

// CreateBook stores a new book and broadcasts book.created.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if book.ID == "" || !book.Status.Valid() {
		return ErrInvalidInput
	}
	if err := s.Books.Create(ctx, book.ID, book); err != nil {
		return err
	}
	s.eventEmitter.Emit(sse.NewBookCreatedEvent(book.Clone()))
	return nil
}

// UpdateBook replaces an existing book and broadcasts book.updated.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	if book.ID == "" || !book.Status.Valid() {
		return ErrInvalidInput
	}
	if err := s.Books.Update(ctx, book.ID, book); err != nil {
		return err
	}
	s.eventEmitter.Emit(sse.NewBookUpdatedEvent(book.Clone()))
	return nil
}

// DeleteBook removes a book. Deleting a missing book is not an error.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	if err := s.Books.Delete(ctx, id); err != nil {
		return err
	}
	s.eventEmitter.Emit(sse.NewBookDeletedEvent(id))
	return nil
}

// ReplaceBooks atomically swaps the stored collection for books.
func (s *Store) ReplaceBooks(ctx context.Context, books []*domain.Book) error {
	ids := make([]string, len(books))
	for i, b := range books {
		if b.ID == "" || !b.Status.Valid() {
			return ErrInvalidInput
		}
		ids[i] = b.ID
	}
	return s.Books.ReplaceAll(ctx, ids, books)
}

// CountBooks returns the number of stored books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return s.Books.Count(ctx)
}

func sortNewestFirst(books []*domain.Book) {
	slices.SortStableFunc(books, func(a, b *domain.Book) int {
		switch {
		case a.AddedAt > b.AddedAt:
			return -1
		case a.AddedAt < b.AddedAt:
			return 1
		default:
			return 0
		}
	})
}
