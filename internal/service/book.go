// Package service holds the business logic behind the HTTP API: the book
// catalogue, the Notion sync, curator access and the lookup helpers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/readingnook/readingnook-server/internal/domain"
	domainerrors "github.com/readingnook/readingnook-server/internal/errors"
	"github.com/readingnook/readingnook-server/internal/id"
	"github.com/readingnook/readingnook-server/internal/library"
	"github.com/readingnook/readingnook-server/internal/metrics"
	"github.com/readingnook/readingnook-server/internal/search"
	"github.com/readingnook/readingnook-server/internal/store"
	"github.com/readingnook/readingnook-server/internal/validation"
)

// CoverHasher computes a blurhash for a cover URL, returning "" on failure.
type CoverHasher interface {
	Blurhash(ctx context.Context, url string) string
}

// BookRequest is the body of a create or update.
type BookRequest struct {
	Title    string   `json:"title" validate:"required,max=500"`
	Author   string   `json:"author" validate:"required,max=300"`
	Status   string   `json:"status" validate:"required,reading_status"`
	Rating   int      `json:"rating" validate:"rating"`
	Summary  string   `json:"summary" validate:"max=5000"`
	Thoughts string   `json:"thoughts" validate:"max=20000"`
	Tags     []string `json:"tags" validate:"max=50,dive,required,max=50"`
	CoverURL string   `json:"cover_url,omitempty" validate:"omitempty,http_url,max=2048"`
}

// SearchResult is a full-text search with the matching books resolved.
type SearchResult struct {
	Query  string         `json:"query"`
	Total  uint64         `json:"total"`
	TookMs int64          `json:"took_ms"`
	Books  []*domain.Book `json:"books"`
	Facets search.Facets  `json:"facets"`
}

// BookService manages the book catalogue. The library projection serves
// reads; writes go to the store first, then the projection and the index.
type BookService struct {
	repo      store.Repository
	library   *library.Library
	index     *search.SearchIndex
	covers    CoverHasher
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewBookService creates a new book service. covers and m may be nil.
func NewBookService(
	repo store.Repository,
	lib *library.Library,
	index *search.SearchIndex,
	covers CoverHasher,
	validator *validation.Validator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		repo:      repo,
		library:   lib,
		index:     index,
		covers:    covers,
		validator: validator,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Warm loads the stored collection into the projection and rebuilds the
// search index when its document count disagrees with the store.
func (s *BookService) Warm(ctx context.Context) error {
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("load books: %w", err)
	}
	s.library.Load(books)
	s.metrics.SetLibrarySize(len(books))

	count, err := s.index.DocumentCount()
	if err != nil || count != uint64(len(books)) {
		if err := s.index.ReplaceAll(ctx, books); err != nil {
			return fmt.Errorf("rebuild search index: %w", err)
		}
		s.logger.Info("search index rebuilt", "books", len(books))
	}

	s.logger.Info("library loaded", "books", len(books))
	return nil
}

// List returns the derived view for filter. Status accepts an enum name,
// a display label or ALL.
func (s *BookService) List(_ context.Context, filter domain.ViewFilter) ([]*domain.Book, error) {
	if !filter.MatchesAllStatuses() {
		status, err := domain.ParseStatus(filter.Status)
		if err != nil {
			return nil, domainerrors.Validationf("unknown status filter %q", filter.Status)
		}
		filter.Status = string(status)
	}
	return s.library.DeriveView(filter), nil
}

// Get returns one book.
func (s *BookService) Get(_ context.Context, bookID string) (*domain.Book, error) {
	book, ok := s.library.Get(bookID)
	if !ok {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}
	return book, nil
}

// Stats returns the per-status counts.
func (s *BookService) Stats(_ context.Context) domain.Stats {
	return s.library.DeriveStats()
}

// Create validates req and adds a new book.
func (s *BookService) Create(ctx context.Context, req BookRequest) (*domain.Book, error) {
	book, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}

	bookID, err := id.NewBookID()
	if err != nil {
		return nil, fmt.Errorf("generate book id: %w", err)
	}
	book.ID = bookID
	book.AddedAt = s.now().UnixMilli()
	if s.covers != nil && book.CoverURL != "" {
		book.CoverBlurhash = s.covers.Blurhash(ctx, book.CoverURL)
	}

	if err := s.repo.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	s.library.Upsert(book)
	s.indexBook(ctx, book)
	s.metrics.SetLibrarySize(s.library.Len())

	s.logger.Info("book created", "book_id", book.ID, "title", book.Title)
	return book, nil
}

// Update replaces the editable fields of a book. The id, addedAt and
// sourceId are kept.
func (s *BookService) Update(ctx context.Context, bookID string, req BookRequest) (*domain.Book, error) {
	existing, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("book %s not found", bookID)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	book, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	book.ID = existing.ID
	book.AddedAt = existing.AddedAt
	book.SourceID = existing.SourceID
	book.CoverBlurhash = existing.CoverBlurhash
	if book.CoverURL != existing.CoverURL {
		book.CoverBlurhash = ""
		if s.covers != nil && book.CoverURL != "" {
			book.CoverBlurhash = s.covers.Blurhash(ctx, book.CoverURL)
		}
	}
	now := s.now()
	book.UpdatedAt = &now

	if err := s.repo.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	s.library.Upsert(book)
	s.indexBook(ctx, book)

	s.logger.Info("book updated", "book_id", book.ID)
	return book, nil
}

// Delete removes a book. Deleting a missing book succeeds.
func (s *BookService) Delete(ctx context.Context, bookID string) error {
	if err := s.repo.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	s.library.Remove(bookID)
	if err := s.index.DeleteBook(ctx, bookID); err != nil {
		s.logger.Warn("failed to remove book from search index", "book_id", bookID, "error", err)
	}
	s.metrics.SetLibrarySize(s.library.Len())

	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// Search runs a full-text query and returns the matching books in
// relevance order.
func (s *BookService) Search(ctx context.Context, params search.Params) (*SearchResult, error) {
	if params.Status != "" {
		status, err := domain.ParseStatus(params.Status)
		if err != nil {
			return nil, domainerrors.Validationf("unknown status filter %q", params.Status)
		}
		params.Status = string(status)
	}

	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	books := make([]*domain.Book, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if book, ok := s.library.Get(hit.ID); ok {
			books = append(books, book)
		}
	}

	return &SearchResult{
		Query:  res.Query,
		Total:  res.Total,
		TookMs: res.TookMs,
		Books:  books,
		Facets: res.Facets,
	}, nil
}

// MergeTags appends the suggested tags not already present.
func (s *BookService) MergeTags(existing, suggested []string) []string {
	return domain.MergeTags(existing, suggested)
}

func (s *BookService) fromRequest(req BookRequest) (*domain.Book, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.CoverURL = strings.TrimSpace(req.CoverURL)
	tags := make([]string, len(req.Tags))
	for i, tag := range req.Tags {
		tags[i] = strings.TrimSpace(tag)
	}
	req.Tags = tags

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	return &domain.Book{
		Title:    req.Title,
		Author:   req.Author,
		Status:   status,
		Rating:   req.Rating,
		Summary:  req.Summary,
		Thoughts: req.Thoughts,
		Tags:     domain.MergeTags(req.Tags, nil),
		CoverURL: req.CoverURL,
	}, nil
}

func (s *BookService) indexBook(ctx context.Context, book *domain.Book) {
	if err := s.index.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}
