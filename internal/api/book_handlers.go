package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the library filtered by status and search text, newest first",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a book to the library",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Replaces the editable fields of a book",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Removes a book. Deleting a missing book succeeds.",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)
}

// === DTOs ===

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	Status string `query:"status" doc:"PLAN_TO_READ, READING, COMPLETED, a display label, or ALL"`
	Query  string `query:"q" doc:"Case-insensitive substring of the title or author, matched as typed"`
}

// BookListResponse contains a derived view of the library.
type BookListResponse struct {
	Books []*domain.Book `json:"books" doc:"Books, newest first"`
	Total int            `json:"total" doc:"Number of books returned"`
}

// BookListOutput wraps the book list for Huma.
type BookListOutput struct {
	Body BookListResponse
}

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// BookBody is the request body for creating or updating a book.
type BookBody struct {
	Title    string   `json:"title" maxLength:"500" doc:"Title"`
	Author   string   `json:"author" maxLength:"300" doc:"Author"`
	Status   string   `json:"status" doc:"Reading status"`
	Rating   int      `json:"rating,omitempty" minimum:"0" maximum:"5" doc:"Star rating, 0 for unrated"`
	Summary  string   `json:"summary,omitempty" doc:"Short summary"`
	Thoughts string   `json:"thoughts,omitempty" doc:"Reader's notes"`
	Tags     []string `json:"tags,omitempty" doc:"Tags"`
	CoverURL string   `json:"cover_url,omitempty" doc:"Cover image URL"`
}

func (b BookBody) toRequest() service.BookRequest {
	return service.BookRequest{
		Title:    b.Title,
		Author:   b.Author,
		Status:   b.Status,
		Rating:   b.Rating,
		Summary:  b.Summary,
		Thoughts: b.Thoughts,
		Tags:     b.Tags,
		CoverURL: b.CoverURL,
	}
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Body BookBody
}

// UpdateBookInput wraps the update request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookBody
}

// DeleteBookInput contains parameters for deleting a book.
type DeleteBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookListOutput, error) {
	books, err := s.services.Book.List(ctx, domain.ViewFilter{
		Status: input.Status,
		Search: input.Query,
	})
	if err != nil {
		return nil, err
	}
	return &BookListOutput{Body: BookListResponse{Books: books, Total: len(books)}}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Book.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Book.Create(ctx, input.Body.toRequest())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Book.Update(ctx, input.ID, input.Body.toRequest())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *DeleteBookInput) (*struct{}, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Book.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
