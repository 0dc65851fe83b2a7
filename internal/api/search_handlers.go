package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readingnook/readingnook-server/internal/search"
	"github.com/readingnook/readingnook-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search books",
		Description: "Full-text search over title, author, summary, thoughts and tags, in relevance order",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains search parameters.
type SearchInput struct {
	Query  string   `query:"q" doc:"Search text"`
	Status string   `query:"status" doc:"Restrict to one reading status"`
	Tags   []string `query:"tags" doc:"Books must carry at least one of these tags"`
	Limit  int      `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int      `query:"offset" minimum:"0" doc:"Results to skip"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *service.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultParams()
	params.Query = input.Query
	params.Status = input.Status
	params.Tags = input.Tags
	params.Limit = input.Limit
	params.Offset = input.Offset

	result, err := s.services.Book.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: result}, nil
}
