package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readingnook/readingnook-server/internal/service"
)

func (s *Server) registerAssistRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "lookupBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/lookup",
		Summary:     "Look up book metadata",
		Description: "Searches Google Books for covers and descriptions. An empty result carries a notice.",
		Tags:        []string{"Assist"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLookup)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestSummary",
		Method:      http.MethodPost,
		Path:        "/api/v1/suggest",
		Summary:     "Suggest summary and tags",
		Description: "Asks the configured AI provider for a short summary and tags. Failures yield an empty suggestion with a notice.",
		Tags:        []string{"Assist"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSuggest)
}

// LookupInput contains the lookup query.
type LookupInput struct {
	Query string `query:"q" doc:"Title, author or ISBN"`
}

// LookupOutput wraps lookup candidates for Huma.
type LookupOutput struct {
	Body *service.LookupResult
}

// SuggestBody is the request body for a suggestion.
type SuggestBody struct {
	Title        string   `json:"title" maxLength:"500" doc:"Book title"`
	Author       string   `json:"author,omitempty" maxLength:"300" doc:"Book author"`
	ExistingTags []string `json:"existing_tags,omitempty" doc:"Tags already on the book"`
}

// SuggestInput wraps the suggestion request for Huma.
type SuggestInput struct {
	Body SuggestBody
}

// SuggestOutput wraps the suggestion for Huma.
type SuggestOutput struct {
	Body *service.SuggestResult
}

func (s *Server) handleLookup(ctx context.Context, input *LookupInput) (*LookupOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Assist.Lookup(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	return &LookupOutput{Body: result}, nil
}

func (s *Server) handleSuggest(ctx context.Context, input *SuggestInput) (*SuggestOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Assist.Suggest(ctx, service.SuggestRequest{
		Title:        input.Body.Title,
		Author:       input.Body.Author,
		ExistingTags: input.Body.ExistingTags,
	})
	if err != nil {
		return nil, err
	}
	return &SuggestOutput{Body: result}, nil
}
