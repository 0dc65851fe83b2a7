package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/readingnook/readingnook-server/internal/ai"
	domainerrors "github.com/readingnook/readingnook-server/internal/errors"
	"github.com/readingnook/readingnook-server/internal/googlebooks"
	"github.com/readingnook/readingnook-server/internal/metrics"
)

// Notices shown when a helper has nothing to offer.
const (
	NoticeNoLookupResults = "找不到相關書籍，請手動輸入。"
	NoticeAIDisabled      = "AI 摘要功能未啟用。"
	NoticeNoSuggestion    = "無法取得摘要。"
)

// VolumeSearcher finds lookup candidates.
type VolumeSearcher interface {
	Search(ctx context.Context, query string) []googlebooks.Volume
}

// Suggester generates a summary and tags.
type Suggester interface {
	Enabled() bool
	Suggest(ctx context.Context, title, author string) ai.Suggestion
}

// LookupResult lists cover and metadata candidates.
type LookupResult struct {
	Items  []googlebooks.Volume `json:"items"`
	Notice string               `json:"notice,omitempty"`
}

// SuggestRequest asks for a summary and tags for a book.
type SuggestRequest struct {
	Title        string   `json:"title" validate:"required,max=500"`
	Author       string   `json:"author" validate:"max=300"`
	ExistingTags []string `json:"existing_tags,omitempty"`
}

// SuggestResult is the generated suggestion plus the tags merged into the
// book's existing ones.
type SuggestResult struct {
	Summary       string   `json:"summary"`
	SuggestedTags []string `json:"suggestedTags"`
	MergedTags    []string `json:"merged_tags"`
	Notice        string   `json:"notice,omitempty"`
}

// AssistService backs the add-book form helpers. Neither helper fails on
// upstream errors; they return empty results with a notice instead.
type AssistService struct {
	volumes   VolumeSearcher
	suggester Suggester
	books     *BookService
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAssistService creates a new assist service.
func NewAssistService(volumes VolumeSearcher, suggester Suggester, books *BookService, m *metrics.Metrics, logger *slog.Logger) *AssistService {
	return &AssistService{
		volumes:   volumes,
		suggester: suggester,
		books:     books,
		metrics:   m,
		logger:    logger,
	}
}

// Lookup searches Google Books for query.
func (s *AssistService) Lookup(ctx context.Context, query string) (*LookupResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainerrors.Validation("query is required")
	}

	items := s.volumes.Search(ctx, query)
	s.metrics.ObserveLookup(len(items))

	result := &LookupResult{Items: items}
	if len(items) == 0 {
		result.Notice = NoticeNoLookupResults
	}
	return result, nil
}

// Suggest asks the AI provider for a summary and tags.
func (s *AssistService) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResult, error) {
	if err := s.books.validator.Validate(req); err != nil {
		return nil, err
	}

	existing := req.ExistingTags
	if existing == nil {
		existing = []string{}
	}

	if !s.suggester.Enabled() {
		return &SuggestResult{
			SuggestedTags: []string{},
			MergedTags:    s.books.MergeTags(existing, nil),
			Notice:        NoticeAIDisabled,
		}, nil
	}

	suggestion := s.suggester.Suggest(ctx, req.Title, req.Author)
	s.metrics.ObserveSuggest(suggestion.Empty())

	result := &SuggestResult{
		Summary:       suggestion.Summary,
		SuggestedTags: suggestion.SuggestedTags,
		MergedTags:    s.books.MergeTags(existing, suggestion.SuggestedTags),
	}
	if suggestion.Empty() {
		result.Notice = NoticeNoSuggestion
	}
	return result, nil
}
