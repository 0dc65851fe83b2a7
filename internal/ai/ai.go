// Package ai asks a language model for a short summary and tags for a book.
//
// Generation is best effort: every failure degrades to an empty Suggestion
// and is only logged.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/readingnook/readingnook-server/internal/cache"
)

// Provider names.
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrNoAPIKey is returned by providers that need a key when none is set.
var ErrNoAPIKey = errors.New("ai: api key required")

// Suggestion is the generated summary and tag list.
type Suggestion struct {
	Summary       string   `json:"summary"`
	SuggestedTags []string `json:"suggestedTags"`
}

// Empty reports whether the suggestion carries nothing.
func (s Suggestion) Empty() bool {
	return s.Summary == "" && len(s.SuggestedTags) == 0
}

// Provider generates a suggestion from a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (Suggestion, error)
}

// Prompt builds the generation prompt for a book.
func Prompt(title, author string) string {
	return fmt.Sprintf("提供關於書籍《%s》（作者：%s）的簡短摘要（100字以內）以及5個相關的分類標籤。請以繁體中文回答。", title, author)
}

// Options configures a provider.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewProvider builds the provider named by opts.Provider. ProviderNone and
// the empty name return a nil Provider.
func NewProvider(opts Options) (Provider, error) {
	switch opts.Provider {
	case "", ProviderNone:
		return nil, nil
	case ProviderGemini:
		return NewGemini(opts), nil
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}

// Suggester wraps a Provider with caching and failure handling.
type Suggester struct {
	provider Provider
	cache    *cache.Typed[Suggestion]
	logger   *slog.Logger
}

// NewSuggester creates a Suggester. A nil provider makes every call return
// an empty suggestion; a nil cache disables caching.
func NewSuggester(provider Provider, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Suggester {
	return &Suggester{
		provider: provider,
		cache:    cache.NewTyped[Suggestion](c, ttl),
		logger:   logger,
	}
}

// Enabled reports whether a provider is configured.
func (s *Suggester) Enabled() bool {
	return s.provider != nil
}

// Suggest returns a summary and tags for the book. It never fails: errors
// are logged and yield an empty suggestion. Non-empty results are cached.
func (s *Suggester) Suggest(ctx context.Context, title, author string) Suggestion {
	empty := Suggestion{SuggestedTags: []string{}}
	title = strings.TrimSpace(title)
	if s.provider == nil || title == "" {
		return empty
	}

	key := cache.Key("suggest", s.provider.Name(), title, author)
	result, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (Suggestion, error) {
		res, err := s.provider.Generate(ctx, Prompt(title, author))
		if err != nil {
			return Suggestion{}, err
		}
		return normalize(res), nil
	}, func(res Suggestion) bool { return !res.Empty() })
	if err != nil {
		s.logger.Warn("ai suggestion failed",
			"provider", s.provider.Name(),
			"title", title,
			"error", err,
		)
		return empty
	}
	if result.SuggestedTags == nil {
		result.SuggestedTags = []string{}
	}
	return result
}

// normalize trims the summary and drops blank or repeated tags.
func normalize(s Suggestion) Suggestion {
	out := Suggestion{
		Summary:       strings.TrimSpace(s.Summary),
		SuggestedTags: make([]string, 0, len(s.SuggestedTags)),
	}
	seen := make(map[string]bool, len(s.SuggestedTags))
	for _, tag := range s.SuggestedTags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out.SuggestedTags = append(out.SuggestedTags, tag)
	}
	return out
}
