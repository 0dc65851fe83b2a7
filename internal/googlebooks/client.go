// Package googlebooks looks up title, author, cover and description
// candidates in the Google Books volumes API.
package googlebooks

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/readingnook/readingnook-server/internal/cache"
	"github.com/readingnook/readingnook-server/internal/domain"
)

const (
	// DefaultBaseURL is the public Google APIs host.
	DefaultBaseURL = "https://www.googleapis.com"

	maxResults = 5
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client

	// Cache stores successful lookups. Nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
}

// Client provides access to the Google Books volumes search.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	rateLimiter *rate.Limiter
	cache       *cache.Typed[[]Volume]
	logger      *slog.Logger
}

// NewClient creates a Google Books client.
// Outbound requests are limited to one per second with a burst of 5.
func NewClient(opts Options, logger *slog.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		apiKey:      opts.APIKey,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
		cache:       cache.NewTyped[[]Volume](opts.Cache, opts.CacheTTL),
		logger:      logger,
	}
}

// Search returns up to five candidates for query. Any failure is logged and
// yields an empty list, as does a response without items.
func (c *Client) Search(ctx context.Context, query string) []Volume {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Volume{}
	}

	volumes, err := c.cache.GetOrLoad(ctx, cache.Key("lookup", query), func(ctx context.Context) ([]Volume, error) {
		return c.search(ctx, query)
	}, func(v []Volume) bool { return len(v) > 0 })
	if err != nil {
		c.logger.Warn("book lookup failed", "query", query, "error", err)
		return []Volume{}
	}
	if volumes == nil {
		return []Volume{}
	}
	return volumes
}

func (c *Client) search(ctx context.Context, query string) ([]Volume, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	searchURL := c.baseURL + "/books/v1/volumes?" + params.Encode()

	c.logger.Debug("searching Google Books", "query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: status %d", resp.StatusCode)
	}

	var body volumesResponse
	if err := json.UnmarshalRead(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	volumes := make([]Volume, 0, len(body.Items))
	for i := range body.Items {
		volumes = append(volumes, toVolume(&body.Items[i].VolumeInfo))
	}
	return volumes, nil
}

// toVolume applies the display defaults to one result.
func toVolume(info *volumeInfo) Volume {
	v := Volume{
		Title:       info.Title,
		Author:      strings.Join(info.Authors, ", "),
		Description: htmlToMarkdown(info.Description),
	}
	if v.Title == "" {
		v.Title = domain.UnknownLookupTitle
	}
	if len(info.Authors) == 0 {
		v.Author = domain.UnknownAuthorPlaceholder
	}
	if info.ImageLinks != nil {
		v.CoverURL = secureURL(info.ImageLinks.Thumbnail)
	}
	return v
}

// secureURL rewrites the first "http:" to "https:".
func secureURL(u string) string {
	return strings.Replace(u, "http:", "https:", 1)
}
