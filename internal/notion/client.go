package notion

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/readingnook/readingnook-server/internal/domain"
)

const (
	defaultBaseURL    = "https://api.notion.com"
	defaultAPIVersion = "2022-06-28"
	defaultTimeout    = 30 * time.Second

	// MaxPageSize is the largest page the query endpoint returns.
	MaxPageSize = 100

	// Notion allows an average of three requests per second per integration.
	defaultRPS   = 3
	defaultBurst = 3

	// Responses above this size are rejected as malformed.
	maxResponseBytes = 32 << 20
)

// Options configures a Client.
type Options struct {
	// BaseURL of the Notion API. Defaults to https://api.notion.com.
	BaseURL string

	// ProxyURL, when set, is a relay prefix. The query-escaped target URL is
	// appended to it (for example "https://corsproxy.io/?").
	ProxyURL string

	APIVersion string
	PageSize   int
	Timeout    time.Duration
}

// Client queries a Notion database and maps the first page of results.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	mapper  *Mapper
	logger  *slog.Logger

	baseURL    string
	proxyURL   string
	apiVersion string
	pageSize   int
}

// NewClient creates a Notion client. A nil mapper uses the default schema.
func NewClient(opts Options, mapper *Mapper, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.APIVersion == "" {
		opts.APIVersion = defaultAPIVersion
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if mapper == nil {
		mapper = NewMapper(nil)
	}

	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		mapper:     mapper,
		logger:     logger,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		proxyURL:   opts.ProxyURL,
		apiVersion: opts.APIVersion,
		pageSize:   opts.PageSize,
	}
}

// NormalizeCollectionID strips the dashes Notion shows in shared URLs.
func NormalizeCollectionID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}

// Sync fetches the collection and maps every result in source order.
// Either every book is returned or a *SyncError is.
func (c *Client) Sync(ctx context.Context, secret, collectionID string) ([]*domain.Book, error) {
	pages, err := c.Query(ctx, secret, collectionID)
	if err != nil {
		return nil, err
	}
	return c.mapper.MapAll(pages), nil
}

// Query fetches the first page of results without mapping them.
func (c *Client) Query(ctx context.Context, secret, collectionID string) ([]*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, connectionFailed(fmt.Errorf("rate limit wait: %w", err))
	}

	target := c.queryURL(NormalizeCollectionID(collectionID))

	body, err := json.Marshal(queryRequest{PageSize: c.pageSize})
	if err != nil {
		return nil, malformedResponse(fmt.Errorf("encode query: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, connectionFailed(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Notion-Version", c.apiVersion)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("notion query", "collection_id", NormalizeCollectionID(collectionID))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, connectionFailed(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, invalidCredential()
	case resp.StatusCode == http.StatusNotFound:
		return nil, collectionNotFound()
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, serverError(resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, connectionFailed(fmt.Errorf("read response: %w", err))
	}

	pages, hasMore, err := decodeResults(data)
	if err != nil {
		return nil, err
	}
	if hasMore {
		c.logger.Warn("notion collection has more rows than one page, importing the first page only",
			"collection_id", NormalizeCollectionID(collectionID),
			"page_size", c.pageSize,
			"imported", len(pages),
		)
	}
	return pages, nil
}

func (c *Client) queryURL(collectionID string) string {
	target := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, url.PathEscape(collectionID))
	if c.proxyURL == "" {
		return target
	}
	return c.proxyURL + url.QueryEscape(target)
}

// decodeResults parses a query response. hasMore reports that Notion holds
// rows beyond this page.
func decodeResults(data []byte) (pages []*Page, hasMore bool, err error) {
	var qr queryResponse
	if err := json.Unmarshal(data, &qr); err != nil {
		return nil, false, malformedResponse(err)
	}
	if qr.Results == nil {
		return nil, false, malformedResponse(errors.New("response has no results array"))
	}

	pages = make([]*Page, 0, len(*qr.Results))
	for i, raw := range *qr.Results {
		var page Page
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, false, malformedResponse(fmt.Errorf("result %d: %w", i, err))
		}
		pages = append(pages, &page)
	}
	return pages, qr.HasMore, nil
}
