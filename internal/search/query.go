package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a search query.
type Params struct {
	Query  string   // Free text
	Status string   // Exact status, empty for any
	Tags   []string // Books must carry at least one of these tags

	Limit  int
	Offset int

	IncludeFacets bool
	Highlight     bool
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:         20,
		IncludeFacets: true,
		Highlight:     true,
	}
}

// Result is one page of search hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
	Facets Facets `json:"facets"`
}

// Hit is one matching book, in relevance order.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Author     string            `json:"author"`
	Status     string            `json:"status"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Facets holds counts over the matching set.
type Facets struct {
	Tags   []FacetCount `json:"tags,omitempty"`
	Status []FacetCount `json:"status,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a query.
func (s *SearchIndex) Search(ctx context.Context, params Params) (*Result, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "-added_at"})
	req.Fields = []string{"title", "author", "status"}

	if params.IncludeFacets {
		req.AddFacet("tags", bleve.NewFacetRequest("tags", 20))
		req.AddFacet("status", bleve.NewFacetRequest("status", 3))
	}
	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("author")
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}

	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["author"].(string); ok {
			hit.Author = v
		}
		if v, ok := h.Fields["status"].(string); ok {
			hit.Status = v
		}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string, len(h.Fragments))
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, hit)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(res)
	}

	return result, nil
}

// buildQuery combines the text query and filters with AND.
func buildQuery(params Params) query.Query {
	var queries []query.Query

	if text := strings.TrimSpace(params.Query); text != "" {
		var textQueries []query.Query

		for field, boost := range map[string]float64{"title": 3, "author": 2, "summary": 1, "thoughts": 0.5} {
			mq := bleve.NewMatchQuery(text)
			mq.SetField(field)
			mq.SetBoost(boost)
			textQueries = append(textQueries, mq)
		}

		lower := strings.ToLower(text)

		// Typo tolerance on titles.
		fq := bleve.NewFuzzyQuery(lower)
		fq.SetFuzziness(1)
		fq.SetField("title")
		fq.SetBoost(0.8)
		textQueries = append(textQueries, fq)

		// Prefix matches catch single CJK characters the bigram analyzer
		// never emits on its own.
		for _, field := range []string{"title", "author"} {
			pq := bleve.NewPrefixQuery(lower)
			pq.SetField(field)
			pq.SetBoost(0.5)
			textQueries = append(textQueries, pq)
		}

		tq := bleve.NewTermQuery(text)
		tq.SetField("tags")
		tq.SetBoost(1.5)
		textQueries = append(textQueries, tq)

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Status != "" {
		sq := bleve.NewTermQuery(params.Status)
		sq.SetField("status")
		queries = append(queries, sq)
	}

	if len(params.Tags) > 0 {
		tagQueries := make([]query.Query, len(params.Tags))
		for i, tag := range params.Tags {
			tq := bleve.NewTermQuery(tag)
			tq.SetField("tags")
			tagQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(tagQueries...))
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(res *bleve.SearchResult) Facets {
	var facets Facets
	if f, ok := res.Facets["tags"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			facets.Tags = append(facets.Tags, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	if f, ok := res.Facets["status"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			facets.Status = append(facets.Status, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	return facets
}
