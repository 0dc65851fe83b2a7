package notion

import (
	"strings"
	"time"

	"github.com/readingnook/readingnook-server/internal/domain"
)

// fieldRule resolves one book field from a page's property bag.
// The first key present on the page wins; when none is present the first
// property of fallbackType is used (if fallbackType is set).
type fieldRule struct {
	name         string
	keys         func(*Schema) []string
	fallbackType string
	apply        func(b *domain.Book, p *Property, s *Schema)
}

var fieldRules = []fieldRule{
	{
		name:         "title",
		keys:         func(s *Schema) []string { return s.TitleKeys },
		fallbackType: TypeTitle,
		apply: func(b *domain.Book, p *Property, _ *Schema) {
			if v := p.FirstTitle(); v != "" {
				b.Title = v
			}
		},
	},
	{
		name: "author",
		keys: func(s *Schema) []string { return s.AuthorKeys },
		apply: func(b *domain.Book, p *Property, _ *Schema) {
			if v := p.FirstRichText(); v != "" {
				b.Author = v
			}
		},
	},
	{
		name:         "status",
		keys:         func(s *Schema) []string { return s.StatusKeys },
		fallbackType: TypeSelect,
		apply: func(b *domain.Book, p *Property, s *Schema) {
			b.Status = ClassifyStatus(p.SelectName(), s)
		},
	},
	{
		name: "rating",
		keys: func(s *Schema) []string { return s.RatingKeys },
		apply: func(b *domain.Book, p *Property, s *Schema) {
			text := p.SelectName()
			if text == "" {
				text = p.FirstRichText()
			}
			b.Rating = CountRating(text, s)
		},
	},
	{
		name: "summary",
		keys: func(s *Schema) []string { return s.SummaryKeys },
		apply: func(b *domain.Book, p *Property, _ *Schema) {
			b.Summary = p.FirstRichText()
		},
	},
	{
		name: "tags",
		keys: func(s *Schema) []string { return s.TagKeys },
		apply: func(b *domain.Book, p *Property, _ *Schema) {
			switch {
			case p.Select != nil && p.Select.Name != "":
				b.Tags = []string{p.Select.Name}
			case len(p.MultiSelect) > 0:
				tags := make([]string, 0, len(p.MultiSelect))
				for _, opt := range p.MultiSelect {
					tags = append(tags, opt.Name)
				}
				b.Tags = tags
			}
		},
	},
}

// Mapper converts Notion pages into books.
type Mapper struct {
	schema SchemaSource
}

// NewMapper creates a mapper. A nil source uses the default schema.
func NewMapper(source SchemaSource) *Mapper {
	if source == nil {
		source = NewStaticSchema(nil)
	}
	return &Mapper{schema: source}
}

// Map converts one page into a book. It never fails: every field has a default.
func (m *Mapper) Map(page *Page) *domain.Book {
	return MapPage(page, m.schema.Schema())
}

// MapAll converts pages in order.
func (m *Mapper) MapAll(pages []*Page) []*domain.Book {
	schema := m.schema.Schema()
	books := make([]*domain.Book, 0, len(pages))
	for _, page := range pages {
		books = append(books, MapPage(page, schema))
	}
	return books
}

// MapPage converts one page using an explicit schema.
func MapPage(page *Page, schema *Schema) *domain.Book {
	if schema == nil {
		schema = DefaultSchema()
	}

	b := &domain.Book{
		ID:       page.ID,
		SourceID: page.ID,
		Title:    domain.UntitledPlaceholder,
		Author:   domain.UnknownAuthorPlaceholder,
		Status:   domain.StatusPlanToRead,
		Tags:     []string{},
		CoverURL: coverURL(page.Cover),
		AddedAt:  parseCreatedTime(page.CreatedTime),
	}

	for _, rule := range fieldRules {
		if prop := resolve(&page.Properties, rule.keys(schema), rule.fallbackType); prop != nil {
			rule.apply(b, prop, schema)
		}
	}
	return b
}

func resolve(props *Properties, keys []string, fallbackType string) *Property {
	for _, key := range keys {
		if prop, ok := props.Get(key); ok {
			return prop
		}
	}
	if fallbackType != "" {
		if prop, ok := props.FirstOfType(fallbackType); ok {
			return prop
		}
	}
	return nil
}

// ClassifyStatus maps a status option name to a reading status. Completed
// markers take precedence over reading markers.
func ClassifyStatus(name string, schema *Schema) domain.ReadingStatus {
	if name == "" {
		return domain.StatusPlanToRead
	}
	if containsAny(name, schema.CompletedMarkers) {
		return domain.StatusCompleted
	}
	if containsAny(name, schema.ReadingMarkers) {
		return domain.StatusReading
	}
	return domain.StatusPlanToRead
}

// CountRating counts rating glyphs in text. The result is not clamped.
func CountRating(text string, schema *Schema) int {
	if text == "" || schema.RatingGlyph == "" {
		return 0
	}
	return strings.Count(text, schema.RatingGlyph)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func coverURL(c *Cover) string {
	if c == nil {
		return ""
	}
	if c.External != nil && c.External.URL != "" {
		return c.External.URL
	}
	if c.File != nil {
		return c.File.URL
	}
	return ""
}

func parseCreatedTime(v string) int64 {
	if v == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
