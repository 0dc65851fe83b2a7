package notion

import (
	"encoding/json/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/domain"
)

const dunePage = `{
	"id": "p1",
	"created_time": "2024-01-02T03:04:05.000Z",
	"cover": {"type": "external", "external": {"url": "https://img.example/dune.jpg"}},
	"properties": {
		"書名": {"type": "title", "title": [{"plain_text": "Dune"}]},
		"作者": {"type": "rich_text", "rich_text": [{"plain_text": "Frank Herbert"}]},
		"狀態": {"type": "select", "select": {"name": "📖 正在讀"}},
		"推薦指數": {"type": "select", "select": {"name": "⭐⭐⭐⭐"}},
		"類別": {"type": "multi_select", "multi_select": [{"name": "科幻"}, {"name": "經典"}]}
	}
}`

func decodePage(t *testing.T, raw string) *Page {
	t.Helper()
	var page Page
	require.NoError(t, json.Unmarshal([]byte(raw), &page))
	return &page
}

func TestMapPage_Dune(t *testing.T) {
	book := MapPage(decodePage(t, dunePage), nil)

	assert.Equal(t, "p1", book.ID)
	assert.Equal(t, "p1", book.SourceID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, domain.StatusReading, book.Status)
	assert.Equal(t, 4, book.Rating)
	assert.Equal(t, []string{"科幻", "經典"}, book.Tags)
	assert.Equal(t, "https://img.example/dune.jpg", book.CoverURL)
	assert.Equal(t, int64(1704164645000), book.AddedAt)
	assert.Empty(t, book.Thoughts)
	assert.Empty(t, book.Summary)
}

func TestMapPage_MissingFieldsUseDefaults(t *testing.T) {
	book := MapPage(decodePage(t, `{"id": "p2", "properties": {}}`), nil)

	assert.Equal(t, domain.UntitledPlaceholder, book.Title)
	assert.Equal(t, domain.UnknownAuthorPlaceholder, book.Author)
	assert.Equal(t, domain.StatusPlanToRead, book.Status)
	assert.Equal(t, 0, book.Rating)
	assert.Equal(t, "", book.Summary)
	assert.Equal(t, []string{}, book.Tags)
	assert.Equal(t, "", book.CoverURL)
	assert.Equal(t, int64(0), book.AddedAt)
}

func TestMapPage_FallsBackToPropertyType(t *testing.T) {
	page := decodePage(t, `{
		"id": "p3",
		"properties": {
			"Name": {"type": "title", "title": [{"plain_text": "Solaris"}]},
			"Progress": {"type": "select", "select": {"name": "☑️"}}
		}
	}`)

	book := MapPage(page, nil)
	assert.Equal(t, "Solaris", book.Title)
	assert.Equal(t, domain.StatusCompleted, book.Status)
}

func TestMapPage_FirstPresentKeyWins(t *testing.T) {
	// 作者 is present but empty, so 著者 is never consulted.
	page := &Page{
		ID: "p4",
		Properties: NewProperties(
			"作者", &Property{Type: TypeRichText},
			"著者", &Property{Type: TypeRichText, RichText: []RichText{{PlainText: "Lem"}}},
		),
	}
	assert.Equal(t, domain.UnknownAuthorPlaceholder, MapPage(page, nil).Author)

	page = &Page{
		ID: "p5",
		Properties: NewProperties(
			"著者", &Property{Type: TypeRichText, RichText: []RichText{{PlainText: "Lem"}}},
		),
	}
	assert.Equal(t, "Lem", MapPage(page, nil).Author)
}

func TestMapPage_SummaryKeysInOrder(t *testing.T) {
	page := &Page{
		Properties: NewProperties(
			"摘要", &Property{Type: TypeRichText, RichText: []RichText{{PlainText: "manual"}}},
			"書本摘要（AI生成）", &Property{Type: TypeRichText, RichText: []RichText{{PlainText: "generated"}}},
		),
	}
	assert.Equal(t, "generated", MapPage(page, nil).Summary)
}

func TestMapPage_SingleSelectTag(t *testing.T) {
	page := &Page{
		Properties: NewProperties(
			"類別", &Property{Type: TypeSelect, Select: &SelectOption{Name: "歷史"}},
		),
	}
	assert.Equal(t, []string{"歷史"}, MapPage(page, nil).Tags)
}

func TestMapPage_FileCover(t *testing.T) {
	page := decodePage(t, `{"id": "p6", "cover": {"type": "file", "file": {"url": "https://files.example/c.png"}}}`)
	assert.Equal(t, "https://files.example/c.png", MapPage(page, nil).CoverURL)
}

func TestMapPage_MalformedPropertyShapes(t *testing.T) {
	page := decodePage(t, `{
		"id": "p7",
		"created_time": "not a time",
		"cover": "nope",
		"properties": {
			"書名": {"type": "title", "title": "should be a list"},
			"狀態": 42,
			"推薦指數": {"type": "rich_text", "rich_text": [{"plain_text": "⭐⭐"}]}
		}
	}`)

	book := MapPage(page, nil)
	assert.Equal(t, domain.UntitledPlaceholder, book.Title)
	assert.Equal(t, domain.StatusPlanToRead, book.Status)
	assert.Equal(t, 2, book.Rating)
	assert.Equal(t, int64(0), book.AddedAt)
	assert.Equal(t, "", book.CoverURL)
}

func TestClassifyStatus(t *testing.T) {
	schema := DefaultSchema()
	tests := []struct {
		name string
		want domain.ReadingStatus
	}{
		{"", domain.StatusPlanToRead},
		{"想讀", domain.StatusPlanToRead},
		{"📖 正在讀", domain.StatusReading},
		{"正在讀", domain.StatusReading},
		{"☑️ 閱讀完畢", domain.StatusCompleted},
		{"閱讀完畢 (正在讀第二次)", domain.StatusCompleted},
		{"📖☑️", domain.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.name, schema))
		})
	}
}

func TestCountRating(t *testing.T) {
	schema := DefaultSchema()

	assert.Equal(t, 0, CountRating("", schema))
	assert.Equal(t, 0, CountRating("great", schema))
	assert.Equal(t, 3, CountRating("⭐⭐⭐", schema))
	assert.Equal(t, 6, CountRating("⭐⭐⭐⭐⭐⭐", schema), "ratings are not clamped")

	// Mapping the same item twice gives the same rating.
	page := decodePage(t, dunePage)
	assert.Equal(t, MapPage(page, schema).Rating, MapPage(page, schema).Rating)
}

func TestMapper_CustomSchema(t *testing.T) {
	schema, err := ParseSchema([]byte(`
title_keys: ["Title"]
author_keys: ["Author"]
reading_markers: ["Reading"]
completed_markers: ["Done"]
rating_glyph: "★"
rating_keys: ["Stars"]
`))
	require.NoError(t, err)

	page := &Page{
		ID: "p8",
		Properties: NewProperties(
			"Title", &Property{Type: TypeTitle, Title: []RichText{{PlainText: "Hyperion"}}},
			"Author", &Property{Type: TypeRichText, RichText: []RichText{{PlainText: "Dan Simmons"}}},
			"狀態", &Property{Type: TypeSelect, Select: &SelectOption{Name: "Reading"}},
			"Stars", &Property{Type: TypeSelect, Select: &SelectOption{Name: "★★★"}},
		),
	}

	book := NewMapper(NewStaticSchema(schema)).Map(page)
	assert.Equal(t, "Hyperion", book.Title)
	assert.Equal(t, "Dan Simmons", book.Author)
	assert.Equal(t, domain.StatusReading, book.Status)
	assert.Equal(t, 3, book.Rating)
	// Keys not named in the file keep their defaults.
	assert.Equal(t, []string{"類別"}, schema.TagKeys)
}

func TestProperties_KeepSourceOrder(t *testing.T) {
	page := decodePage(t, `{
		"properties": {
			"B": {"type": "title", "title": [{"plain_text": "second key, first title"}]},
			"A": {"type": "title", "title": [{"plain_text": "later"}]}
		}
	}`)

	prop, ok := page.Properties.FirstOfType(TypeTitle)
	require.True(t, ok)
	assert.Equal(t, "second key, first title", prop.FirstTitle())
	assert.Equal(t, 2, page.Properties.Len())
}

func TestProperties_DecodeKeepsKeys(t *testing.T) {
	page := decodePage(t, dunePage)

	require.Equal(t, 5, page.Properties.Len())
	title, ok := page.Properties.Get("書名")
	require.True(t, ok)
	assert.Equal(t, "Dune", title.FirstTitle())
	status, ok := page.Properties.Get("狀態")
	require.True(t, ok)
	assert.Equal(t, "📖 正在讀", status.SelectName())
}

func TestMapPage_EmptySelectNameHasNoTags(t *testing.T) {
	page := decodePage(t, `{
		"id": "p8",
		"properties": {
			"類別": {"type": "select", "select": {"name": ""}}
		}
	}`)

	assert.Equal(t, []string{}, MapPage(page, nil).Tags)
}
