// Package notion imports books from a Notion database.
//
// The client issues a single database query, and the mapper turns every
// returned page into a domain.Book using a declarative field-resolution table.
// Page properties are decoded leniently: a property with an unexpected shape is
// kept with whatever parts did decode, so the mapper can fall back to defaults.
package notion

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
)

// Property types the mapper understands.
const (
	TypeTitle       = "title"
	TypeRichText    = "rich_text"
	TypeSelect      = "select"
	TypeMultiSelect = "multi_select"
)

// queryRequest is the body of a database query.
type queryRequest struct {
	PageSize int `json:"page_size"`
}

// queryResponse is the part of a query response the client reads.
// Results is a pointer so a missing key can be told apart from an empty list.
type queryResponse struct {
	Results *[]jsontext.Value `json:"results"`
	HasMore bool              `json:"has_more"`
}

// Page is one row of a Notion database.
type Page struct {
	ID          string
	CreatedTime string
	Cover       *Cover
	Properties  Properties
}

// Cover is a page cover image, hosted either externally or by Notion.
type Cover struct {
	Type     string   `json:"type"`
	External *FileRef `json:"external"`
	File     *FileRef `json:"file"`
}

// FileRef holds the URL of a cover image.
type FileRef struct {
	URL string `json:"url"`
}

// RichText is one span of formatted text.
type RichText struct {
	PlainText string `json:"plain_text"`
}

// SelectOption is a select or multi-select choice.
type SelectOption struct {
	Name string `json:"name"`
}

// Property is one typed value in a page's property bag.
type Property struct {
	Type        string
	Title       []RichText
	RichText    []RichText
	Select      *SelectOption
	MultiSelect []SelectOption
}

// FirstTitle returns the first plain-text span of a title property.
func (p *Property) FirstTitle() string {
	if p == nil || len(p.Title) == 0 {
		return ""
	}
	return p.Title[0].PlainText
}

// FirstRichText returns the first plain-text span of a rich-text property.
func (p *Property) FirstRichText() string {
	if p == nil || len(p.RichText) == 0 {
		return ""
	}
	return p.RichText[0].PlainText
}

// SelectName returns the selected option name of a select property.
func (p *Property) SelectName() string {
	if p == nil || p.Select == nil {
		return ""
	}
	return p.Select.Name
}

// UnmarshalJSON decodes each known field independently and ignores the ones
// that do not have the expected shape.
func (p *Property) UnmarshalJSON(data []byte) error {
	var raw map[string]jsontext.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	tryDecode(raw["type"], &p.Type)
	tryDecode(raw["title"], &p.Title)
	tryDecode(raw["rich_text"], &p.RichText)
	tryDecode(raw["select"], &p.Select)
	tryDecode(raw["multi_select"], &p.MultiSelect)
	return nil
}

// UnmarshalJSON decodes a page. Only a non-object value is an error.
func (p *Page) UnmarshalJSON(data []byte) error {
	var raw map[string]jsontext.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("page is not an object: %w", err)
	}

	tryDecode(raw["id"], &p.ID)
	tryDecode(raw["created_time"], &p.CreatedTime)
	tryDecode(raw["cover"], &p.Cover)
	if v, ok := raw["properties"]; ok {
		tryDecode(v, &p.Properties)
	}
	return nil
}

func tryDecode(v jsontext.Value, dest any) {
	if len(v) == 0 {
		return
	}
	_ = json.Unmarshal(v, dest)
}

// Properties is a property bag that remembers the order keys appeared in, so
// "first property of type X" is deterministic.
type Properties struct {
	keys  []string
	byKey map[string]*Property
}

// NewProperties builds a bag from ordered key/property pairs (used in tests and
// fixtures).
func NewProperties(pairs ...any) Properties {
	var ps Properties
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		prop, _ := pairs[i+1].(*Property)
		ps.set(key, prop)
	}
	return ps
}

func (ps *Properties) set(key string, prop *Property) {
	if ps.byKey == nil {
		ps.byKey = make(map[string]*Property)
	}
	if _, exists := ps.byKey[key]; !exists {
		ps.keys = append(ps.keys, key)
	}
	ps.byKey[key] = prop
}

// Get returns the property stored under key.
func (ps *Properties) Get(key string) (*Property, bool) {
	prop, ok := ps.byKey[key]
	return prop, ok
}

// FirstOfType returns the first property, in source order, of the given type.
func (ps *Properties) FirstOfType(typ string) (*Property, bool) {
	for _, key := range ps.keys {
		if prop := ps.byKey[key]; prop != nil && prop.Type == typ {
			return prop, true
		}
	}
	return nil, false
}

// Len returns the number of properties.
func (ps *Properties) Len() int {
	return len(ps.keys)
}

// UnmarshalJSON reads the object token by token to keep key order. Values that
// are not objects are skipped.
func (ps *Properties) UnmarshalJSON(data []byte) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data))

	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	switch tok.Kind() {
	case 'n':
		return nil
	case '{':
	default:
		return errors.New("properties is not an object")
	}

	for dec.PeekKind() != '}' {
		keyTok, err := dec.ReadToken()
		if err != nil {
			return err
		}
		// The token is invalidated by the next read.
		key := keyTok.String()
		val, err := dec.ReadValue()
		if err != nil {
			return err
		}

		var prop Property
		if err := json.Unmarshal(val, &prop); err != nil {
			continue
		}
		ps.set(key, &prop)
	}

	_, err = dec.ReadToken()
	return err
}
