package ai

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-3-flash-preview"
)

// Gemini calls the Gemini generateContent endpoint with a JSON response
// schema.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGemini creates a Gemini provider.
func NewGemini(opts Options) *Gemini {
	g := &Gemini{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      strings.TrimPrefix(strings.TrimSpace(opts.Model), "models/"),
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeoutOrDefault(opts.Timeout)},
	}
	if g.model == "" {
		g.model = defaultGeminiModel
	}
	if g.baseURL == "" {
		g.baseURL = defaultGeminiBaseURL
	}
	return g
}

// Name implements Provider.
func (g *Gemini) Name() string { return ProviderGemini }

// Generate implements Provider.
func (g *Gemini) Generate(ctx context.Context, prompt string) (Suggestion, error) {
	if g.apiKey == "" {
		return Suggestion{}, ErrNoAPIKey
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   suggestionSchema,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Suggestion{}, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp apiErrorResponse
		_ = json.UnmarshalRead(resp.Body, &errResp)
		if errResp.Error.Message != "" {
			return Suggestion{}, fmt.Errorf("gemini api error: %s", errResp.Error.Message)
		}
		return Suggestion{}, fmt.Errorf("gemini api error: %s", resp.Status)
	}

	var genResp geminiResponse
	if err := json.UnmarshalRead(resp.Body, &genResp); err != nil {
		return Suggestion{}, fmt.Errorf("gemini decode: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return Suggestion{}, errors.New("empty response from gemini")
	}

	return parseSuggestion(genResp.Candidates[0].Content.Parts[0].Text)
}

// suggestionSchema constrains the model output to a Suggestion.
var suggestionSchema = &geminiSchema{
	Type: "OBJECT",
	Properties: map[string]*geminiSchema{
		"summary": {
			Type:        "STRING",
			Description: "書籍的簡短中文摘要",
		},
		"suggestedTags": {
			Type:        "ARRAY",
			Items:       &geminiSchema{Type: "STRING"},
			Description: "5個相關標籤",
		},
	},
	Required: []string{"summary", "suggestedTags"},
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSchema struct {
	Type        string                   `json:"type"`
	Description string                   `json:"description,omitempty"`
	Properties  map[string]*geminiSchema `json:"properties,omitempty"`
	Items       *geminiSchema            `json:"items,omitempty"`
	Required    []string                 `json:"required,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType"`
	ResponseSchema   *geminiSchema `json:"responseSchema"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

// parseSuggestion decodes model output, tolerating a fenced code block.
func parseSuggestion(text string) (Suggestion, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return Suggestion{}, errors.New("empty suggestion text")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}
	return s, nil
}
