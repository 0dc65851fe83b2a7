package ai

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"

	openAISystemPrompt = `You answer with a JSON object {"summary": string, "suggestedTags": [string]} and nothing else.`
)

// OpenAI calls any OpenAI-compatible /chat/completions endpoint in JSON mode.
// BaseURL includes the /v1 prefix. The key may be empty for local models.
type OpenAI struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAI creates an OpenAI-compatible provider.
func NewOpenAI(opts Options) *OpenAI {
	o := &OpenAI{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      strings.TrimSpace(opts.Model),
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeoutOrDefault(opts.Timeout)},
	}
	if o.model == "" {
		o.model = defaultOpenAIModel
	}
	if o.baseURL == "" {
		o.baseURL = defaultOpenAIBaseURL
	}
	return o
}

// Name implements Provider.
func (o *OpenAI) Name() string { return ProviderOpenAI }

// Generate implements Provider.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (Suggestion, error) {
	if o.apiKey == "" && o.baseURL == defaultOpenAIBaseURL {
		return Suggestion{}, ErrNoAPIKey
	}

	body, err := json.Marshal(oaiChatRequest{
		Model: o.model,
		Messages: []oaiMessage{
			{Role: "system", Content: openAISystemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &oaiResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return Suggestion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp apiErrorResponse
		_ = json.UnmarshalRead(resp.Body, &errResp)
		if errResp.Error.Message != "" {
			return Suggestion{}, fmt.Errorf("openai api error: %s", errResp.Error.Message)
		}
		return Suggestion{}, fmt.Errorf("openai api error: %s", resp.Status)
	}

	var chatResp oaiChatResponse
	if err := json.UnmarshalRead(resp.Body, &chatResp); err != nil {
		return Suggestion{}, fmt.Errorf("openai decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return Suggestion{}, errors.New("empty response from openai")
	}

	return parseSuggestion(chatResp.Choices[0].Message.Content)
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponseFormat struct {
	Type string `json:"type"`
}

type oaiChatRequest struct {
	Model          string             `json:"model"`
	Messages       []oaiMessage       `json:"messages"`
	ResponseFormat *oaiResponseFormat `json:"response_format,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}
