package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/amishk599/leadmail/internal/model"
)

var geminiSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isEntryLevel": {Type: genai.TypeBoolean},
		"emailSubject": {Type: genai.TypeString},
		"emailBody":    {Type: genai.TypeString},
		"reason":       {Type: genai.TypeString},
	},
	Required: []string{"isEntryLevel", "emailSubject", "emailBody", "reason"},
}

// GeminiProvider calls the Gemini API with a response schema so the reply is
// always a classification JSON object.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider for the Gemini API. baseURL may be
// empty; a non-empty value overrides the API endpoint (proxies, tests).
// httpClient may be nil to use the SDK default.
func NewGeminiProvider(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("gemini: model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	}
	if httpClient != nil {
		cc.HTTPClient = httpClient
	}
	if strings.TrimSpace(baseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(baseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client, model: strings.TrimSpace(model)}, nil
}

// Name implements LLMProvider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Complete sends prompt to Gemini and returns the structured JSON text.
// API errors carry their status code as *model.HTTPError for the retry layer.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0)
	resp, err := p.client.Models.GenerateContent(
		ctx,
		p.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:      &temperature,
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   geminiSchema,
		},
	)
	if err != nil {
		return "", classifyGeminiErr(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no content")
	}
	return text, nil
}

func classifyGeminiErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &model.HTTPError{
			StatusCode: apiErr.Code,
			Err:        fmt.Errorf("gemini: %s", apiErr.Message),
		}
	}
	return fmt.Errorf("gemini: %w", err)
}
