package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when neither config nor GEMINI_MODEL names one.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider queries Google's Gemini API.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGeminiProvider creates a Gemini client from GEMINI_API_KEY or
// GOOGLE_API_KEY, falling back to cfg.APIKey.
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	apiKey := firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"), cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set GOOGLE_API_KEY environment variable or provide via config", ErrAPIKeyRequired)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google genai client: %w", err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &GeminiProvider{
		client:    client,
		model:     firstNonEmpty(cfg.Model, os.Getenv("GEMINI_MODEL"), DefaultGeminiModel),
		maxTokens: int32(maxTokens),
	}, nil
}

func (p *GeminiProvider) Provider() string { return "Google" }
func (p *GeminiProvider) Model() string    { return p.model }

// Query generates a completion for prompt.
func (p *GeminiProvider) Query(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: p.maxTokens,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: "gemini", StatusCode: apiErr.Code, Err: err}
		}
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
