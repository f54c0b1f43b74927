// Package llm answers onboarding questions with a hosted language model.
//
// Providers implement Querier (one prompt in, one completion out). Service
// adds prompt templates, query screening, a per-call timeout, retries and a
// fixed fallback answer so callers never have to handle provider errors.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FallbackMessage is returned to users when the model cannot be reached.
const FallbackMessage = "I'm having trouble connecting to my knowledge base right now. Please try again in a few minutes."

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

var (
	// ErrAPIKeyRequired is returned when a provider has no credentials.
	ErrAPIKeyRequired = errors.New("API key required")
	// ErrEmptyResponse is returned when a model answers with no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Querier sends one prompt to a model and returns its text.
type Querier interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Describer is implemented by queriers that can name their backend.
type Describer interface {
	Provider() string
	Model() string
}

// StatusError carries an upstream HTTP status so retry decisions do not
// depend on a particular SDK's error type.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Retryable reports whether err is worth another attempt: rate limits,
// server errors and network timeouts.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 429 || statusErr.StatusCode >= 500
	}
	return false
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	MaxTokens int64
}

// NewQuerier builds the configured provider.
func NewQuerier(ctx context.Context, cfg Config) (Querier, error) {
	switch cfg.Provider {
	case "", ProviderAnthropic:
		return NewAnthropicProvider(cfg)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown llm provider: %s (supported: anthropic, gemini)", cfg.Provider)
}
