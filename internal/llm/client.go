// Package llm wraps github.com/mozilla-ai/any-llm-go behind the narrow
// synchronous surface the moderation and follow-up adapters need: one
// system prompt, one user prompt, one text reply.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anyllm "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	"github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/fieldnotes-ai/interviewer/internal/reliability"
)

const (
	maxCompletionAttempts = 3
	retryBaseDelay        = 200 * time.Millisecond
	retryCapDelay         = 2 * time.Second
)

// Client issues single-shot completions against a configured provider.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// anyLLMClient is the production Client, backed by any-llm-go.
type anyLLMClient struct {
	backend anyllm.Provider
	model   string
}

// New constructs a Client for providerName ("openai", "anthropic",
// "gemini", "ollama") and model. Falls back to the respective API-key
// environment variable when no explicit credential is supplied, per
// any-llm-go's own convention.
func New(providerName, model string) (Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}

	backend, err := newBackend(providerName)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return &anyLLMClient{backend: backend, model: model}, nil
}

func newBackend(providerName string) (anyllm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case "openai":
		return openai.New()
	case "anthropic":
		return anthropic.New()
	case "gemini":
		return gemini.New()
	case "ollama":
		return ollama.New()
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama", providerName)
	}
}

func (c *anyLLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxCompletionAttempts; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt, retryBaseDelay, retryCapDelay)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := c.backend.Completion(ctx, anyllm.CompletionParams{
			Model: c.model,
			Messages: []anyllm.Message{
				{Role: anyllm.RoleSystem, Content: systemPrompt},
				{Role: anyllm.RoleUser, Content: userPrompt},
			},
		})
		if err != nil {
			lastErr = err
			if !isRetryableCompletionError(err) {
				break
			}
			continue
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("llm: empty choices in response")
		}
		return resp.Choices[0].Message.ContentString(), nil
	}
	return "", fmt.Errorf("llm: completion: %w", lastErr)
}

// httpStatusError is satisfied by any-llm-go's transport errors, which
// surface the upstream provider's HTTP status code.
type httpStatusError interface {
	StatusCode() int
}

func isRetryableCompletionError(err error) bool {
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return reliability.IsRetryableHTTPStatus(statusErr.StatusCode())
	}
	return false
}
