// Package summarizer turns paper text into structured markdown digests
// through an LLM provider.
package summarizer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"paperdaily/internal/config"
	"paperdaily/internal/retry"
	"paperdaily/internal/source"
)

// Summarizer produces a markdown summary for one paper from its
// extracted text.
type Summarizer interface {
	Summarize(ctx context.Context, p source.Paper, text string) (string, error)
}

// provider is the minimal completion call all LLM backends share.
type provider interface {
	complete(ctx context.Context, prompt string) (string, error)
}

// ErrUnsupportedProvider is returned when an unsupported provider is specified
var ErrUnsupportedProvider = fmt.Errorf("summarizer: unsupported provider")

// LLM wraps a provider with request pacing and retry. Pacing keeps the
// pipeline under free-tier rate limits even with concurrent workers.
type LLM struct {
	provider    provider
	limiter     *rate.Limiter
	retryConfig retry.Config
}

// New creates a summarizer based on the configuration.
func New(cfg config.SummarizerConfig) (*LLM, error) {
	var p provider
	switch cfg.Provider {
	case "openai":
		p = newOpenAIProvider(cfg.APIKey, cfg.Model, openAIBaseURL, cfg.MaxTokens)
	case "deepseek":
		p = newOpenAIProvider(cfg.APIKey, cfg.Model, deepSeekBaseURL, cfg.MaxTokens)
	case "gemini":
		p = newGeminiProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens)
	case "anthropic":
		p = newAnthropicProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 3
	}

	return &LLM{
		provider: p,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		retryConfig: retry.Config{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  time.Duration(cfg.BaseDelaySeconds) * time.Second,
		},
	}, nil
}

func (l *LLM) Summarize(ctx context.Context, p source.Paper, text string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("summarizer: %w", err)
	}

	prompt := buildPrompt(p, text)

	var out string
	err := retry.WithBackoff(ctx, l.retryConfig, func(ctx context.Context) error {
		var err error
		out, err = l.provider.complete(ctx, prompt)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: %w", err)
	}

	out = stripFences(out)
	if out == "" {
		return "", fmt.Errorf("summarizer: empty summary")
	}
	return out, nil
}
