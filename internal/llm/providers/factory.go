// Package providers builds a concrete llm.Provider from configuration.
package providers

import (
	"context"
	"fmt"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/llm"
	"github.com/rohitmangal/daily-news-podcast/internal/llm/anthropic"
	"github.com/rohitmangal/daily-news-podcast/internal/llm/google"
	"github.com/rohitmangal/daily-news-podcast/internal/llm/openai"
)

// Build constructs the provider named by cfg.Provider.
func Build(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.New(cfg.APIKey, cfg.BaseURL), nil
	case "anthropic":
		return anthropic.New(cfg.APIKey), nil
	case "google":
		return google.New(ctx, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
