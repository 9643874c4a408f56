package ai

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/prodpulse/internal/config"
	domain "github.com/bryanwahyu/prodpulse/internal/domain/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai/gemini"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai/offline"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai/openai"
)

// NewBackend builds the diagnosis backend named by cfg.Kind.
func NewBackend(ctx context.Context, cfg config.Provider) (domain.Backend, error) {
	switch cfg.Kind {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, cfg.APIKey,
			gemini.WithModel(cfg.Model),
			gemini.WithTemperature(cfg.Temperature),
			gemini.WithMaxOutputTokens(cfg.MaxOutputTokens),
			gemini.WithTimeout(cfg.Timeout),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderOpenAI:
		c, err := openai.NewClient(openai.Options{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxOutputTokens,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderOffline, "":
		return offline.New(), nil
	default:
		return nil, goerr.New("unknown diagnosis provider", goerr.V("kind", cfg.Kind))
	}
}
