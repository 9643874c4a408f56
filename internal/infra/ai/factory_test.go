package ai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/prodpulse/internal/config"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai"
)

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	b, err := ai.NewBackend(ctx, config.Provider{Kind: config.ProviderOffline})
	require.NoError(t, err)
	assert.Equal(t, "offline", b.Name())

	b, err = ai.NewBackend(ctx, config.Provider{Kind: config.ProviderOpenAI, APIKey: "k", BaseURL: "http://127.0.0.1:1", Model: "llama-3.3-70b-versatile"})
	require.NoError(t, err)
	assert.Equal(t, "openai:llama-3.3-70b-versatile", b.Name())

	_, err = ai.NewBackend(ctx, config.Provider{Kind: config.ProviderOpenAI})
	assert.Error(t, err)

	_, err = ai.NewBackend(ctx, config.Provider{Kind: "llama"})
	assert.Error(t, err)
}
