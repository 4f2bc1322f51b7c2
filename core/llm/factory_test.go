package llm

import (
	"context"
	"testing"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()
	cfg := helper.DefaultConfig().LLM

	t.Run("Local", func(t *testing.T) {
		provider, err := NewProvider(ctx, ProviderLocal, cfg)
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, provider.Name())
		assert.Zero(t, provider.EstimateCost(1000, 1000))
	})

	t.Run("Anthropic", func(t *testing.T) {
		cfg := cfg
		cfg.Anthropic.APIKey = "sk-ant-test"
		provider, err := NewProvider(ctx, ProviderAnthropic, cfg)
		require.NoError(t, err)
		assert.IsType(t, &Anthropic{}, provider)
		assert.Equal(t, cfg.Anthropic.Model, provider.Model())
	})

	t.Run("Missing api key", func(t *testing.T) {
		_, err := NewProvider(ctx, ProviderOpenAI, cfg)
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("Unknown provider", func(t *testing.T) {
		_, err := NewProvider(ctx, "mystery", cfg)
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestNewProviderFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("Local provider without fallback", func(t *testing.T) {
		cfg := helper.DefaultConfig().LLM
		cfg.EnableFallback = false
		cfg.MaxRetries = 0

		provider, err := NewProviderFromConfig(ctx, cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, &Ollama{}, provider)
		assert.Equal(t, cfg.Local.Model, provider.Model())
	})

	t.Run("Retries wrap the provider", func(t *testing.T) {
		cfg := helper.DefaultConfig().LLM
		cfg.EnableFallback = false
		cfg.MaxRetries = 2

		provider, err := NewProviderFromConfig(ctx, cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, &Retry{}, provider)
		assert.Equal(t, ProviderLocal, provider.Name())
	})

	t.Run("Frontier provider falls back to local", func(t *testing.T) {
		cfg := helper.DefaultConfig().LLM
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = "sk-test"
		cfg.MaxRetries = 0

		provider, err := NewProviderFromConfig(ctx, cfg, nil)
		require.NoError(t, err)
		fallback, ok := provider.(*Fallback)
		require.True(t, ok)
		require.Len(t, fallback.Providers(), 2)
		assert.Equal(t, ProviderOpenAI, fallback.Providers()[0].Name())
		assert.Equal(t, ProviderLocal, fallback.Providers()[1].Name())
	})

	t.Run("Missing api key uses the fallback", func(t *testing.T) {
		cfg := helper.DefaultConfig().LLM
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = ""
		cfg.MaxRetries = 0

		provider, err := NewProviderFromConfig(ctx, cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, provider.Name())
	})

	t.Run("Missing api key without fallback fails", func(t *testing.T) {
		cfg := helper.DefaultConfig().LLM
		cfg.Provider = ProviderGoogle
		cfg.Google.APIKey = ""
		cfg.EnableFallback = false

		_, err := NewProviderFromConfig(ctx, cfg, nil)
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("Unknown provider", func(t *testing.T) {
		cfg := helper.DefaultConfig().LLM
		cfg.Provider = "mystery"
		cfg.EnableFallback = false

		_, err := NewProviderFromConfig(ctx, cfg, nil)
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestAnswerer(t *testing.T) {
	primary := &fakeProvider{name: "openai"}
	secondary := &fakeProvider{name: "local"}
	provider := NewFallback(nil, NewRetry(primary, 1, nil), secondary)

	assert.Same(t, secondary, Answerer(provider, &Response{Provider: "local"}))
	assert.Same(t, primary, Answerer(provider, &Response{Provider: "openai"}))
}
