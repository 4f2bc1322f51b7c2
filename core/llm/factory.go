package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/dharmarag/helper"
)

// NewProvider creates the named provider from its model configuration.
func NewProvider(ctx context.Context, name string, cfg helper.LLMConfig) (Provider, error) {
	var provider Provider
	var err error
	switch name {
	case ProviderLocal:
		provider = NewOllama(cfg.Local.BaseURL, cfg.Local.Model, seconds(cfg.Local.TimeoutSecs))
	case ProviderOpenAI:
		provider, err = NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, seconds(cfg.OpenAI.TimeoutSecs))
	case ProviderAnthropic:
		provider, err = NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.BaseURL, seconds(cfg.Anthropic.TimeoutSecs))
	case ProviderGoogle:
		provider, err = NewGoogle(ctx, cfg.Google.APIKey, cfg.Google.Model, cfg.Google.BaseURL, seconds(cfg.Google.TimeoutSecs))
	default:
		err = helper.NewError("create provider", fmt.Errorf("%w: %q", ErrUnknownProvider, name))
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// NewProviderFromConfig creates the configured provider wrapped in retries
// and, if enabled, a fallback to the fallback provider. A primary that cannot
// be created (for example for a missing API key) is replaced by the fallback.
func NewProviderFromConfig(ctx context.Context, cfg helper.LLMConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	primary, err := NewProvider(ctx, cfg.Provider, cfg)
	useFallback := cfg.EnableFallback && cfg.FallbackProvider != "" && cfg.FallbackProvider != cfg.Provider
	if err != nil && !useFallback {
		return nil, err
	}

	var fallback Provider
	if useFallback {
		var fallbackErr error
		fallback, fallbackErr = NewProvider(ctx, cfg.FallbackProvider, cfg)
		if fallbackErr != nil {
			if err != nil {
				return nil, helper.NewError("create fallback provider", fallbackErr)
			}
			logger.Warn("Fallback provider unavailable", slog.String("provider", cfg.FallbackProvider), slog.String("error", fallbackErr.Error()))
			fallback = nil
		}
	}

	if err != nil {
		logger.Warn("Primary provider unavailable, using fallback", slog.String("provider", cfg.Provider), slog.String("error", err.Error()))
		return withRetry(fallback, cfg.MaxRetries, logger), nil
	}

	primary = withRetry(primary, cfg.MaxRetries, logger)
	if fallback == nil {
		return primary, nil
	}

	logger.Info("Initialized provider", slog.String("provider", primary.Name()), slog.String("fallback", fallback.Name()))
	return NewFallback(logger, primary, withRetry(fallback, cfg.MaxRetries, logger)), nil
}

func withRetry(p Provider, maxRetries int, logger *slog.Logger) Provider {
	if maxRetries <= 0 {
		return p
	}
	return NewRetry(p, maxRetries, logger)
}

func seconds(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}
