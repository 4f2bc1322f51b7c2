package llm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/siherrmann/dharmarag/helper"
)

// Fallback tries its providers in order until one answers.
type Fallback struct {
	providers []Provider
	log       *slog.Logger
}

// NewFallback wraps primary with the given fallbacks.
func NewFallback(logger *slog.Logger, primary Provider, fallbacks ...Provider) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		providers: append([]Provider{primary}, fallbacks...),
		log:       logger,
	}
}

func (f *Fallback) Name() string  { return f.providers[0].Name() }
func (f *Fallback) Model() string { return f.providers[0].Model() }

// Providers returns the wrapped providers, primary first.
func (f *Fallback) Providers() []Provider {
	return append([]Provider(nil), f.providers...)
}

func (f *Fallback) EstimateCost(inputTokens int, outputTokens int) float64 {
	return f.providers[0].EstimateCost(inputTokens, outputTokens)
}

func (f *Fallback) Generate(ctx context.Context, req Request) (*Response, error) {
	var errs []error
	for _, p := range f.providers {
		resp, err := p.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		f.log.Warn("Provider failed", slog.String("provider", p.Name()), slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	return nil, helper.NewError("generate", errors.Join(append([]error{ErrAllProvidersFailed}, errs...)...))
}

// Stream falls back only while nothing has been streamed. Once a provider
// emitted a token its error is returned as is.
func (f *Fallback) Stream(ctx context.Context, req Request, onToken func(string) error) (*Response, error) {
	var errs []error
	for _, p := range f.providers {
		emitted := false
		resp, err := p.Stream(ctx, req, func(token string) error {
			emitted = true
			return onToken(token)
		})
		if err == nil {
			return resp, nil
		}
		if emitted || ctx.Err() != nil {
			return nil, err
		}
		f.log.Warn("Provider failed", slog.String("provider", p.Name()), slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	return nil, helper.NewError("stream", errors.Join(append([]error{ErrAllProvidersFailed}, errs...)...))
}

// HealthCheck reports the first available provider, or the primary's failure.
func (f *Fallback) HealthCheck(ctx context.Context) Health {
	var primary Health
	for i, p := range f.providers {
		health := p.HealthCheck(ctx)
		if health.Available {
			return health
		}
		if i == 0 {
			primary = health
		}
	}
	return primary
}
