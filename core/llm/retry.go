package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry retries failed calls of a provider with exponential backoff.
type Retry struct {
	Provider
	maxRetries uint64
	newBackOff func() backoff.BackOff
	log        *slog.Logger
}

type RetryOption func(*Retry)

// WithBackOff replaces the exponential backoff, mostly for tests.
func WithBackOff(newBackOff func() backoff.BackOff) RetryOption {
	return func(r *Retry) {
		r.newBackOff = newBackOff
	}
}

// NewRetry retries provider up to maxRetries times after the first attempt.
func NewRetry(provider Provider, maxRetries int, logger *slog.Logger, opts ...RetryOption) *Retry {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Retry{
		Provider:   provider,
		maxRetries: uint64(maxRetries),
		log:        logger,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(time.Second),
				backoff.WithMaxInterval(10*time.Second),
			)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retry) Generate(ctx context.Context, req Request) (*Response, error) {
	return backoff.RetryNotifyWithData(func() (*Response, error) {
		resp, err := r.Provider.Generate(ctx, req)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, r.policy(ctx), r.notify)
}

// Stream is only retried while no token has been passed to onToken.
func (r *Retry) Stream(ctx context.Context, req Request, onToken func(string) error) (*Response, error) {
	return backoff.RetryNotifyWithData(func() (*Response, error) {
		emitted := false
		resp, err := r.Provider.Stream(ctx, req, func(token string) error {
			emitted = true
			return onToken(token)
		})
		if err != nil && (emitted || !retryable(err)) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, r.policy(ctx), r.notify)
}

func (r *Retry) policy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
}

func (r *Retry) notify(err error, next time.Duration) {
	r.log.Warn("Retrying provider", slog.String("provider", r.Name()), slog.Duration("backoff", next), slog.String("error", err.Error()))
}

func retryable(err error) bool {
	return !errors.Is(err, ErrMissingAPIKey) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
