package llm

import (
	"context"
	"errors"
)

// Provider names as used in configuration.
const (
	ProviderLocal     = "local"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

var (
	ErrAllProvidersFailed = errors.New("all providers failed")
	ErrEmptyResponse      = errors.New("empty response")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrMissingAPIKey      = errors.New("missing api key")
)

// Request is a single prompt sent to a language model.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is a completed generation. Token counts are reported by the
// backend when it does so and estimated otherwise.
type Response struct {
	Text         string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Health is the result of a provider health check.
type Health struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Provider is a language model backend.
//
// Stream calls onToken for every piece of text as it arrives and returns the
// complete response at the end. An error returned by onToken aborts the stream.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, onToken func(string) error) (*Response, error)
	HealthCheck(ctx context.Context) Health
	EstimateCost(inputTokens int, outputTokens int) float64
}

// costTable prices a model in dollars per thousand tokens.
type costTable struct {
	input  float64
	output float64
}

func (c costTable) estimate(inputTokens int, outputTokens int) float64 {
	return float64(inputTokens)/1000*c.input + float64(outputTokens)/1000*c.output
}

// completeUsage fills token counts the backend did not report.
func completeUsage(resp *Response, req Request) {
	if resp.InputTokens == 0 {
		resp.InputTokens = EstimateTokens(req.System) + EstimateTokens(req.Prompt)
	}
	if resp.OutputTokens == 0 {
		resp.OutputTokens = EstimateTokens(resp.Text)
	}
}

func healthy(p Provider) Health {
	return Health{Provider: p.Name(), Model: p.Model(), Available: true}
}

func unhealthy(p Provider, err error) Health {
	return Health{Provider: p.Name(), Model: p.Model(), Error: err.Error()}
}
