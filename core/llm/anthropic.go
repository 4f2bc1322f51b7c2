package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/siherrmann/dharmarag/helper"
)

const (
	DefaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 1000
)

// Anthropic uses the Anthropic messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
	cost   costTable
}

func NewAnthropic(apiKey string, model string, baseURL string, timeout time.Duration) (*Anthropic, error) {
	if apiKey == "" {
		return nil, helper.NewError("create anthropic provider", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  model,
		cost:   costTable{input: 0.003, output: 0.015},
	}, nil
}

func (a *Anthropic) Name() string  { return ProviderAnthropic }
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) EstimateCost(inputTokens int, outputTokens int) float64 {
	return a.cost.estimate(inputTokens, outputTokens)
}

func (a *Anthropic) Generate(ctx context.Context, req Request) (*Response, error) {
	message, err := a.client.Messages.New(ctx, a.params(req))
	if err != nil {
		return nil, helper.NewError("anthropic message", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, helper.NewError("anthropic message", ErrEmptyResponse)
	}

	resp := &Response{
		Text:         strings.TrimSpace(text.String()),
		Provider:     a.Name(),
		Model:        a.model,
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}
	completeUsage(resp, req)
	return resp, nil
}

func (a *Anthropic) Stream(ctx context.Context, req Request, onToken func(string) error) (*Response, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(req))
	defer stream.Close()

	var text strings.Builder
	for stream.Next() {
		event := stream.Current()
		if event.Type != "content_block_delta" || event.Delta.Type != "text_delta" {
			continue
		}
		text.WriteString(event.Delta.Text)
		if err := onToken(event.Delta.Text); err != nil {
			return nil, err
		}
	}
	if err := stream.Err(); err != nil {
		return nil, helper.NewError("anthropic stream", err)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, helper.NewError("anthropic stream", ErrEmptyResponse)
	}

	resp := &Response{
		Text:     strings.TrimSpace(text.String()),
		Provider: a.Name(),
		Model:    a.model,
	}
	completeUsage(resp, req)
	return resp, nil
}

func (a *Anthropic) HealthCheck(ctx context.Context) Health {
	if _, err := a.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return unhealthy(a, err)
	}
	return healthy(a)
}

func (a *Anthropic) params(req Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Model:       anthropic.Model(a.model),
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}
