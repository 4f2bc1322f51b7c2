package llm

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/siherrmann/dharmarag/helper"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI uses the OpenAI chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
	cost   costTable
}

// NewOpenAI creates a provider for model. baseURL may point at any OpenAI
// compatible endpoint; empty uses the official one.
func NewOpenAI(apiKey string, model string, baseURL string, timeout time.Duration) (*OpenAI, error) {
	if apiKey == "" {
		return nil, helper.NewError("create openai provider", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
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

	cost := costTable{input: 0.0015, output: 0.002}
	if strings.HasPrefix(model, "gpt-4") && !strings.Contains(model, "mini") {
		cost = costTable{input: 0.03, output: 0.06}
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		cost:   cost,
	}, nil
}

func (o *OpenAI) Name() string  { return ProviderOpenAI }
func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) EstimateCost(inputTokens int, outputTokens int) float64 {
	return o.cost.estimate(inputTokens, outputTokens)
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	completion, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return nil, helper.NewError("openai chat completion", err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return nil, helper.NewError("openai chat completion", ErrEmptyResponse)
	}

	resp := &Response{
		Text:         strings.TrimSpace(completion.Choices[0].Message.Content),
		Provider:     o.Name(),
		Model:        o.model,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}
	completeUsage(resp, req)
	return resp, nil
}

func (o *OpenAI) Stream(ctx context.Context, req Request, onToken func(string) error) (*Response, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(req))
	defer stream.Close()

	var text strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		text.WriteString(token)
		if err := onToken(token); err != nil {
			return nil, err
		}
	}
	if err := stream.Err(); err != nil {
		return nil, helper.NewError("openai stream", err)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, helper.NewError("openai stream", ErrEmptyResponse)
	}

	resp := &Response{
		Text:     strings.TrimSpace(text.String()),
		Provider: o.Name(),
		Model:    o.model,
	}
	completeUsage(resp, req)
	return resp, nil
}

func (o *OpenAI) HealthCheck(ctx context.Context) Health {
	if _, err := o.client.Models.List(ctx); err != nil {
		return unhealthy(o, err)
	}
	return healthy(o)
}

func (o *OpenAI) params(req Request) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       o.model,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}
