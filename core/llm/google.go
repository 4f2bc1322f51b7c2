package llm

import (
	"context"
	"strings"
	"time"

	"github.com/siherrmann/dharmarag/helper"
	"google.golang.org/genai"
)

const DefaultGoogleModel = "gemini-1.5-flash"

// Google uses the Gemini API.
type Google struct {
	client *genai.Client
	model  string
	cost   costTable
}

func NewGoogle(ctx context.Context, apiKey string, model string, baseURL string, timeout time.Duration) (*Google, error) {
	if apiKey == "" {
		return nil, helper.NewError("create google provider", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultGoogleModel
	}

	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	}
	if timeout > 0 {
		config.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, helper.NewError("create google client", err)
	}

	return &Google{
		client: client,
		model:  model,
		cost:   costTable{input: 0.00025, output: 0.0005},
	}, nil
}

func (g *Google) Name() string  { return ProviderGoogle }
func (g *Google) Model() string { return g.model }

func (g *Google) EstimateCost(inputTokens int, outputTokens int) float64 {
	return g.cost.estimate(inputTokens, outputTokens)
}

func (g *Google) Generate(ctx context.Context, req Request) (*Response, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), g.config(req))
	if err != nil {
		return nil, helper.NewError("google generate content", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return nil, helper.NewError("google generate content", ErrEmptyResponse)
	}

	resp := &Response{
		Text:     text,
		Provider: g.Name(),
		Model:    g.model,
	}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	completeUsage(resp, req)
	return resp, nil
}

func (g *Google) Stream(ctx context.Context, req Request, onToken func(string) error) (*Response, error) {
	var text strings.Builder
	for result, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(req.Prompt), g.config(req)) {
		if err != nil {
			return nil, helper.NewError("google stream", err)
		}
		token := result.Text()
		if token == "" {
			continue
		}
		text.WriteString(token)
		if err := onToken(token); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, helper.NewError("google stream", ErrEmptyResponse)
	}

	resp := &Response{
		Text:     strings.TrimSpace(text.String()),
		Provider: g.Name(),
		Model:    g.model,
	}
	completeUsage(resp, req)
	return resp, nil
}

func (g *Google) HealthCheck(ctx context.Context) Health {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return unhealthy(g, err)
	}
	return healthy(g)
}

func (g *Google) config(req Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return config
}
