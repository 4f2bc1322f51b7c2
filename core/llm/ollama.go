package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/siherrmann/dharmarag/helper"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.1:8b"
	DefaultOllamaTimeout = 120 * time.Second
)

var ollamaStopSequences = []string{"Human:", "User:"}

// Ollama talks to a local Ollama server.
type Ollama struct {
	client  *http.Client
	baseURL string
	model   string
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllama creates a provider for model served at baseURL. Empty values fall
// back to the defaults.
func NewOllama(baseURL string, model string, timeout time.Duration) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = DefaultOllamaTimeout
	}
	return &Ollama{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
}

func (o *Ollama) Name() string  { return ProviderLocal }
func (o *Ollama) Model() string { return o.model }

// EstimateCost is zero for local models.
func (o *Ollama) EstimateCost(inputTokens int, outputTokens int) float64 {
	return 0
}

func (o *Ollama) Generate(ctx context.Context, req Request) (*Response, error) {
	body, err := o.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(body).Decode(&genResp); err != nil {
		return nil, helper.NewError("decode response", err)
	}
	if genResp.Error != "" {
		return nil, helper.NewError("ollama generate", fmt.Errorf("%s", genResp.Error))
	}

	return o.response(req, genResp.Response, genResp)
}

// Stream reads the newline delimited JSON objects of a streamed generation.
func (o *Ollama) Stream(ctx context.Context, req Request, onToken func(string) error) (*Response, error) {
	body, err := o.post(ctx, req, true)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var text strings.Builder
	var last ollamaGenerateResponse
	decoder := json.NewDecoder(body)
	for {
		var part ollamaGenerateResponse
		err := decoder.Decode(&part)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, helper.NewError("decode stream", err)
		}
		if part.Error != "" {
			return nil, helper.NewError("ollama stream", fmt.Errorf("%s", part.Error))
		}
		if part.Response != "" {
			text.WriteString(part.Response)
			if err := onToken(part.Response); err != nil {
				return nil, err
			}
		}
		last = part
		if part.Done {
			break
		}
	}

	return o.response(req, text.String(), last)
}

// HealthCheck checks that the server is reachable and has the model pulled.
func (o *Ollama) HealthCheck(ctx context.Context) Health {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return unhealthy(o, err)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return unhealthy(o, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unhealthy(o, fmt.Errorf("ollama error (status %d)", resp.StatusCode))
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return unhealthy(o, err)
	}
	for _, m := range tags.Models {
		if m.Name == o.model {
			return healthy(o)
		}
	}
	return unhealthy(o, fmt.Errorf("model %s not found, run: ollama pull %s", o.model, o.model))
}

func (o *Ollama) post(ctx context.Context, req Request, stream bool) (io.ReadCloser, error) {
	reqBody := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: stream,
		Options: &ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        0.9,
			Stop:        ollamaStopSequences,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, helper.NewError("marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, helper.NewError("create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, helper.NewError("send request", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, helper.NewError("ollama generate", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	return resp.Body, nil
}

func (o *Ollama) response(req Request, text string, final ollamaGenerateResponse) (*Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, helper.NewError("ollama generate", ErrEmptyResponse)
	}
	resp := &Response{
		Text:         text,
		Provider:     o.Name(),
		Model:        o.model,
		InputTokens:  final.PromptEvalCount,
		OutputTokens: final.EvalCount,
	}
	completeUsage(resp, req)
	return resp, nil
}
