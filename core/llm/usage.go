package llm

import (
	"sort"
	"sync"
)

// Usage accumulates the requests answered by one provider.
type Usage struct {
	Provider      string  `json:"provider"`
	Requests      int     `json:"requests"`
	Failures      int     `json:"failures"`
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// TokensUsed is the sum of input and output tokens.
func (u Usage) TokensUsed() int {
	return u.InputTokens + u.OutputTokens
}

// UsageTracker keeps per provider usage statistics.
type UsageTracker struct {
	mu    sync.Mutex
	usage map[string]*Usage
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{usage: map[string]*Usage{}}
}

// Record adds a successful response. The cost is priced by p, which should
// be the provider that produced resp.
func (t *UsageTracker) Record(p Provider, resp *Response) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.get(resp.Provider)
	u.Requests++
	u.InputTokens += resp.InputTokens
	u.OutputTokens += resp.OutputTokens
	if p != nil {
		u.EstimatedCost += p.EstimateCost(resp.InputTokens, resp.OutputTokens)
	}
}

// RecordFailure counts a request that produced no answer.
func (t *UsageTracker) RecordFailure(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(provider).Failures++
}

// Stats returns a copy of the statistics sorted by provider name.
func (t *UsageTracker) Stats() []Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]Usage, 0, len(t.usage))
	for _, u := range t.usage {
		stats = append(stats, *u)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Provider < stats[j].Provider
	})
	return stats
}

func (t *UsageTracker) get(provider string) *Usage {
	u, ok := t.usage[provider]
	if !ok {
		u = &Usage{Provider: provider}
		t.usage[provider] = u
	}
	return u
}

// Answerer returns the provider that produced resp when p wraps several.
func Answerer(p Provider, resp *Response) Provider {
	switch w := p.(type) {
	case *Fallback:
		for _, inner := range w.providers {
			if inner.Name() == resp.Provider {
				return Answerer(inner, resp)
			}
		}
	case *Retry:
		return Answerer(w.Provider, resp)
	}
	return p
}
