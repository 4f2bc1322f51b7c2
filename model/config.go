package model

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	TopK           int    `json:"top_k"`
	SourceDocument string `json:"source_document,omitempty"`
	// MaxResponseTokens bounds the generated answer.
	MaxResponseTokens int `json:"max_response_tokens"`
}

func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:              5,
		MaxResponseTokens: 1000,
	}
}

// Filter returns the search filter for the configured source document.
func (c QueryConfig) Filter() *SearchFilter {
	if c.SourceDocument == "" {
		return nil
	}
	return &SearchFilter{SourceDocument: c.SourceDocument}
}
