package model

import "time"

type Citation struct {
	Source     string      `json:"source"`
	Page       int         `json:"page"`
	ChunkType  SectionType `json:"chunk_type"`
	Similarity float64     `json:"similarity"`
	WordCount  int         `json:"word_count"`
	Citation   string      `json:"citation"`
}

// Answer is a generated response with the passages it was grounded on.
type Answer struct {
	Question       string        `json:"question"`
	Text           string        `json:"answer"`
	Sources        []Citation    `json:"sources"`
	Provider       string        `json:"provider,omitempty"`
	Model          string        `json:"model,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}
