package model

type DocumentStats struct {
	Chunks int `json:"chunks"`
	Pages  int `json:"pages"`
}

// CollectionStats summarises the vector store contents.
type CollectionStats struct {
	TotalChunks int                      `json:"total_chunks"`
	Documents   map[string]DocumentStats `json:"documents"`
	ChunkTypes  map[string]int           `json:"chunk_types"`
	Traditions  map[string]int           `json:"traditions"`
}

type GlossarySummary struct {
	TotalTerms          int `json:"total_terms"`
	DocumentsProcessed  int `json:"documents_processed"`
	HighConfidenceTerms int `json:"high_confidence_terms"`
}
