package model

type RetrievalMethod string

const (
	RetrievalMethodVector RetrievalMethod = "vector"
	RetrievalMethodAnchor RetrievalMethod = "anchor"
)

// SearchResult is a chunk returned by a search with its score and 1-based rank.
type SearchResult struct {
	Chunk           *TextChunk      `json:"chunk"`
	Similarity      float64         `json:"similarity"`
	Rank            int             `json:"rank"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method,omitempty"`
}

// SearchFilter restricts a search. Empty fields do not filter.
type SearchFilter struct {
	SourceDocument string `json:"source_document,omitempty"`
	AnchorTerm     string `json:"anchor_term,omitempty"`
}

// UpsertResult reports what an ingestion wrote to the store.
type UpsertResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// CrossReference points from a term to an anchored occurrence in another document.
type CrossReference struct {
	Term     string  `json:"term"`
	Document string  `json:"document"`
	ChunkID  string  `json:"chunk_id"`
	Anchor   *Anchor `json:"anchor"`
}
