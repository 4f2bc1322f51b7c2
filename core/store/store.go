package store

import (
	"context"
	"errors"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

var ErrNotFound = errors.New("chunk not found")

// VectorStore holds embedded chunks and answers nearest neighbour queries.
// Similarity is 1 - cosine distance. Upsert skips chunk ids already stored.
type VectorStore interface {
	Search(ctx context.Context, query string, k int, filter *model.SearchFilter) ([]*model.SearchResult, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.TextChunk, error)
	Upsert(ctx context.Context, chunks []*model.TextChunk) (*model.UpsertResult, error)
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	ListBySource(ctx context.Context, sourceDocument string) ([]*model.TextChunk, error)
	Statistics(ctx context.Context) (*model.CollectionStats, error)
}

// Get returns the chunk with id or ErrNotFound.
func Get(ctx context.Context, s VectorStore, id string) (*model.TextChunk, error) {
	chunks, err := s.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, helper.NewError("get "+id, ErrNotFound)
	}
	return chunks[0], nil
}

// DeleteBySource removes every chunk of a document.
func DeleteBySource(ctx context.Context, s VectorStore, sourceDocument string) (int, error) {
	chunks, err := s.ListBySource(ctx, sourceDocument)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		ids = append(ids, chunk.ID)
	}
	return s.DeleteByIDs(ctx, ids)
}

func uniqueChunks(chunks []*model.TextChunk) []*model.TextChunk {
	seen := map[string]bool{}
	unique := make([]*model.TextChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if seen[chunk.ID] {
			continue
		}
		seen[chunk.ID] = true
		unique = append(unique, chunk)
	}
	return unique
}
