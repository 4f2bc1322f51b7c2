package store

import (
	"context"
	"log/slog"

	"github.com/siherrmann/dharmarag/core/pipeline"
	"github.com/siherrmann/dharmarag/database"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

// PGStore is a VectorStore on the chunks table with pgvector similarity search.
type PGStore struct {
	chunks database.ChunksDBHandlerFunctions
	embed  pipeline.EmbedFunc
	log    *slog.Logger
}

func NewPGStore(chunks database.ChunksDBHandlerFunctions, embed pipeline.EmbedFunc, logger *slog.Logger) *PGStore {
	return &PGStore{
		chunks: chunks,
		embed:  embed,
		log:    logger,
	}
}

func (s *PGStore) Upsert(ctx context.Context, chunks []*model.TextChunk) (*model.UpsertResult, error) {
	chunks = uniqueChunks(chunks)
	result := &model.UpsertResult{Total: len(chunks)}
	if len(chunks) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		ids = append(ids, chunk.ID)
	}
	existing, err := s.chunks.SelectExistingChunkIDs(ctx, ids)
	if err != nil {
		return result, helper.NewError("select existing chunk ids", err)
	}

	for _, chunk := range chunks {
		if existing[chunk.ID] {
			result.Skipped++
			continue
		}

		embedding, err := s.embed(chunk.Content)
		if err != nil {
			return result, helper.NewError("embed "+chunk.ID, err)
		}

		inserted, err := s.chunks.InsertChunk(ctx, chunk, embedding)
		if err != nil {
			return result, helper.NewError("insert chunk", err)
		}
		if inserted {
			result.Added++
		} else {
			result.Skipped++
		}
	}

	s.log.Debug("Upserted chunks", "added", result.Added, "skipped", result.Skipped)

	return result, nil
}

func (s *PGStore) Search(ctx context.Context, query string, k int, filter *model.SearchFilter) ([]*model.SearchResult, error) {
	if k <= 0 {
		return []*model.SearchResult{}, nil
	}

	embedding, err := s.embed(query)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	results, err := s.chunks.SelectChunksBySimilarity(ctx, embedding, k, filter)
	if err != nil {
		return nil, helper.NewError("similarity search", err)
	}
	if results == nil {
		results = []*model.SearchResult{}
	}
	return results, nil
}

func (s *PGStore) GetByIDs(ctx context.Context, ids []string) ([]*model.TextChunk, error) {
	chunks, err := s.chunks.SelectChunksByIDs(ctx, ids)
	if err != nil {
		return nil, helper.NewError("select chunks", err)
	}
	return chunks, nil
}

func (s *PGStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	deleted, err := s.chunks.DeleteChunksByIDs(ctx, ids)
	if err != nil {
		return 0, helper.NewError("delete chunks", err)
	}
	return deleted, nil
}

func (s *PGStore) ListBySource(ctx context.Context, sourceDocument string) ([]*model.TextChunk, error) {
	chunks, err := s.chunks.SelectChunksBySource(ctx, sourceDocument)
	if err != nil {
		return nil, helper.NewError("select chunks by source", err)
	}
	return chunks, nil
}

func (s *PGStore) Statistics(ctx context.Context) (*model.CollectionStats, error) {
	stats, err := s.chunks.SelectChunkStatistics(ctx)
	if err != nil {
		return nil, helper.NewError("chunk statistics", err)
	}
	return stats, nil
}
