package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/siherrmann/dharmarag/core/pipeline"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

type memoryEntry struct {
	chunk     *model.TextChunk
	embedding []float32
}

// MemoryStore is an in-process VectorStore using brute force cosine similarity.
type MemoryStore struct {
	mu      sync.RWMutex
	embed   pipeline.EmbedFunc
	order   []string
	entries map[string]*memoryEntry
}

func NewMemoryStore(embed pipeline.EmbedFunc) *MemoryStore {
	return &MemoryStore{
		embed:   embed,
		entries: map[string]*memoryEntry{},
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, chunks []*model.TextChunk) (*model.UpsertResult, error) {
	chunks = uniqueChunks(chunks)
	result := &model.UpsertResult{Total: len(chunks)}

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		s.mu.RLock()
		_, exists := s.entries[chunk.ID]
		s.mu.RUnlock()
		if exists {
			result.Skipped++
			continue
		}

		embedding, err := s.embed(chunk.Content)
		if err != nil {
			return result, helper.NewError("embed "+chunk.ID, err)
		}

		s.mu.Lock()
		if _, exists := s.entries[chunk.ID]; exists {
			result.Skipped++
		} else {
			s.entries[chunk.ID] = &memoryEntry{chunk: chunk, embedding: embedding}
			s.order = append(s.order, chunk.ID)
			result.Added++
		}
		s.mu.Unlock()
	}

	return result, nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, k int, filter *model.SearchFilter) ([]*model.SearchResult, error) {
	if k <= 0 {
		return []*model.SearchResult{}, nil
	}

	embedding, err := s.embed(query)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	results := []*model.SearchResult{}
	for _, id := range s.order {
		entry := s.entries[id]
		if !matches(entry.chunk, filter) {
			continue
		}
		results = append(results, &model.SearchResult{
			Chunk:           entry.chunk,
			Similarity:      cosineSimilarity(embedding, entry.embedding),
			RetrievalMethod: model.RetrievalMethodVector,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	for i, result := range results {
		result.Rank = i + 1
	}

	return results, nil
}

func (s *MemoryStore) GetByIDs(ctx context.Context, ids []string) ([]*model.TextChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := []*model.TextChunk{}
	for _, id := range ids {
		if entry, ok := s.entries[id]; ok {
			chunks = append(chunks, entry.chunk)
		}
	}
	return uniqueChunks(chunks), nil
}

func (s *MemoryStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := s.entries[id]; ok {
			delete(s.entries, id)
			deleted++
		}
	}

	order := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.entries[id]; ok {
			order = append(order, id)
		}
	}
	s.order = order

	return deleted, nil
}

// ListBySource returns the chunks of a document in page order.
func (s *MemoryStore) ListBySource(ctx context.Context, sourceDocument string) ([]*model.TextChunk, error) {
	s.mu.RLock()
	chunks := []*model.TextChunk{}
	for _, id := range s.order {
		if chunk := s.entries[id].chunk; chunk.SourceDocument == sourceDocument {
			chunks = append(chunks, chunk)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].PageNumber != chunks[j].PageNumber {
			return chunks[i].PageNumber < chunks[j].PageNumber
		}
		return chunks[i].Metadata.Int(model.MetaPositionInPage) < chunks[j].Metadata.Int(model.MetaPositionInPage)
	})
	return chunks, nil
}

func (s *MemoryStore) Statistics(ctx context.Context) (*model.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &model.CollectionStats{
		TotalChunks: len(s.order),
		Documents:   map[string]model.DocumentStats{},
		ChunkTypes:  map[string]int{},
		Traditions:  map[string]int{},
	}

	pages := map[string]map[int]bool{}
	for _, id := range s.order {
		chunk := s.entries[id].chunk
		if pages[chunk.SourceDocument] == nil {
			pages[chunk.SourceDocument] = map[int]bool{}
		}
		pages[chunk.SourceDocument][chunk.PageNumber] = true

		docStats := stats.Documents[chunk.SourceDocument]
		docStats.Chunks++
		docStats.Pages = len(pages[chunk.SourceDocument])
		stats.Documents[chunk.SourceDocument] = docStats

		stats.ChunkTypes[string(chunk.SectionType)]++
	}

	return stats, nil
}

func matches(chunk *model.TextChunk, filter *model.SearchFilter) bool {
	if filter == nil {
		return true
	}
	if filter.SourceDocument != "" && chunk.SourceDocument != filter.SourceDocument {
		return false
	}
	if filter.AnchorTerm != "" && !chunk.HasAnchor(filter.AnchorTerm) {
		return false
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
