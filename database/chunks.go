package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
	loadSql "github.com/siherrmann/dharmarag/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(ctx context.Context, chunk *model.TextChunk, embedding []float32) (bool, error)
	SelectExistingChunkIDs(ctx context.Context, ids []string) (map[string]bool, error)
	SelectChunksByIDs(ctx context.Context, ids []string) ([]*model.TextChunk, error)
	SelectChunksBySource(ctx context.Context, sourceDocument string) ([]*model.TextChunk, error)
	SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, filter *model.SearchFilter) ([]*model.SearchResult, error)
	DeleteChunksByIDs(ctx context.Context, ids []string) (int, error)
	DeleteChunksBySource(ctx context.Context, sourceDocument string) (int, error)
	SelectChunkStatistics(ctx context.Context) (*model.CollectionStats, error)
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table with its anchor and vector indexes.
// If the table already exists, it does not create it again.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk stores a chunk with its embedding. It returns false without
// error if a chunk with the same id is already stored.
func (h *ChunksDBHandler) InsertChunk(ctx context.Context, chunk *model.TextChunk, embedding []float32) (bool, error) {
	metadata, err := chunk.StoreMetadata()
	if err != nil {
		return false, helper.NewError("store metadata", err)
	}

	anchorTerms := make([]string, 0, len(chunk.Anchors))
	for _, term := range chunk.AnchorTerms() {
		anchorTerms = append(anchorTerms, strings.ToLower(term))
	}

	var inserted bool
	err = h.db.Instance.QueryRowContext(
		ctx,
		`SELECT insert_chunk($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		chunk.ID,
		chunk.SourceDocument,
		chunk.PageNumber,
		chunk.Metadata.Int(model.MetaPositionInPage),
		string(chunk.SectionType),
		chunk.Content,
		pq.Array(anchorTerms),
		pgvector.NewVector(embedding),
		metadata,
	).Scan(&inserted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return inserted, nil
}

// SelectExistingChunkIDs returns the subset of ids already stored.
func (h *ChunksDBHandler) SelectExistingChunkIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_existing_chunk_ids($1)`, pq.Array(ids))
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	existing := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, helper.NewError("scan", err)
		}
		existing[id] = true
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return existing, nil
}

// SelectChunksByIDs retrieves the stored chunks among ids. Unknown ids are ignored.
func (h *ChunksDBHandler) SelectChunksByIDs(ctx context.Context, ids []string) ([]*model.TextChunk, error) {
	return h.selectChunks(ctx, `SELECT * FROM select_chunks_by_ids($1)`, pq.Array(ids))
}

// SelectChunksBySource retrieves all chunks of a document in page order.
func (h *ChunksDBHandler) SelectChunksBySource(ctx context.Context, sourceDocument string) ([]*model.TextChunk, error) {
	return h.selectChunks(ctx, `SELECT * FROM select_chunks_by_source($1)`, sourceDocument)
}

func (h *ChunksDBHandler) selectChunks(ctx context.Context, query string, args ...interface{}) ([]*model.TextChunk, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.TextChunk
	for rows.Next() {
		var id, content string
		var metadata model.Metadata
		err := rows.Scan(&id, &content, &metadata)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunk, err := model.TextChunkFromStore(id, content, metadata)
		if err != nil {
			return nil, helper.NewError("restore chunk", err)
		}
		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksBySimilarity returns the nearest chunks by cosine distance.
// Similarity is 1 - distance. The filter may restrict the source document
// and require an anchor term.
func (h *ChunksDBHandler) SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, filter *model.SearchFilter) ([]*model.SearchResult, error) {
	source, anchorTerm := "", ""
	if filter != nil {
		source, anchorTerm = filter.SourceDocument, filter.AnchorTerm
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3, $4)`,
		pgvector.NewVector(embedding),
		limit,
		source,
		anchorTerm,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.SearchResult
	for rows.Next() {
		var id, content string
		var metadata model.Metadata
		var similarity float64
		err := rows.Scan(&id, &content, &metadata, &similarity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunk, err := model.TextChunkFromStore(id, content, metadata)
		if err != nil {
			return nil, helper.NewError("restore chunk", err)
		}
		results = append(results, &model.SearchResult{
			Chunk:           chunk,
			Similarity:      similarity,
			Rank:            len(results) + 1,
			RetrievalMethod: model.RetrievalMethodVector,
		})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// DeleteChunksByIDs deletes chunks and returns how many existed.
func (h *ChunksDBHandler) DeleteChunksByIDs(ctx context.Context, ids []string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_chunks_by_ids($1)`, pq.Array(ids)).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// DeleteChunksBySource deletes every chunk of a document.
func (h *ChunksDBHandler) DeleteChunksBySource(ctx context.Context, sourceDocument string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_chunks_by_source($1)`, sourceDocument).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// SelectChunkStatistics counts chunks per document and per chunk type.
func (h *ChunksDBHandler) SelectChunkStatistics(ctx context.Context) (*model.CollectionStats, error) {
	stats := &model.CollectionStats{
		Documents:  map[string]model.DocumentStats{},
		ChunkTypes: map[string]int{},
		Traditions: map[string]int{},
	}

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_chunk_counts_by_source()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var chunks, pages int
		if err := rows.Scan(&source, &chunks, &pages); err != nil {
			return nil, helper.NewError("scan", err)
		}
		stats.Documents[source] = model.DocumentStats{Chunks: chunks, Pages: pages}
		stats.TotalChunks += chunks
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	typeRows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_chunk_counts_by_type()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var chunkType string
		var chunks int
		if err := typeRows.Scan(&chunkType, &chunks); err != nil {
			return nil, helper.NewError("scan", err)
		}
		stats.ChunkTypes[chunkType] = chunks
	}
	if err := typeRows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return stats, nil
}
