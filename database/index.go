package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/dharmarag/helper"
)

type IndexType string

const (
	IndexHNSW    IndexType = "hnsw"
	IndexIVFFlat IndexType = "ivfflat"
)

// IndexParams tunes the embedding index. Zero values use the defaults
// (m 16, ef_construction 64, lists 100).
type IndexParams struct {
	M              int `json:"m,omitempty"`
	EfConstruction int `json:"ef_construction,omitempty"`
	Lists          int `json:"lists,omitempty"`
}

func (p IndexParams) createStatement(indexType IndexType) (string, error) {
	switch indexType {
	case IndexHNSW:
		m, ef := 16, 64
		if p.M > 0 {
			m = p.M
		}
		if p.EfConstruction > 0 {
			ef = p.EfConstruction
		}
		return fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, ef,
		), nil
	case IndexIVFFlat:
		lists := 100
		if p.Lists > 0 {
			lists = p.Lists
		}
		return fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		), nil
	default:
		return "", fmt.Errorf("unsupported index type %q, use %q or %q", indexType, IndexHNSW, IndexIVFFlat)
	}
}

// ChangeIndexType rebuilds the chunk embedding index as indexType. The old
// index is only dropped if the new one can be created.
func (h *ChunksDBHandler) ChangeIndexType(ctx context.Context, indexType IndexType, params IndexParams) error {
	statement, err := params.createStatement(indexType)
	if err != nil {
		return helper.NewError("change index type", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_chunks_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, statement)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit index", err)
	}

	h.db.Logger.Info("Changed embedding index", slog.String("type", string(indexType)), slog.Any("params", params))

	return nil
}
