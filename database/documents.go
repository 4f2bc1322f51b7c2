package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
	loadSql "github.com/siherrmann/dharmarag/sql"
)

// ErrDocumentNotFound is returned when no document has the requested filename.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	UpsertDocument(ctx context.Context, doc *model.Document) error
	SelectDocument(ctx context.Context, filename string) (*model.Document, error)
	SelectAllDocuments(ctx context.Context) ([]*model.Document, error)
	DeleteDocument(ctx context.Context, filename string) (bool, error)
	SelectTraditionCounts(ctx context.Context) (map[string]int, error)
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It initializes the database connection and loads document-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db: db,
	}

	err := loadSql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		log.Panicf("error initializing documents table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// UpsertDocument inserts the document or updates the record with the same
// filename. The stored id, rid and timestamps are written back to doc.
func (h *DocumentsDBHandler) UpsertDocument(ctx context.Context, doc *model.Document) error {
	if doc.RID == uuid.Nil {
		doc.RID = uuid.New()
	}
	if doc.Metadata == nil {
		doc.Metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_document($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		doc.RID,
		doc.Filename,
		doc.Path,
		doc.Pages,
		doc.TotalChunks,
		doc.MeaningfulChunks,
		doc.AddedChunks,
		doc.DocumentHash,
		string(doc.Language),
		string(doc.Tradition),
		doc.ProcessingTime,
		doc.Metadata,
	)

	err := scanDocument(row, doc)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by filename.
func (h *DocumentsDBHandler) SelectDocument(ctx context.Context, filename string) (*model.Document, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_document($1)`, filename)

	doc := &model.Document{}
	err := scanDocument(row, doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError("select document", ErrDocumentNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectAllDocuments retrieves all documents in ingestion order.
func (h *DocumentsDBHandler) SelectAllDocuments(ctx context.Context) ([]*model.Document, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_documents()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documents []*model.Document
	for rows.Next() {
		doc := &model.Document{}
		if err := scanDocument(rows, doc); err != nil {
			return nil, helper.NewError("scan", err)
		}
		documents = append(documents, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}

// DeleteDocument deletes a document by filename and reports whether it existed.
func (h *DocumentsDBHandler) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_document($1)`, filename).Scan(&deleted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return deleted > 0, nil
}

// SelectTraditionCounts counts documents per estimated tradition.
func (h *DocumentsDBHandler) SelectTraditionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_tradition_counts()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var tradition string
		var documents int
		if err := rows.Scan(&tradition, &documents); err != nil {
			return nil, helper.NewError("scan", err)
		}
		counts[tradition] = documents
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner, doc *model.Document) error {
	var language, tradition string
	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.Filename,
		&doc.Path,
		&doc.Pages,
		&doc.TotalChunks,
		&doc.MeaningfulChunks,
		&doc.AddedChunks,
		&doc.DocumentHash,
		&language,
		&tradition,
		&doc.ProcessingTime,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return err
	}
	doc.Language = model.Language(language)
	doc.Tradition = model.Tradition(tradition)
	return nil
}
