package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
	loadSql "github.com/siherrmann/dharmarag/sql"
)

// GlossaryDBHandlerFunctions defines the interface for Glossary database operations.
type GlossaryDBHandlerFunctions interface {
	ReplaceDocumentGlossary(ctx context.Context, document string, glossary *model.Glossary) error
	SelectDocumentGlossary(ctx context.Context, document string) (*model.Glossary, error)
	SelectGlossaryDocuments(ctx context.Context) ([]string, error)
	DeleteDocumentGlossary(ctx context.Context, document string) (int, error)
}

// GlossaryDBHandler persists per-document glossaries
type GlossaryDBHandler struct {
	db *helper.Database
}

// NewGlossaryDBHandler creates a new glossary database handler.
// It initializes the database connection and loads glossary-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewGlossaryDBHandler(db *helper.Database, force bool) (*GlossaryDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	glossaryDbHandler := &GlossaryDBHandler{
		db: db,
	}

	err := loadSql.LoadGlossarySql(glossaryDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load glossary sql", err)
	}

	err = glossaryDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized GlossaryDBHandler")

	return glossaryDbHandler, nil
}

// CreateTable creates the 'glossary_entries' table in the database.
// If the table already exists, it does not create it again.
func (h *GlossaryDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_glossary();`)
	if err != nil {
		log.Panicf("error initializing glossary table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table glossary_entries")

	return nil
}

// ReplaceDocumentGlossary stores the glossary of a document, dropping any
// previously stored entries of that document. Entry order is preserved.
func (h *GlossaryDBHandler) ReplaceDocumentGlossary(ctx context.Context, document string, glossary *model.Glossary) error {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `SELECT delete_glossary_by_document($1)`, document)
	if err != nil {
		return helper.NewError("delete glossary", err)
	}

	for position, entry := range glossary.Entries() {
		_, err = tx.ExecContext(
			ctx,
			`SELECT insert_glossary_entry($1, $2, $3, $4, $5, $6)`,
			document,
			entry.Term,
			entry.Definition,
			entry.Confidence,
			string(entry.Source),
			position,
		)
		if err != nil {
			return helper.NewError("insert glossary entry", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	return nil
}

// SelectDocumentGlossary loads the stored glossary of a document. An unknown
// document yields an empty glossary.
func (h *GlossaryDBHandler) SelectDocumentGlossary(ctx context.Context, document string) (*model.Glossary, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_glossary_by_document($1)`, document)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	glossary := model.NewGlossary()
	for rows.Next() {
		entry := &model.GlossaryEntry{}
		var source string
		err := rows.Scan(&entry.Term, &entry.Definition, &entry.Confidence, &source)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entry.Source = model.GlossarySource(source)
		entry.SourceDocuments = []string{document}
		glossary.Set(entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return glossary, nil
}

// SelectGlossaryDocuments lists the documents with a stored glossary.
func (h *GlossaryDBHandler) SelectGlossaryDocuments(ctx context.Context) ([]string, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_glossary_documents()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documents []string
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, helper.NewError("scan", err)
		}
		documents = append(documents, document)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}

// DeleteDocumentGlossary removes the stored glossary of a document.
func (h *GlossaryDBHandler) DeleteDocumentGlossary(ctx context.Context, document string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_glossary_by_document($1)`, document).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}
