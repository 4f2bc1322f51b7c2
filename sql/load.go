package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	"github.com/lib/pq"
)

//go:embed init.sql
var initSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed glossary.sql
var glossarySQL string

// Function lists for verification
var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_existing_chunk_ids",
	"select_chunks_by_ids",
	"select_chunks_by_source",
	"select_chunks_by_similarity",
	"delete_chunks_by_ids",
	"delete_chunks_by_source",
	"select_chunk_counts_by_source",
	"select_chunk_counts_by_type",
}

var DocumentsFunctions = []string{
	"init_documents",
	"upsert_document",
	"select_document",
	"select_all_documents",
	"delete_document",
	"select_tradition_counts",
}

var GlossaryFunctions = []string{
	"init_glossary",
	"insert_glossary_entry",
	"delete_glossary_by_document",
	"select_glossary_by_document",
	"select_glossary_documents",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadSql(db, "chunks", chunksSQL, ChunksFunctions, force)
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadSql(db, "documents", documentsSQL, DocumentsFunctions, force)
}

// LoadGlossarySql loads glossary-related SQL functions
func LoadGlossarySql(db *sql.DB, force bool) error {
	return loadSql(db, "glossary", glossarySQL, GlossaryFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadChunksSql(db, force); err != nil {
		return err
	}

	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}

	if err := LoadGlossarySql(db, force); err != nil {
		return err
	}

	return nil
}

// loadSql executes the statements of one file unless all of its functions
// already exist. force always executes them.
func loadSql(db *sql.DB, name string, statements string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(statements)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions reports whether every function in sqlFunctions exists.
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	if len(sqlFunctions) == 0 {
		return false, nil
	}

	var found int
	err := db.QueryRow(
		`SELECT COUNT(DISTINCT proname) FROM pg_proc WHERE proname = ANY($1);`,
		pq.Array(sqlFunctions),
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("error checking existence of functions: %w", err)
	}

	return found == len(sqlFunctions), nil
}
