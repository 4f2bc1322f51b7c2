package model

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Language string

const (
	LanguagePali     Language = "theravada_pali"
	LanguageSanskrit Language = "mahayana_sanskrit"
	LanguageEnglish  Language = "english_general"
)

type Tradition string

const (
	TraditionTheravada Tradition = "theravada"
	TraditionMahayana  Tradition = "mahayana"
	TraditionZen       Tradition = "zen"
	TraditionTibetan   Tradition = "tibetan"
	TraditionGeneral   Tradition = "general"
)

// Document is the registry record of an ingested source file.
type Document struct {
	ID               int64     `json:"id"`
	RID              uuid.UUID `json:"rid"`
	Filename         string    `json:"filename"`
	Path             string    `json:"path,omitempty"`
	Pages            int       `json:"pages"`
	TotalChunks      int       `json:"total_chunks"`
	MeaningfulChunks int       `json:"meaningful_chunks"`
	AddedChunks      int       `json:"added_chunks"`
	DocumentHash     string    `json:"document_hash"`
	Language         Language  `json:"language"`
	Tradition        Tradition `json:"tradition"`
	ProcessingTime   float64   `json:"processing_time"` // seconds
	Metadata         Metadata  `json:"metadata,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewDocumentFromFile creates a registry record for the file at filePath.
// The filename is used as the document identifier.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = Metadata{}
	}
	metadata["file_size"] = info.Size()

	return &Document{
		RID:      uuid.New(),
		Filename: filepath.Base(filePath),
		Path:     filePath,
		Metadata: metadata,
	}, nil
}
