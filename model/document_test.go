package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentFromFile(t *testing.T) {
	t.Run("Creates a record named after the file", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "satipatthana.pdf")
		err := os.WriteFile(filePath, []byte("%PDF-1.4"), 0644)
		require.NoError(t, err)

		doc, err := NewDocumentFromFile(filePath, Metadata{"translator": "Thanissaro"})
		require.NoError(t, err)
		assert.Equal(t, "satipatthana.pdf", doc.Filename)
		assert.Equal(t, filePath, doc.Path)
		assert.NotEqual(t, uuid.Nil, doc.RID)
		assert.Equal(t, "Thanissaro", doc.Metadata["translator"])
		assert.Equal(t, int64(8), doc.Metadata["file_size"])
	})

	t.Run("Returns error for non-existent file", func(t *testing.T) {
		doc, err := NewDocumentFromFile("/non/existent/file.pdf", nil)
		require.Error(t, err)
		assert.Nil(t, doc)
	})
}
