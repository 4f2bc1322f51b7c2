package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/dharmarag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGlossary(entries ...*model.GlossaryEntry) *model.Glossary {
	glossary := model.NewGlossary()
	for _, entry := range entries {
		glossary.Set(entry)
	}
	return glossary
}

func TestGlossaryNewGlossaryDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewGlossaryDBHandler", func(t *testing.T) {
		glossaryDbHandler, err := NewGlossaryDBHandler(database, true)
		assert.NoError(t, err, "Expected NewGlossaryDBHandler to not return an error")
		require.NotNil(t, glossaryDbHandler, "Expected NewGlossaryDBHandler to return a non-nil instance")
		require.NotNil(t, glossaryDbHandler.db.Instance, "Expected NewGlossaryDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewGlossaryDBHandler with nil database", func(t *testing.T) {
		_, err := NewGlossaryDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating GlossaryDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestGlossaryReplaceAndSelect(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	glossaryDbHandler, err := NewGlossaryDBHandler(database, true)
	require.NoError(t, err, "Expected NewGlossaryDBHandler to not return an error")

	document := uuid.NewString() + ".pdf"

	t.Run("Store a glossary in order", func(t *testing.T) {
		err := glossaryDbHandler.ReplaceDocumentGlossary(ctx, document, testGlossary(
			&model.GlossaryEntry{Term: "Sati", Definition: "mindfulness", Confidence: 0.9, Source: model.SourceGlossarySection},
			&model.GlossaryEntry{Term: "Metta", Definition: "loving kindness", Confidence: 0.8, Source: model.SourceInlineDefinition},
		))
		require.NoError(t, err, "Expected ReplaceDocumentGlossary to not return an error")

		glossary, err := glossaryDbHandler.SelectDocumentGlossary(ctx, document)
		require.NoError(t, err)
		assert.Equal(t, []string{"Sati", "Metta"}, glossary.Terms())

		entry, ok := glossary.Get("Metta")
		require.True(t, ok)
		assert.Equal(t, "loving kindness", entry.Definition)
		assert.Equal(t, model.SourceInlineDefinition, entry.Source)
		assert.Equal(t, []string{document}, entry.SourceDocuments)
	})

	t.Run("Replace drops previous entries", func(t *testing.T) {
		err := glossaryDbHandler.ReplaceDocumentGlossary(ctx, document, testGlossary(
			&model.GlossaryEntry{Term: "Dukkha", Definition: "suffering", Confidence: 0.9, Source: model.SourceGlossarySection},
		))
		require.NoError(t, err)

		glossary, err := glossaryDbHandler.SelectDocumentGlossary(ctx, document)
		require.NoError(t, err)
		assert.Equal(t, []string{"Dukkha"}, glossary.Terms())
	})

	t.Run("Unknown document yields an empty glossary", func(t *testing.T) {
		glossary, err := glossaryDbHandler.SelectDocumentGlossary(ctx, "missing.pdf")
		require.NoError(t, err)
		assert.Equal(t, 0, glossary.Len())
	})
}

func TestGlossaryDocuments(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	glossaryDbHandler, err := NewGlossaryDBHandler(database, true)
	require.NoError(t, err, "Expected NewGlossaryDBHandler to not return an error")

	first := uuid.NewString() + ".pdf"
	second := uuid.NewString() + ".pdf"
	entry := &model.GlossaryEntry{Term: "Nibbana", Definition: "liberation", Confidence: 0.9, Source: model.SourceGlossarySection}
	require.NoError(t, glossaryDbHandler.ReplaceDocumentGlossary(ctx, first, testGlossary(entry)))
	require.NoError(t, glossaryDbHandler.ReplaceDocumentGlossary(ctx, second, testGlossary(entry)))

	t.Run("Documents in storage order", func(t *testing.T) {
		documents, err := glossaryDbHandler.SelectGlossaryDocuments(ctx)
		require.NoError(t, err)

		positions := map[string]int{}
		for i, document := range documents {
			positions[document] = i
		}
		require.Contains(t, positions, first)
		require.Contains(t, positions, second)
		assert.Less(t, positions[first], positions[second])
	})

	t.Run("Delete a document glossary", func(t *testing.T) {
		deleted, err := glossaryDbHandler.DeleteDocumentGlossary(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		documents, err := glossaryDbHandler.SelectGlossaryDocuments(ctx)
		require.NoError(t, err)
		assert.NotContains(t, documents, first)
	})
}
