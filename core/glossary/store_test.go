package glossary

import (
	"fmt"
	"testing"

	"github.com/siherrmann/dharmarag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glossaryOf(entries ...*model.GlossaryEntry) *model.Glossary {
	g := model.NewGlossary()
	for _, e := range entries {
		g.Set(e)
	}
	return g
}

func TestStoreUnifiedMerge(t *testing.T) {
	t.Run("Higher confidence definition wins", func(t *testing.T) {
		s := NewStore()
		s.AddDocument("a.pdf", glossaryOf(&model.GlossaryEntry{Term: "Karma", Definition: "action", Confidence: 0.7, Source: model.SourceInlineDefinition}))
		s.AddDocument("b.pdf", glossaryOf(&model.GlossaryEntry{Term: "Karma", Definition: "intentional action", Confidence: 0.9, Source: model.SourceGlossarySection}))

		entry, ok := s.Lookup("Karma")
		require.True(t, ok)
		assert.Equal(t, "intentional action", entry.Definition)
		assert.Equal(t, []string{"b.pdf"}, entry.SourceDocuments)
	})

	t.Run("Equal confidence accumulates sources", func(t *testing.T) {
		s := NewStore()
		s.AddDocument("a.pdf", glossaryOf(&model.GlossaryEntry{Term: "Sangha", Definition: "community", Confidence: 0.7, Source: model.SourceInlineDefinition}))
		s.AddDocument("b.pdf", glossaryOf(&model.GlossaryEntry{Term: "Sangha", Definition: "order of monks", Confidence: 0.7, Source: model.SourceInlineDefinition}))

		entry, ok := s.Lookup("Sangha")
		require.True(t, ok)
		assert.Equal(t, "community", entry.Definition, "Expected the existing entry to be kept on a tie")
		assert.Equal(t, []string{"a.pdf", "b.pdf"}, entry.SourceDocuments)
	})

	t.Run("Structural guesses never replace curated entries", func(t *testing.T) {
		s := NewStore()
		s.AddDocument("a.pdf", glossaryOf(&model.GlossaryEntry{Term: "Maitreya", Definition: "the future Buddha", Confidence: 0.7, Source: model.SourceInlineDefinition}))
		s.AddDocument("b.pdf", glossaryOf(&model.GlossaryEntry{Term: "Maitreya", Definition: buddhaNameDefinition, Confidence: 0.8, Source: model.SourceStructural}))

		def, ok := s.Definition("Maitreya")
		require.True(t, ok)
		assert.Equal(t, "the future Buddha", def)
	})

	t.Run("Re-adding a document replaces its glossary", func(t *testing.T) {
		s := NewStore()
		s.AddDocument("a.pdf", glossaryOf(&model.GlossaryEntry{Term: "Dana", Definition: "giving", Confidence: 0.7}))
		s.AddDocument("a.pdf", glossaryOf(&model.GlossaryEntry{Term: "Sila", Definition: "virtue", Confidence: 0.7}))

		_, ok := s.Lookup("Dana")
		assert.False(t, ok)
		assert.Equal(t, []string{"a.pdf"}, s.Documents())
	})
}

func TestStoreRemoveDocument(t *testing.T) {
	s := NewStore()
	s.AddDocument("a.pdf", glossaryOf(
		&model.GlossaryEntry{Term: "Sangha", Definition: "community", Confidence: 0.7},
		&model.GlossaryEntry{Term: "Vinaya", Definition: "monastic discipline", Confidence: 0.9},
	))
	s.AddDocument("b.pdf", glossaryOf(&model.GlossaryEntry{Term: "Sangha", Definition: "community", Confidence: 0.7}))

	removed := s.RemoveDocument("a.pdf")
	assert.True(t, removed)

	_, ok := s.Lookup("Vinaya")
	assert.False(t, ok, "Expected terms only a.pdf contributed to be pruned")

	entry, ok := s.Lookup("Sangha")
	require.True(t, ok)
	assert.Equal(t, []string{"b.pdf"}, entry.SourceDocuments)

	assert.False(t, s.RemoveDocument("missing.pdf"))
	assert.Equal(t, 1, s.Summary().DocumentsProcessed)
}

func TestStoreRelatedTerms(t *testing.T) {
	s := NewStore()
	entries := []*model.GlossaryEntry{{Term: "Sati", Definition: "steady awareness practice", Confidence: 0.9}}
	for i := 1; i <= 6; i++ {
		entries = append(entries, &model.GlossaryEntry{
			Term:       fmt.Sprintf("Term%d", i),
			Definition: fmt.Sprintf("awareness practice variant%d", i),
			Confidence: 0.7,
		})
	}
	entries = append(entries, &model.GlossaryEntry{Term: "Vihara", Definition: "dwelling place", Confidence: 0.7})
	s.AddDocument("a.pdf", glossaryOf(entries...))

	t.Run("Related terms are capped in glossary order", func(t *testing.T) {
		assert.Equal(t, []string{"Term1", "Term2", "Term3", "Term4", "Term5"}, s.RelatedTerms("Sati"))
	})

	t.Run("Relation is not guaranteed to be symmetric", func(t *testing.T) {
		// Term6 lists Sati, but Sati's list is full before reaching Term6.
		assert.Contains(t, s.RelatedTerms("Term6"), "Sati")
		assert.NotContains(t, s.RelatedTerms("Sati"), "Term6")
	})

	t.Run("Unrelated definitions give no related terms", func(t *testing.T) {
		assert.Empty(t, s.RelatedTerms("Vihara"))
	})

	t.Run("Cross references cover every term", func(t *testing.T) {
		refs := s.CrossReferences()
		assert.Len(t, refs, 8)
	})
}

func TestStoreQueries(t *testing.T) {
	s := NewStore()
	s.AddDocument("a.pdf", glossaryOf(
		&model.GlossaryEntry{Term: "Jhana", Definition: "meditative absorption", Confidence: 0.9},
		&model.GlossaryEntry{Term: "Tusita", Definition: "a heavenly realm", Confidence: 0.85},
		&model.GlossaryEntry{Term: "Kalyana", Definition: "lovely", Confidence: 0.5},
	))

	t.Run("Summary counts high confidence terms", func(t *testing.T) {
		summary := s.Summary()
		assert.Equal(t, 3, summary.TotalTerms)
		assert.Equal(t, 1, summary.DocumentsProcessed)
		assert.Equal(t, 2, summary.HighConfidenceTerms)
	})

	t.Run("Terms by category", func(t *testing.T) {
		assert.Equal(t, []string{"Jhana"}, s.TermsByCategory(model.CategoryMeditationPractice))
		assert.Equal(t, []string{"Tusita"}, s.TermsByCategory(model.CategoryPlaceOrRealm))
		assert.Empty(t, s.TermsByCategory(model.CategoryBeingOrPerson))
	})

	t.Run("Terms find whole words", func(t *testing.T) {
		terms := s.Terms()
		require.Len(t, terms, 3)
		assert.Len(t, terms[0].Find("jhana, JHANA and jhanas"), 2)
	})

	t.Run("Lookup returns a copy", func(t *testing.T) {
		entry, ok := s.Lookup("Jhana")
		require.True(t, ok)
		entry.Definition = "changed"
		def, _ := s.Definition("Jhana")
		assert.Equal(t, "meditative absorption", def)
	})

	t.Run("Document glossary", func(t *testing.T) {
		g, ok := s.DocumentGlossary("a.pdf")
		require.True(t, ok)
		assert.Equal(t, 3, g.Len())
		assert.Equal(t, []string{"a.pdf"}, s.Documents())

		_, ok = s.DocumentGlossary("b.pdf")
		assert.False(t, ok)
	})

	t.Run("Unknown term", func(t *testing.T) {
		_, ok := s.Definition("Unknown")
		assert.False(t, ok)
		assert.Nil(t, s.RelatedTerms("Unknown"))
	})
}
