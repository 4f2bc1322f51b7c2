package pipeline

import (
	"testing"

	"github.com/siherrmann/dharmarag/model"
	"github.com/stretchr/testify/assert"
)

func chunkOf(content string) *model.TextChunk {
	return model.NewTextChunk("id", content, 1, "doc.pdf", model.SectionParagraph)
}

func TestIsMeaningful(t *testing.T) {
	t.Run("Eight plain words are dropped", func(t *testing.T) {
		assert.False(t, IsMeaningful(chunkOf(words(8, "river"))))
	})

	t.Run("Twenty five plain words are kept", func(t *testing.T) {
		assert.True(t, IsMeaningful(chunkOf(words(25, "river"))))
	})

	t.Run("Twelve words with a keyword are kept", func(t *testing.T) {
		assert.True(t, IsMeaningful(chunkOf("the dharma "+words(10, "river"))))
	})

	t.Run("Twelve plain words are dropped", func(t *testing.T) {
		assert.False(t, IsMeaningful(chunkOf(words(12, "river"))))
	})

	t.Run("Anchored chunks are kept", func(t *testing.T) {
		chunk := chunkOf(words(12, "river"))
		chunk.Anchors = []*model.Anchor{{Term: "river", Category: model.CategoryGlossaryTerm}}
		assert.True(t, IsMeaningful(chunk))
	})

	t.Run("Mostly numeric content is dropped", func(t *testing.T) {
		assert.False(t, IsMeaningful(chunkOf("12 34 56 78 90 12 34 56 78 90 12 34 56 78 90 12 34 56 78 90 12 dharma")))
	})

	t.Run("Keywords match inside words", func(t *testing.T) {
		assert.True(t, IsMeaningful(chunkOf("the practices "+words(10, "river"))))
	})
}

func TestFilterMeaningful(t *testing.T) {
	chunks := []*model.TextChunk{
		chunkOf(words(8, "river")),
		chunkOf(words(25, "river")),
		chunkOf("the dharma " + words(10, "river")),
	}

	kept := FilterMeaningful(chunks)

	assert.Equal(t, []*model.TextChunk{chunks[1], chunks[2]}, kept)
}
