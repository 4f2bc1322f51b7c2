package llm

import (
	"strings"
	"testing"

	"github.com/siherrmann/dharmarag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult(source string, page int, sectionType model.SectionType, content string, similarity float64) *model.SearchResult {
	return &model.SearchResult{
		Chunk:      model.NewTextChunk("id", content, page, source, sectionType),
		Similarity: similarity,
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Run("Passages are numbered and labelled", func(t *testing.T) {
		prompt := BuildPrompt("What is metta?", []*model.SearchResult{
			testResult("metta.pdf", 2, model.SectionSuttaOpening, "Thus have I heard.", 0.9),
			testResult("metta.pdf", 3, model.SectionParagraph, "Metta is loving kindness.", 0.8),
			testResult("sn.pdf", 7, model.SectionDialogue, "Ananda asked the Blessed One.", 0.7),
		})

		assert.Contains(t, prompt, "Passage 1: metta.pdf, page 2 [Sutta Opening]\nThus have I heard.")
		assert.Contains(t, prompt, "Passage 2: metta.pdf, page 3\nMetta is loving kindness.")
		assert.Contains(t, prompt, "Passage 3: sn.pdf, page 7 [Dialogue]")
		assert.Contains(t, prompt, "\n---\n")
		assert.Contains(t, prompt, "Question: What is metta?")
		assert.Contains(t, prompt, "[Source: filename, page X]")
	})

	t.Run("No passages asks for a general answer", func(t *testing.T) {
		prompt := BuildPrompt("What is metta?", nil)
		assert.Contains(t, prompt, "What is metta?")
		assert.Contains(t, prompt, "No specific source passages were found")
	})

	t.Run("Long prompts are truncated", func(t *testing.T) {
		long := strings.Repeat("Dukkha arises from craving. ", 2000)
		prompt := BuildPrompt("Why?", []*model.SearchResult{
			testResult("long.pdf", 1, model.SectionParagraph, long, 0.9),
		})
		assert.LessOrEqual(t, len(prompt), MaxContextChars)
		assert.True(t, strings.HasSuffix(prompt, truncationNote))
	})
}

func TestCitations(t *testing.T) {
	citations := Citations([]*model.SearchResult{
		testResult("metta.pdf", 2, model.SectionBuddhaTeaching, "Bhikkhus, develop loving kindness.", 0.9),
	})
	require.Len(t, citations, 1)
	assert.Equal(t, "[Source: metta.pdf, page 2]", citations[0].Citation)
	assert.Equal(t, model.SectionBuddhaTeaching, citations[0].ChunkType)
	assert.Equal(t, 4, citations[0].WordCount)
	assert.Equal(t, 0.9, citations[0].Similarity)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 13, EstimateTokens("one two three four five six seven eight nine ten"))
}

func TestUsageTracker(t *testing.T) {
	tracker := NewUsageTracker()
	provider := &fakeProvider{name: "openai"}

	tracker.Record(provider, &Response{Provider: "openai", InputTokens: 600, OutputTokens: 400})
	tracker.Record(provider, &Response{Provider: "openai", InputTokens: 100, OutputTokens: 0})
	tracker.RecordFailure("anthropic")

	stats := tracker.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "anthropic", stats[0].Provider)
	assert.Equal(t, 1, stats[0].Failures)
	assert.Equal(t, 2, stats[1].Requests)
	assert.Equal(t, 1100, stats[1].TokensUsed())
	assert.InDelta(t, 1.1, stats[1].EstimatedCost, 1e-9)
}
