package llm

import (
	"fmt"
	"strings"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

// MaxContextChars bounds the assembled prompt.
const MaxContextChars = 32768

const truncationNote = "\n\n[Note: Some context was truncated due to length limits]"

// NoResultsAnswer is returned instead of calling a model when retrieval found nothing.
const NoResultsAnswer = "I couldn't find relevant passages in your Buddhist text library to answer this question. " +
	"Consider uploading more texts or rephrasing your question."

// SystemPrompt instructs the model to answer from the passages and cite them.
const SystemPrompt = `You are a knowledgeable assistant specializing in Buddhist texts and teachings. Your role is to help users understand Buddhist concepts, practices, and teachings based on the provided source material.

Guidelines:
1. Always base your answers on the provided source passages
2. Include specific citations in the format [Source: filename, page X]
3. If the sources don't contain enough information, say so clearly
4. Respect the different Buddhist traditions and their perspectives
5. Explain Pali and Sanskrit terms when they appear
6. Be precise and avoid speculation beyond the texts
7. When passages disagree, present the different views
8. Keep answers clear and well structured`

var sectionLabels = map[model.SectionType]string{
	model.SectionSuttaOpening:   " [Sutta Opening]",
	model.SectionBuddhaTeaching: " [Buddha's Teaching]",
	model.SectionDialogue:       " [Dialogue]",
}

// BuildPrompt renders the user prompt for question over the retrieved passages.
// Prompts longer than MaxContextChars are cut and marked as truncated.
func BuildPrompt(question string, results []*model.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("Please answer the following question about Buddhism:\n\n%s\n\n"+
			"Note: No specific source passages were found in the library for this question. "+
			"Please provide a general response and mention that it is not based on the uploaded texts.", question)
	}

	passages := make([]string, 0, len(results))
	for i, result := range results {
		chunk := result.Chunk
		passages = append(passages, fmt.Sprintf("Passage %d: %s, page %d%s\n%s",
			i+1, chunk.SourceDocument, chunk.PageNumber, sectionLabels[chunk.SectionType], chunk.Content))
	}

	prompt := fmt.Sprintf("Based on the following passages from Buddhist texts, please answer the question with appropriate citations.\n\n"+
		"Source Passages:\n%s\n\nQuestion: %s\n\n"+
		"Please provide a thoughtful response that draws from these sources. "+
		"Include citations in the format [Source: filename, page X] for each point you make.",
		strings.Join(passages, "\n---\n"), question)

	return truncate(prompt, MaxContextChars)
}

func truncate(prompt string, limit int) string {
	if len(prompt) <= limit {
		return prompt
	}
	cut := limit - len(truncationNote)
	// keep valid UTF-8
	for cut > 0 && !isRuneStart(prompt[cut]) {
		cut--
	}
	return prompt[:cut] + truncationNote
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Citations lists the sources of results in rank order.
func Citations(results []*model.SearchResult) []model.Citation {
	citations := make([]model.Citation, 0, len(results))
	for _, result := range results {
		chunk := result.Chunk
		citations = append(citations, model.Citation{
			Source:     chunk.SourceDocument,
			Page:       chunk.PageNumber,
			ChunkType:  chunk.SectionType,
			Similarity: result.Similarity,
			WordCount:  chunk.WordCount,
			Citation:   fmt.Sprintf("[Source: %s, page %d]", chunk.SourceDocument, chunk.PageNumber),
		})
	}
	return citations
}

// EstimateTokens approximates the token count of text as 1.3 tokens per word.
func EstimateTokens(text string) int {
	return int(float64(helper.CountWords(text)) * 1.3)
}
