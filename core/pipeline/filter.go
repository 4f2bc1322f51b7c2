package pipeline

import (
	"strings"
	"unicode"

	"github.com/siherrmann/dharmarag/model"
)

const (
	minMeaningfulWords  = 10
	minAlphabeticRatio  = 0.5
	keepWithoutKeywords = 20
)

// IsMeaningful drops short and mostly non alphabetic chunks. The rest is kept
// if it carries an anchor, mentions a doctrinal keyword or is long enough.
func IsMeaningful(chunk *model.TextChunk) bool {
	if chunk.WordCount < minMeaningfulWords {
		return false
	}
	if alphabeticRatio(chunk.Content) < minAlphabeticRatio {
		return false
	}
	if len(chunk.Anchors) > 0 {
		return true
	}

	lower := strings.ToLower(chunk.Content)
	for _, keyword := range meaningfulKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	return chunk.WordCount >= keepWithoutKeywords
}

// FilterMeaningful keeps the meaningful chunks in order.
func FilterMeaningful(chunks []*model.TextChunk) []*model.TextChunk {
	kept := make([]*model.TextChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if IsMeaningful(chunk) {
			kept = append(kept, chunk)
		}
	}
	return kept
}

func alphabeticRatio(text string) float64 {
	total, letters := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}
