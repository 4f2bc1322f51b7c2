package pipeline

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/siherrmann/dharmarag/core/glossary"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

const (
	anchorContextWidth    = 50
	uppercaseBoost        = 0.1
	contextWordBoost      = 0.05
	maxContextBoost       = 0.2
	foreignContextPenalty = 0.7
	crossLinkConfidence   = 0.6
	maxCrossLinks         = 5
)

// AnchorExtractor finds the terms of the unified glossary inside chunks.
type AnchorExtractor struct {
	glossary *glossary.Store
}

func NewAnchorExtractor(store *glossary.Store) *AnchorExtractor {
	return &AnchorExtractor{glossary: store}
}

// Extract returns at most one anchor per term, the most confident occurrence,
// sorted by descending confidence. Ties keep glossary order.
func (e *AnchorExtractor) Extract(text string, chunkID string) []*model.Anchor {
	var anchors []*model.Anchor
	for _, term := range e.glossary.Terms() {
		var best *model.Anchor
		for _, loc := range term.Find(text) {
			context := helper.ContextWindow(text, loc[0], loc[1], anchorContextWidth)
			confidence := OccurrenceConfidence(text[loc[0]:loc[1]], context, term.Entry.Confidence)
			if best != nil && confidence <= best.Confidence {
				continue
			}
			best = &model.Anchor{
				Term:         term.Entry.Term,
				Category:     term.Category,
				Confidence:   confidence,
				Context:      context,
				ChunkID:      chunkID,
				RelatedTerms: append([]string{}, term.Related...),
			}
		}
		if best != nil {
			anchors = append(anchors, best)
		}
	}

	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].Confidence > anchors[j].Confidence
	})
	return anchors
}

// OccurrenceConfidence scores one match of a term from its glossary confidence
// and the words around it. The result is clamped to [0, 1].
func OccurrenceConfidence(matched string, context string, base float64) float64 {
	confidence := base

	if r, _ := utf8.DecodeRuneInString(matched); unicode.IsUpper(r) {
		confidence += uppercaseBoost
	}

	lower := strings.ToLower(context)
	boost := 0.0
	for _, word := range contextWords {
		if strings.Contains(lower, word) {
			boost += contextWordBoost
		}
	}
	confidence += min(boost, maxContextBoost)

	for _, word := range foreignContextWords {
		if strings.Contains(lower, word) {
			confidence *= foreignContextPenalty
			break
		}
	}

	return max(0, min(confidence, 1))
}

// CrossLinks links every anchor to the documents holding a confident anchor
// of one of its related terms, rendered as "document#term".
func CrossLinks(anchors []*model.Anchor, index map[string][]*model.Anchor) map[string][]string {
	documents := make([]string, 0, len(index))
	for documentID := range index {
		documents = append(documents, documentID)
	}
	sort.Strings(documents)

	links := map[string][]string{}
	for _, anchor := range anchors {
		var related []string
		seen := map[string]bool{}
		for _, term := range anchor.RelatedTerms {
			for _, documentID := range documents {
				for _, other := range index[documentID] {
					link := documentID + "#" + other.Term
					if other.Term != term || other.Confidence <= crossLinkConfidence || seen[link] {
						continue
					}
					seen[link] = true
					related = append(related, link)
				}
			}
		}
		if len(related) > 0 {
			if len(related) > maxCrossLinks {
				related = related[:maxCrossLinks]
			}
			links[anchor.Term] = related
		}
	}
	return links
}

// AnchorCategories returns the distinct categories of anchors, sorted.
func AnchorCategories(anchors []*model.Anchor) []string {
	seen := map[model.Category]bool{}
	var categories []string
	for _, a := range anchors {
		if !seen[a.Category] {
			seen[a.Category] = true
			categories = append(categories, string(a.Category))
		}
	}
	sort.Strings(categories)
	return categories
}

// AnchorSummary counts anchors per category.
func AnchorSummary(anchors []*model.Anchor) map[model.Category]int {
	summary := map[model.Category]int{}
	for _, a := range anchors {
		summary[a.Category]++
	}
	return summary
}
