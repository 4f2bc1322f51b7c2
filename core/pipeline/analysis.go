package pipeline

import (
	"crypto/md5" // #nosec G501
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

var (
	paliPatterns     = compileTerms(paliTerms)
	sanskritPatterns = compileTerms(sanskritTerms)
	englishPatterns  = compileTerms(englishTerms)
)

func compileTerms(terms []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		patterns = append(patterns, helper.TermPattern(term))
	}
	return patterns
}

// CountBuddhistTerms counts whole word occurrences of the Pali, Sanskrit and
// English term lists. Terms present in two lists count twice.
func CountBuddhistTerms(text string) int {
	count := 0
	for _, patterns := range [][]*regexp.Regexp{paliPatterns, sanskritPatterns, englishPatterns} {
		for _, p := range patterns {
			count += len(helper.FindWholeWord(text, p))
		}
	}
	return count
}

// DetectLanguage compares how many distinct Pali and Sanskrit terms appear.
func DetectLanguage(text string) model.Language {
	pali := distinctMatches(text, paliPatterns)
	sanskrit := distinctMatches(text, sanskritPatterns)

	switch {
	case pali > sanskrit:
		return model.LanguagePali
	case sanskrit > pali:
		return model.LanguageSanskrit
	default:
		return model.LanguageEnglish
	}
}

func distinctMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if len(helper.FindWholeWord(text, p)) > 0 {
			n++
		}
	}
	return n
}

// EstimateTradition scores every tradition by the number of its indicators
// contained in the text. Ties for the best score and texts without any
// indicator are general.
func EstimateTradition(text string) model.Tradition {
	lower := strings.ToLower(text)

	best := model.TraditionGeneral
	bestScore := 0
	tie := false
	for _, rule := range traditionRules {
		score := 0
		for _, indicator := range rule.indicators {
			if strings.Contains(lower, indicator) {
				score++
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tie = rule.tradition, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}

	if bestScore == 0 || tie {
		return model.TraditionGeneral
	}
	return best
}

// DocumentHash is the first 16 hex characters of the sha256 of the text.
func DocumentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// ChunkID derives a stable chunk id from page, position and content.
func ChunkID(content string, pageNumber int, position int) string {
	sum := md5.Sum([]byte(content)) // #nosec G401 -- not used for security
	return fmt.Sprintf("p%d_%d_%s", pageNumber, position, hex.EncodeToString(sum[:])[:8])
}
