package glossary

import (
	"regexp"
	"strings"

	"github.com/siherrmann/dharmarag/model"
)

// sectionRule finds a labelled block: the body starts after header and runs
// until the first end match or the end of the text.
type sectionRule struct {
	header *regexp.Regexp
	end    *regexp.Regexp
}

var (
	allCapsLine  = `\n[A-Z][A-Z \t]*\n`
	enumeratedOr = `\n[a-z]\.\s+[A-Z]|`
)

// glossarySectionRules are tried in order. Labels ignore case, the
// terminating header line does not.
var glossarySectionRules = []sectionRule{
	{regexp.MustCompile(`(?i)g\.\s*glossary\s*\n`), regexp.MustCompile(enumeratedOr + allCapsLine)},
	{regexp.MustCompile(`(?i)glossary\s*\n`), regexp.MustCompile(allCapsLine)},
	{regexp.MustCompile(`(?i)definitions?\s*\n`), regexp.MustCompile(allCapsLine)},
	{regexp.MustCompile(`(?i)technical\s+terms?\s*\n`), regexp.MustCompile(allCapsLine)},
	{regexp.MustCompile(`(?i)vocabulary\s*\n`), regexp.MustCompile(allCapsLine)},
	{regexp.MustCompile(`(?i)sanskrit\s+terms?\s*\n`), regexp.MustCompile(allCapsLine)},
	{regexp.MustCompile(`(?i)pali\s+terms?\s*\n`), regexp.MustCompile(allCapsLine)},
	{regexp.MustCompile(`(?i)tibetan\s+terms?\s*\n`), regexp.MustCompile(allCapsLine)},
	{regexp.MustCompile(`(?i)ab\.\s*abbreviations\s*\n`), regexp.MustCompile(enumeratedOr + allCapsLine)},
	{regexp.MustCompile(`(?i)abbreviations\s*\n`), regexp.MustCompile(allCapsLine)},
}

var introductionRule = sectionRule{
	header: regexp.MustCompile(`(?i)i\.\s*introduction\s*\n`),
	end:    regexp.MustCompile(`\n[a-z0-9]\.\s+[A-Z]|tr\.\s+Translation`),
}

// termLine is the shape of a line starting a new glossary entry.
var termLine = regexp.MustCompile(`^[A-Za-z][A-Za-z\s\(\)]{1,40}[:–—\-]`)

const termSeparators = ":-–—"

// inlineRules capture a term in group 1 and its definition in group 2.
var inlineRules = []*regexp.Regexp{
	regexp.MustCompile(`([A-Za-z][A-Za-z\s]{2,30})\s*[\(:]([^\.]+[\.\)])`),
	regexp.MustCompile(`([A-Za-z][A-Za-z\s]{2,30})\s*[–—]\s*([^\.]+\.)`),
	regexp.MustCompile(`\*([A-Za-z][A-Za-z\s]{2,30})\*\s*[–—:]?\s*([^\.]+\.)`),
}

// inlineKeywords gate inline candidates: term plus definition must contain one.
var inlineKeywords = []string{
	"buddha", "dharma", "meditation", "mindfulness", "enlightenment",
	"awakening", "liberation", "nirvana", "samsara", "karma", "rebirth",
	"suffering", "impermanence", "compassion", "wisdom", "monastery",
	"monk", "nun", "teaching", "practice", "path", "truth", "noble",
	"eightfold", "precept", "jhana", "samadhi", "vipassana",
}

// chapterTitleRules capture titles naming a doctrinal concept in group 1.
var chapterTitleRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)·\s+([A-Z][^·\n]*(?:Buddha|Dharma|Sangha|Meditation|Enlightenment|Awakening|Sutra|Sutta)[^·\n]*)`),
	regexp.MustCompile(`(?i)Chapter\s+\d+[:\.\-]\s*([A-Z][^\n]*(?:Buddha|Dharma|Sangha|Meditation|Enlightenment|Awakening|Sutra|Sutta)[^\n]*)`),
	regexp.MustCompile(`(?i)\d+\.[A-Z]\s+([A-Z][^\n]*(?:Buddha|Dharma|Sangha|Meditation|Enlightenment|Awakening|Sutra|Sutta)[^\n]*)`),
}

const maxTitleLength = 100

// buddhaNameRule matches named Buddhas and common epithets.
var buddhaNameRule = regexp.MustCompile(`(Buddha\s+[A-Z][a-z]+|(?i:Tathāgata|Bhagavat|Śākyamuni|Maitreya|Amitābha|Avalokiteśvara))`)

const buddhaNameDefinition = "A Buddha or Buddhist figure mentioned in this text."

// titleCaseRules find candidate terms in introductions and titles.
var titleCaseRules = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z][a-z]*(?:\s+[A-Z][a-z]*){0,2}`),
	regexp.MustCompile(`[A-Z][a-zāīūṛṅñṭḍṇḷśṣ]+`),
}

var titleCaseStopwords = map[string]bool{
	"this": true, "that": true, "they": true, "there": true, "then": true,
	"thus": true, "the": true, "these": true, "those": true,
}

const diacritics = "āīūṛṅñṭḍṇḷśṣḥṃ"

// buddhistSuffixes are Sanskrit/Pali endings, word parts and Tibetan syllables.
var buddhistSuffixes = []string{
	"a", "ā", "i", "ī", "u", "ū", "e", "o",
	"dharma", "buddha", "bodhi", "sangha", "karma", "sutra", "sutta",
	"muni", "gata", "patra", "ratna", "mani", "padme", "hum",
	"pa", "ba", "ma", "wa", "tse", "che", "je", "la",
}

var buddhistWordParts = []string{"buddha", "dharma", "sangha", "bodhi", "karma", "sutra", "mani", "padme"}

// looksBuddhist is the heuristic gating low confidence structural terms.
func looksBuddhist(term string) bool {
	if strings.ContainsAny(term, diacritics) {
		return true
	}

	lower := strings.ToLower(term)
	for _, suffix := range buddhistSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	for _, part := range buddhistWordParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

type categoryRule struct {
	category model.Category
	keywords []string
}

// categoryRules are evaluated first match wins.
var categoryRules = []categoryRule{
	{model.CategoryMeditationPractice, []string{"meditation", "mindfulness", "awareness", "concentration", "jhana", "samadhi", "vipassana", "samatha"}},
	{model.CategoryCoreDoctrine, []string{"truth", "path", "noble", "suffering", "cessation", "origin", "nirvana"}},
	{model.CategoryPhilosophicalConcept, []string{"emptiness", "impermanence", "non-self", "interdependence", "dependent", "nature"}},
	{model.CategoryBeingOrPerson, []string{"buddha", "bodhisattva", "arhat", "monk", "nun", "practitioner", "teacher"}},
	{model.CategoryScriptureOrText, []string{"sutra", "sutta", "text", "scripture", "teaching", "discourse", "commentary"}},
	{model.CategoryPracticeOrVirtue, []string{"compassion", "wisdom", "generosity", "ethics", "precept", "virtue", "conduct"}},
	{model.CategoryPlaceOrRealm, []string{"realm", "world", "paradise", "monastery", "temple", "place"}},
}

// Categorize classifies a term by its term and definition text.
func Categorize(term string, definition string) model.Category {
	text := strings.ToLower(term + " " + definition)
	for _, rule := range categoryRules {
		if containsAny(text, rule.keywords) {
			return rule.category
		}
	}
	return model.CategoryGlossaryTerm
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
