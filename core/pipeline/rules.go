package pipeline

import (
	"regexp"

	"github.com/siherrmann/dharmarag/model"
)

// sectionSentinel replaces every section break before the page is split.
const sectionSentinel = "\x00section\x00"

var sectionBreakRules = []*regexp.Regexp{
	regexp.MustCompile(`\n\s*\n\s*\n`),
	regexp.MustCompile(`---+`),
	regexp.MustCompile(`===+`),
	regexp.MustCompile(`\*\*\*+`),
}

// boundaryRules are matched against the first line of a fragment. A match
// starts a new section.
var boundaryRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\d+\.\s+`),
	regexp.MustCompile(`(?i)^Chapter\s+\d+`),
	regexp.MustCompile(`(?i)^Part\s+[IVX]+`),
	regexp.MustCompile(`^\[.*?\]`),
	regexp.MustCompile(`(?i)^Sutta\s+\d+`),
	regexp.MustCompile(`(?i)^Thus\s+have\s+I\s+heard`),
	regexp.MustCompile(`(?i)^At\s+one\s+time`),
	regexp.MustCompile(`(?i)^The\s+Blessed\s+One\s+said`),
	regexp.MustCompile(`^\*\*.*?\*\*`),
	regexp.MustCompile(`^[A-Z][A-Z\s]{3,}$`),
}

// sectionTypeRule assigns a section type. Rules with firstLine set only see
// the first line of the section, the others the whole section.
type sectionTypeRule struct {
	sectionType model.SectionType
	firstLine   bool
	pattern     *regexp.Regexp
}

// sectionTypeRules are evaluated in order, the first match wins.
var sectionTypeRules = []sectionTypeRule{
	{model.SectionSuttaReference, true, regexp.MustCompile(`^\[.*?\]`)},
	{model.SectionChapter, true, regexp.MustCompile(`(?i)^Chapter\s+\d+`)},
	{model.SectionSuttaOpening, true, regexp.MustCompile(`(?i)^Thus\s+have\s+I\s+heard`)},
	{model.SectionBuddhaTeaching, false, regexp.MustCompile(`The Blessed One said|The Buddha said`)},
	{model.SectionDialogue, false, regexp.MustCompile(`(?i)question|asked|reply`)},
	{model.SectionHeading, true, regexp.MustCompile(`^\*\*.*?\*\*`)},
}

var (
	paliTerms = []string{
		"dhamma", "sutta", "vinaya", "abhidhamma", "nirvana", "samsara",
		"karma", "jhana", "vipassana", "samadhi", "metta", "mudita",
		"karuna", "upekkha", "anicca", "dukkha", "anatta",
	}
	sanskritTerms = []string{
		"dharma", "sutra", "nirvana", "samsara", "karma", "dhyana",
		"vipashyana", "samadhi", "maitri", "mudita", "karuna",
		"upeksha", "anitya", "duhkha", "anatman",
	}
	englishTerms = []string{
		"mindfulness", "meditation", "awakening", "enlightenment",
		"compassion", "wisdom", "suffering", "impermanence",
		"interdependence", "emptiness", "bodhisattva",
	}
)

// meaningfulKeywords keep a chunk that has neither anchors nor twenty words.
var meaningfulKeywords = []string{
	"teaching", "dharma", "dhamma", "meditation", "mindfulness",
	"suffering", "compassion", "wisdom", "path", "practice",
	"buddha", "awakening", "enlightenment", "liberation",
}

type traditionRule struct {
	tradition  model.Tradition
	indicators []string
}

// traditionRules are scored in order; the order only matters for reporting.
var traditionRules = []traditionRule{
	{model.TraditionTheravada, []string{"sutta", "vinaya", "abhidhamma", "bhikkhu", "nibbana", "vipassana"}},
	{model.TraditionMahayana, []string{"sutra", "bodhisattva", "emptiness", "compassion", "wisdom"}},
	{model.TraditionZen, []string{"koan", "zazen", "satori", "zen", "dharma transmission"}},
	{model.TraditionTibetan, []string{"lama", "tulku", "bardo", "tantra", "vajrayana"}},
}

// contextWords raise the confidence of an anchor when found near it.
var contextWords = []string{
	"dharma", "sangha", "meditation", "enlightenment", "awakening",
	"liberation", "nirvana", "samsara", "karma", "rebirth",
	"monastery", "monk", "nun", "teaching", "practice",
}

// foreignContextWords mark a passage about another tradition.
var foreignContextWords = []string{"christian", "islam", "jewish", "hindu", "secular"}
