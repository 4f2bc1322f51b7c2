package glossary

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

const (
	confidenceGlossarySection = 0.9
	confidenceInline          = 0.7
	confidenceStructural      = 0.6
	confidenceTitleCase       = 0.5

	structuralContextWidth = 100
	structuralContextLimit = 150
)

// Builder extracts glossary entries from the full text of one document.
type Builder struct {
	log *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{log: logger}
}

// Build runs the glossary section, inline definition and structural passes
// and merges them. A later pass does not replace an entry of higher confidence.
func (b *Builder) Build(text string, documentID string) *model.Glossary {
	glossary := model.NewGlossary()
	if strings.TrimSpace(text) == "" {
		return glossary
	}

	passes := []*model.Glossary{
		b.ExtractGlossarySection(text),
		b.ExtractInlineDefinitions(text),
		b.ExtractStructuralTerms(text),
	}
	for _, pass := range passes {
		for _, entry := range pass.Entries() {
			if existing, ok := glossary.Get(entry.Term); ok && existing.Confidence > entry.Confidence {
				continue
			}
			entry.SourceDocuments = []string{documentID}
			glossary.Set(entry)
		}
	}

	b.log.Info("Extracted glossary", slog.String("document", documentID), slog.Int("terms", glossary.Len()))

	return glossary
}

// ExtractGlossarySection parses explicit glossary, definition and abbreviation blocks.
func (b *Builder) ExtractGlossarySection(text string) *model.Glossary {
	glossary := model.NewGlossary()
	for _, rule := range glossarySectionRules {
		for _, block := range findSections(text, rule) {
			for _, entry := range parseGlossaryBlock(block) {
				glossary.Set(entry)
			}
		}
	}
	return glossary
}

// ExtractInlineDefinitions finds "Term (definition)", "Term: definition",
// "Term – definition" and "*Term* definition" sentences.
func (b *Builder) ExtractInlineDefinitions(text string) *model.Glossary {
	glossary := model.NewGlossary()
	for _, rule := range inlineRules {
		for _, m := range rule.FindAllStringSubmatch(text, -1) {
			term := strings.TrimSpace(m[1])
			definition := strings.TrimRight(strings.TrimSpace(m[2]), ".")
			if !containsAny(strings.ToLower(term+" "+definition), inlineKeywords) {
				continue
			}
			glossary.Set(&model.GlossaryEntry{
				Term:       term,
				Definition: definition,
				Confidence: confidenceInline,
				Source:     model.SourceInlineDefinition,
			})
		}
	}
	return glossary
}

// ExtractStructuralTerms guesses terms from the introduction, from chapter
// titles naming doctrinal concepts and from Buddha names and epithets.
func (b *Builder) ExtractStructuralTerms(text string) *model.Glossary {
	glossary := model.NewGlossary()

	for _, intro := range findSections(text, introductionRule) {
		for _, entry := range titleCaseTerms(intro, "introduction") {
			glossary.Set(entry)
		}
	}

	for _, rule := range chapterTitleRules {
		for _, m := range rule.FindAllStringSubmatch(text, -1) {
			title := strings.TrimSpace(m[1])
			if len(title) >= maxTitleLength {
				continue
			}
			for _, entry := range titleCaseTerms(title, "chapter_title") {
				glossary.Set(entry)
			}
		}
	}

	for _, m := range buddhaNameRule.FindAllStringSubmatch(text, -1) {
		glossary.Set(&model.GlossaryEntry{
			Term:       strings.TrimSpace(m[1]),
			Definition: buddhaNameDefinition,
			Confidence: confidenceStructural,
			Source:     model.SourceStructural,
		})
	}

	b.log.Debug("Extracted structural terms", slog.Int("terms", glossary.Len()))

	return glossary
}

// findSections returns the bodies of all non-overlapping blocks matched by rule.
func findSections(text string, rule sectionRule) []string {
	var sections []string
	next := 0
	for _, loc := range rule.header.FindAllStringIndex(text, -1) {
		if loc[0] < next {
			continue
		}
		body := text[loc[1]:]
		if end := rule.end.FindStringIndex(body); end != nil {
			body = body[:end[0]]
		}
		next = loc[1] + len(body)
		sections = append(sections, body)
	}
	return sections
}

// parseGlossaryBlock reads "Term: definition" lines. Lines not shaped like a
// term start continue the previous definition.
func parseGlossaryBlock(block string) []*model.GlossaryEntry {
	var entries []*model.GlossaryEntry
	var term, definition string

	flush := func() {
		if term != "" && strings.TrimSpace(definition) != "" {
			entries = append(entries, &model.GlossaryEntry{
				Term:       term,
				Definition: strings.TrimSpace(definition),
				Confidence: confidenceGlossarySection,
				Source:     model.SourceGlossarySection,
			})
		}
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if termLine.MatchString(line) {
			flush()
			if i := strings.IndexAny(line, termSeparators); i >= 0 {
				term = strings.TrimSpace(line[:i])
				_, size := utf8.DecodeRuneInString(line[i:])
				definition = strings.TrimSpace(line[i+size:])
			} else {
				term = line
				definition = ""
			}
			continue
		}

		if term != "" {
			definition += " " + line
		}
	}
	flush()

	return entries
}

func titleCaseTerms(text string, origin string) []*model.GlossaryEntry {
	var entries []*model.GlossaryEntry
	for _, rule := range titleCaseRules {
		for _, loc := range helper.FindWholeWord(text, rule) {
			term := strings.TrimSpace(text[loc[0]:loc[1]])
			if len([]rune(term)) < 4 || titleCaseStopwords[strings.ToLower(term)] || !looksBuddhist(term) {
				continue
			}

			context := []rune(helper.ContextWindow(text, loc[0], loc[1], structuralContextWidth))
			if len(context) > structuralContextLimit {
				context = context[:structuralContextLimit]
			}

			entries = append(entries, &model.GlossaryEntry{
				Term:       term,
				Definition: fmt.Sprintf("Buddhist term or concept mentioned in %s: %s...", origin, string(context)),
				Confidence: confidenceTitleCase,
				Source:     model.SourceStructural,
			})
		}
	}
	return entries
}
