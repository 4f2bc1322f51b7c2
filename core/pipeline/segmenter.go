package pipeline

import (
	"strings"
	"unicode"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

const (
	// DefaultMaxSectionWords is the longest section emitted as a single chunk.
	DefaultMaxSectionWords = 300
	// DefaultTargetChunkWords bounds the paragraphs collected into one sub chunk.
	DefaultTargetChunkWords = 250
	// DefaultShortLineWords is the longest first line that may open a section without a structural marker.
	DefaultShortLineWords = 10
)

// Segmenter splits the text of one page into structural chunks.
type Segmenter struct {
	maxSectionWords  int
	targetChunkWords int
	shortLineWords   int
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

func WithMaxSectionWords(words int) SegmenterOption {
	return func(s *Segmenter) {
		if words > 0 {
			s.maxSectionWords = words
		}
	}
}

func WithTargetChunkWords(words int) SegmenterOption {
	return func(s *Segmenter) {
		if words > 0 {
			s.targetChunkWords = words
		}
	}
}

func WithShortLineWords(words int) SegmenterOption {
	return func(s *Segmenter) {
		if words >= 0 {
			s.shortLineWords = words
		}
	}
}

func NewSegmenter(opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		maxSectionWords:  DefaultMaxSectionWords,
		targetChunkWords: DefaultTargetChunkWords,
		shortLineWords:   DefaultShortLineWords,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.targetChunkWords > s.maxSectionWords {
		s.targetChunkWords = s.maxSectionWords
	}
	return s
}

// Segment turns one page into chunks. Anchors are not attached here since
// they need the glossary of the whole document.
func (s *Segmenter) Segment(pageText string, pageNumber int, sourceDocument string) []*model.TextChunk {
	var chunks []*model.TextChunk

	for _, section := range s.Sections(pageText) {
		sectionType := ClassifySection(section)

		if helper.CountWords(section) <= s.maxSectionWords {
			chunks = append(chunks, s.newChunk(section, pageNumber, len(chunks), sourceDocument, sectionType, false))
			continue
		}

		for i, part := range s.splitLong(section) {
			chunks = append(chunks, s.newChunk(part, pageNumber, len(chunks), sourceDocument, sectionType, i > 0))
		}
	}

	return chunks
}

// Sections splits a page on section breaks and merges fragments that do not
// look like the start of a section into the previous one.
func (s *Segmenter) Sections(pageText string) []string {
	normalized := pageText
	for _, rule := range sectionBreakRules {
		normalized = rule.ReplaceAllString(normalized, sectionSentinel)
	}

	var sections []string
	for _, fragment := range strings.Split(normalized, sectionSentinel) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}

		if len(sections) == 0 || s.isBoundary(fragment) {
			sections = append(sections, fragment)
		} else {
			sections[len(sections)-1] += "\n" + fragment
		}
	}

	return sections
}

func (s *Segmenter) isBoundary(fragment string) bool {
	line := firstLine(fragment)
	for _, rule := range boundaryRules {
		if rule.MatchString(line) {
			return true
		}
	}

	return helper.CountWords(line) <= s.shortLineWords && strings.IndexFunc(line, unicode.IsUpper) >= 0
}

// splitLong collects paragraphs until adding the next one would pass the
// target word count.
func (s *Segmenter) splitLong(section string) []string {
	var parts []string
	current := ""
	currentWords := 0

	for _, paragraph := range strings.Split(section, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		words := helper.CountWords(paragraph)

		switch {
		case current == "":
			current, currentWords = paragraph, words
		case currentWords+words > s.targetChunkWords:
			parts = append(parts, current)
			current, currentWords = paragraph, words
		default:
			current += "\n\n" + paragraph
			currentWords += words
		}
	}
	if current != "" {
		parts = append(parts, current)
	}

	return parts
}

func (s *Segmenter) newChunk(content string, pageNumber int, position int, sourceDocument string, sectionType model.SectionType, continuation bool) *model.TextChunk {
	chunk := model.NewTextChunk(ChunkID(content, pageNumber, position), content, pageNumber, sourceDocument, sectionType)
	chunk.Metadata[model.MetaPositionInPage] = position
	chunk.Metadata[model.MetaBuddhistTermsCount] = CountBuddhistTerms(content)
	chunk.Metadata[model.MetaIsContinuation] = continuation
	return chunk
}

// ClassifySection returns the type of the first matching section type rule,
// paragraph if none matches.
func ClassifySection(section string) model.SectionType {
	line := firstLine(section)
	for _, rule := range sectionTypeRules {
		target := section
		if rule.firstLine {
			target = line
		}
		if rule.pattern.MatchString(target) {
			return rule.sectionType
		}
	}
	return model.SectionParagraph
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return line
}
