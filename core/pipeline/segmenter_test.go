package pipeline

import (
	"strings"
	"testing"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestSections(t *testing.T) {
	segmenter := NewSegmenter()

	t.Run("Fragments without a boundary join the previous section", func(t *testing.T) {
		page := "Chapter 1 The Path\nThe path begins with right view.\n\n\n" +
			"this continues the previous section without a heading line at all for sure ok\n\n\n" +
			"[MN 10] Satipatthana\nThe four foundations."

		sections := segmenter.Sections(page)

		require.Len(t, sections, 2)
		assert.Equal(t, "Chapter 1 The Path\nThe path begins with right view.\nthis continues the previous section without a heading line at all for sure ok", sections[0])
		assert.Equal(t, "[MN 10] Satipatthana\nThe four foundations.", sections[1])
	})

	t.Run("Horizontal rules split sections", func(t *testing.T) {
		page := "Right Effort\nfour efforts\n-----\nRight Speech\nfour kinds\n=====\nRight Action\n***\nRight Livelihood"

		sections := segmenter.Sections(page)

		require.Len(t, sections, 4)
		assert.Equal(t, "Right Effort\nfour efforts", sections[0])
		assert.Equal(t, "Right Livelihood", sections[3])
	})

	t.Run("First fragment always starts a section", func(t *testing.T) {
		page := "only lowercase words that are many more than ten words long in this first line"

		sections := segmenter.Sections(page)

		require.Len(t, sections, 1)
	})

	t.Run("Blank and empty pages produce nothing", func(t *testing.T) {
		assert.Empty(t, segmenter.Sections(""))
		assert.Empty(t, segmenter.Sections("\n\n\n   \n\n\n"))
	})

	t.Run("Two newlines do not split", func(t *testing.T) {
		sections := segmenter.Sections("First paragraph here.\n\nsecond paragraph here.")
		require.Len(t, sections, 1)
	})

	t.Run("Short capitalized lines open sections", func(t *testing.T) {
		page := "Chapter 3\nThe factors.\n\n\nRight View\nthe first factor"

		assert.Len(t, segmenter.Sections(page), 2)
		assert.Len(t, NewSegmenter(WithShortLineWords(0)).Sections(page), 1)
	})
}

func TestClassifySection(t *testing.T) {
	tests := []struct {
		name     string
		section  string
		expected model.SectionType
	}{
		{"Bracketed reference", "[SN 56.11] Setting the Wheel in Motion", model.SectionSuttaReference},
		{"Chapter", "Chapter 3\nThe Second Truth", model.SectionChapter},
		{"Chapter ignores case", "CHAPTER 4", model.SectionChapter},
		{"Sutta opening", "Thus have I heard. At one time the Blessed One was staying near Savatthi.", model.SectionSuttaOpening},
		{"Buddha teaching anywhere", "Then at Savatthi.\nThe Buddha said: all conditioned things are impermanent.", model.SectionBuddhaTeaching},
		{"Dialogue", "Ananda asked the Blessed One about the training.", model.SectionDialogue},
		{"Heading", "**On Mindfulness**\nBreathing in, breathing out.", model.SectionHeading},
		{"Paragraph", "Breathing in, he knows he is breathing in.", model.SectionParagraph},
		{"Reference wins over teaching", "[MN 1]\nThe Blessed One said this.", model.SectionSuttaReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifySection(tt.section))
		})
	}
}

func TestSegment(t *testing.T) {
	t.Run("Short sections become single chunks", func(t *testing.T) {
		segmenter := NewSegmenter()
		page := "Thus have I heard. At one time the Blessed One dwelt at Savatthi.\n\n\n" +
			"Ananda asked about the Dhamma and karma."

		chunks := segmenter.Segment(page, 3, "canon.pdf")

		require.Len(t, chunks, 2)
		assert.Equal(t, model.SectionSuttaOpening, chunks[0].SectionType)
		assert.Equal(t, model.SectionDialogue, chunks[1].SectionType)
		for i, chunk := range chunks {
			assert.Equal(t, 3, chunk.PageNumber)
			assert.Equal(t, "canon.pdf", chunk.SourceDocument)
			assert.Equal(t, i, chunk.Metadata.Int(model.MetaPositionInPage))
			assert.False(t, chunk.Metadata.Bool(model.MetaIsContinuation))
			assert.True(t, strings.HasPrefix(chunk.ID, "p3_"))
		}
		assert.Equal(t, 3, chunks[1].Metadata.Int(model.MetaBuddhistTermsCount))
	})

	t.Run("Long sections are split on paragraphs", func(t *testing.T) {
		segmenter := NewSegmenter()
		section := "Chapter 2\n" + words(100, "calm") + "\n\n" + words(100, "calm") + "\n\n" +
			words(100, "calm") + "\n\n" + words(100, "calm")

		chunks := segmenter.Segment(section, 1, "long.pdf")

		require.Len(t, chunks, 2)
		assert.Equal(t, 202, chunks[0].WordCount)
		assert.Equal(t, 200, chunks[1].WordCount)
		for _, chunk := range chunks {
			assert.Equal(t, model.SectionChapter, chunk.SectionType)
			assert.LessOrEqual(t, chunk.WordCount, DefaultTargetChunkWords)
		}
		assert.False(t, chunks[0].Metadata.Bool(model.MetaIsContinuation))
		assert.True(t, chunks[1].Metadata.Bool(model.MetaIsContinuation))
		assert.Equal(t, 1, chunks[1].Metadata.Int(model.MetaPositionInPage))
	})

	t.Run("Section at the limit stays whole", func(t *testing.T) {
		segmenter := NewSegmenter()
		section := "Chapter 5\n" + words(149, "still") + "\n\n" + words(149, "still")

		chunks := segmenter.Segment(section, 1, "limit.pdf")

		require.Len(t, chunks, 1)
		assert.Equal(t, 300, chunks[0].WordCount)
	})

	t.Run("A single oversized paragraph is emitted whole", func(t *testing.T) {
		segmenter := NewSegmenter()
		chunks := segmenter.Segment("Chapter 6\n"+words(320, "breath"), 1, "one.pdf")

		require.Len(t, chunks, 1)
		assert.Equal(t, 322, chunks[0].WordCount)
	})

	t.Run("Options change the thresholds", func(t *testing.T) {
		segmenter := NewSegmenter(WithMaxSectionWords(20), WithTargetChunkWords(10))
		section := "Chapter 7\n" + words(8, "a") + "\n\n" + words(8, "b") + "\n\n" + words(8, "c")

		chunks := segmenter.Segment(section, 1, "small.pdf")

		require.Len(t, chunks, 3)
	})

	t.Run("Segmenting is deterministic", func(t *testing.T) {
		segmenter := NewSegmenter()
		page := "Chapter 1\nThe Buddha said suffering has a cause.\n\n\n[AN 3.65] Kalama Sutta\nDo not go by reports."

		first := segmenter.Segment(page, 2, "det.pdf")
		second := segmenter.Segment(page, 2, "det.pdf")

		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].ID, second[i].ID)
			assert.Equal(t, first[i].SectionType, second[i].SectionType)
			assert.Equal(t, first[i].Content, second[i].Content)
		}
	})

	t.Run("Word counts match content", func(t *testing.T) {
		segmenter := NewSegmenter()
		for _, chunk := range segmenter.Segment("Chapter 1\nOne two three.", 1, "x.pdf") {
			assert.Equal(t, helper.CountWords(chunk.Content), chunk.WordCount)
		}
	})
}
