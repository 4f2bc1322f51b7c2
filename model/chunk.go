package model

import (
	"encoding/json"
	"strings"

	"github.com/siherrmann/dharmarag/helper"
)

type SectionType string

const (
	SectionChapter        SectionType = "chapter"
	SectionSuttaReference SectionType = "sutta_reference"
	SectionSuttaOpening   SectionType = "sutta_opening"
	SectionBuddhaTeaching SectionType = "buddha_teaching"
	SectionDialogue       SectionType = "dialogue"
	SectionHeading        SectionType = "heading"
	SectionParagraph      SectionType = "paragraph"
)

// Keys of the metadata persisted with every chunk.
const (
	MetaSourceDocument = "source_document"
	MetaPageNumber     = "page_number"
	MetaChunkType      = "chunk_type"
	MetaWordCount      = "word_count"
	MetaAnchors        = "anchors"
	MetaCrossLinks     = "cross_links"
	MetaAnchorCount    = "anchor_count"
	MetaAnchorTerms    = "anchor_terms"
)

// Keys of the derived signals attached by the segmenter.
const (
	MetaPositionInPage     = "position_in_page"
	MetaBuddhistTermsCount = "buddhist_terms_count"
	MetaIsContinuation     = "is_continuation"
	MetaAnchorCategories   = "anchor_categories"
)

// TextChunk is the unit of retrievable content.
type TextChunk struct {
	ID             string              `json:"chunk_id"`
	Content        string              `json:"content"`
	PageNumber     int                 `json:"page_number"`
	SourceDocument string              `json:"source_document"`
	SectionType    SectionType         `json:"section_type"`
	WordCount      int                 `json:"word_count"`
	Anchors        []*Anchor           `json:"anchors,omitempty"`
	CrossLinks     map[string][]string `json:"cross_links,omitempty"`
	Metadata       Metadata            `json:"metadata,omitempty"`
}

// NewTextChunk creates a chunk with trimmed content and a cached word count.
func NewTextChunk(id string, content string, pageNumber int, sourceDocument string, sectionType SectionType) *TextChunk {
	content = strings.TrimSpace(content)
	return &TextChunk{
		ID:             id,
		Content:        content,
		PageNumber:     pageNumber,
		SourceDocument: sourceDocument,
		SectionType:    sectionType,
		WordCount:      helper.CountWords(content),
		Metadata:       Metadata{},
	}
}

// AnchorTerms returns the anchored terms in anchor order.
func (c *TextChunk) AnchorTerms() []string {
	terms := make([]string, 0, len(c.Anchors))
	for _, a := range c.Anchors {
		terms = append(terms, a.Term)
	}
	return terms
}

// HasAnchor reports whether the chunk carries an anchor for term, ignoring case.
func (c *TextChunk) HasAnchor(term string) bool {
	for _, a := range c.Anchors {
		if strings.EqualFold(a.Term, term) {
			return true
		}
	}
	return false
}

// StoreMetadata flattens the chunk into the metadata persisted next to its content.
// Anchors and cross links are serialized as JSON strings.
func (c *TextChunk) StoreMetadata() (Metadata, error) {
	m := Metadata{}
	for k, v := range c.Metadata {
		m[k] = v
	}

	anchors := c.Anchors
	if anchors == nil {
		anchors = []*Anchor{}
	}
	anchorsJSON, err := json.Marshal(anchors)
	if err != nil {
		return nil, helper.NewError("marshal anchors", err)
	}

	crossLinks := c.CrossLinks
	if crossLinks == nil {
		crossLinks = map[string][]string{}
	}
	crossLinksJSON, err := json.Marshal(crossLinks)
	if err != nil {
		return nil, helper.NewError("marshal cross links", err)
	}

	m[MetaSourceDocument] = c.SourceDocument
	m[MetaPageNumber] = c.PageNumber
	m[MetaChunkType] = string(c.SectionType)
	m[MetaWordCount] = c.WordCount
	m[MetaAnchors] = string(anchorsJSON)
	m[MetaCrossLinks] = string(crossLinksJSON)
	m[MetaAnchorCount] = len(c.Anchors)
	m[MetaAnchorTerms] = strings.Join(c.AnchorTerms(), ", ")

	return m, nil
}

// TextChunkFromStore restores a chunk from stored content and metadata.
func TextChunkFromStore(id string, content string, m Metadata) (*TextChunk, error) {
	chunk := &TextChunk{
		ID:             id,
		Content:        content,
		SourceDocument: m.String(MetaSourceDocument),
		PageNumber:     m.Int(MetaPageNumber),
		SectionType:    SectionType(m.String(MetaChunkType)),
		WordCount:      m.Int(MetaWordCount),
		Metadata:       Metadata{},
	}

	if raw := m.String(MetaAnchors); raw != "" {
		if err := json.Unmarshal([]byte(raw), &chunk.Anchors); err != nil {
			return nil, helper.NewError("unmarshal anchors", err)
		}
	}
	if raw := m.String(MetaCrossLinks); raw != "" {
		if err := json.Unmarshal([]byte(raw), &chunk.CrossLinks); err != nil {
			return nil, helper.NewError("unmarshal cross links", err)
		}
	}

	for k, v := range m {
		switch k {
		case MetaSourceDocument, MetaPageNumber, MetaChunkType, MetaWordCount,
			MetaAnchors, MetaCrossLinks, MetaAnchorCount, MetaAnchorTerms:
		default:
			chunk.Metadata[k] = v
		}
	}

	return chunk, nil
}
