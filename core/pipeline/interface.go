package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/siherrmann/dharmarag/core/glossary"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// pageSeparator joins pages into the full text the glossary is built from.
const pageSeparator = "\n\n"

// Pipeline turns the pages of one document into anchored chunks.
type Pipeline struct {
	Segmenter *Segmenter
	Builder   *glossary.Builder
	Glossary  *glossary.Store
	Anchors   *AnchorExtractor
	Index     *AnchorIndex
	log       *slog.Logger
}

// NewPipeline creates a pipeline writing glossaries into store and anchors into index.
func NewPipeline(store *glossary.Store, index *AnchorIndex, logger *slog.Logger, opts ...SegmenterOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Segmenter: NewSegmenter(opts...),
		Builder:   glossary.NewBuilder(logger),
		Glossary:  store,
		Anchors:   NewAnchorExtractor(store),
		Index:     index,
		log:       logger,
	}
}

// ProcessingResult contains the chunks of a document and the document level signals.
type ProcessingResult struct {
	SourceDocument string
	Pages          int
	Glossary       *model.Glossary
	// Chunks holds every chunk produced, Meaningful the ones passing the filter.
	Chunks       []*model.TextChunk
	Meaningful   []*model.TextChunk
	DocumentHash string
	Language     model.Language
	Tradition    model.Tradition
}

// Process segments every page, builds the document glossary over the full
// text, anchors the chunks and filters them. It writes to the glossary store
// and the anchor index, so calls must not run concurrently.
func (p *Pipeline) Process(ctx context.Context, sourceDocument string, pages []string) (*ProcessingResult, error) {
	var chunks []*model.TextChunk
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, helper.NewError("segment pages", err)
		}
		chunks = append(chunks, p.Segmenter.Segment(page, i+1, sourceDocument)...)
	}

	fullText := strings.Join(pages, pageSeparator)
	documentGlossary := p.Builder.Build(fullText, sourceDocument)
	p.Glossary.AddDocument(sourceDocument, documentGlossary)

	var documentAnchors []*model.Anchor
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, helper.NewError("extract anchors", err)
		}
		chunk.Anchors = p.Anchors.Extract(chunk.Content, chunk.ID)
		chunk.Metadata[model.MetaAnchorCount] = len(chunk.Anchors)
		chunk.Metadata[model.MetaAnchorCategories] = strings.Join(AnchorCategories(chunk.Anchors), ",")
		documentAnchors = append(documentAnchors, chunk.Anchors...)
	}

	p.Index.Set(sourceDocument, documentAnchors)
	snapshot := p.Index.Snapshot()
	for _, chunk := range chunks {
		chunk.CrossLinks = CrossLinks(chunk.Anchors, snapshot)
	}

	result := &ProcessingResult{
		SourceDocument: sourceDocument,
		Pages:          len(pages),
		Glossary:       documentGlossary,
		Chunks:         chunks,
		Meaningful:     FilterMeaningful(chunks),
		DocumentHash:   DocumentHash(fullText),
		Language:       DetectLanguage(fullText),
		Tradition:      EstimateTradition(fullText),
	}

	p.log.Info(
		"Processed document",
		slog.String("source", sourceDocument),
		slog.Int("pages", result.Pages),
		slog.Int("chunks", len(result.Chunks)),
		slog.Int("meaningful", len(result.Meaningful)),
		slog.Int("anchors", len(documentAnchors)),
	)

	return result, nil
}

// Checkpoint records the glossary and anchors held for a document. The
// returned function puts them back, undoing a later Process of the document.
func (p *Pipeline) Checkpoint(sourceDocument string) func() {
	previousGlossary, hadGlossary := p.Glossary.DocumentGlossary(sourceDocument)
	previousAnchors, hadAnchors := p.Index.Get(sourceDocument)

	return func() {
		if hadGlossary {
			p.Glossary.AddDocument(sourceDocument, previousGlossary)
		} else {
			p.Glossary.RemoveDocument(sourceDocument)
		}
		if hadAnchors {
			p.Index.Set(sourceDocument, previousAnchors)
		} else {
			p.Index.Remove(sourceDocument)
		}
	}
}

// Forget removes everything the pipeline holds for a document.
func (p *Pipeline) Forget(sourceDocument string) bool {
	p.Index.Remove(sourceDocument)
	return p.Glossary.RemoveDocument(sourceDocument)
}
