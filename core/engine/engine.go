package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/siherrmann/dharmarag/core/glossary"
	"github.com/siherrmann/dharmarag/core/llm"
	"github.com/siherrmann/dharmarag/core/pipeline"
	"github.com/siherrmann/dharmarag/core/retrieval"
	"github.com/siherrmann/dharmarag/core/source"
	"github.com/siherrmann/dharmarag/core/store"
	"github.com/siherrmann/dharmarag/database"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

var (
	// ErrNoEmbedder is returned when there is no vector store because no
	// embedding function was configured.
	ErrNoEmbedder = errors.New("no embedder set")
	ErrNoProvider = errors.New("no language model provider set")
)

const DefaultCacheTTL = 5 * time.Minute

// Engine ingests documents and answers questions over them.
type Engine struct {
	// mu serialises ingestion and deletion.
	mu sync.Mutex

	store      store.VectorStore
	glossary   *glossary.Store
	index      *pipeline.AnchorIndex
	pipeline   *pipeline.Pipeline
	ranker     *retrieval.Ranker
	documents  database.DocumentsDBHandlerFunctions
	glossaries database.GlossaryDBHandlerFunctions

	providerMu  sync.RWMutex
	provider    llm.Provider
	temperature float64
	usage       *llm.UsageTracker

	cache         *cache.Cache
	cacheTTL      time.Duration
	metrics       *Metrics
	segmenterOpts []pipeline.SegmenterOption
	log           *slog.Logger
}

type Option func(*Engine)

// WithDocuments stores the document registry in documents instead of memory.
func WithDocuments(documents database.DocumentsDBHandlerFunctions) Option {
	return func(e *Engine) {
		e.documents = documents
	}
}

// WithGlossaries persists document glossaries and reloads them on start.
func WithGlossaries(glossaries database.GlossaryDBHandlerFunctions) Option {
	return func(e *Engine) {
		e.glossaries = glossaries
	}
}

func WithProvider(provider llm.Provider) Option {
	return func(e *Engine) {
		e.provider = provider
	}
}

func WithTemperature(temperature float64) Option {
	return func(e *Engine) {
		e.temperature = temperature
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithCacheTTL sets how long ranked results are cached. Zero disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.cacheTTL = ttl
	}
}

func WithSegmenterOptions(opts ...pipeline.SegmenterOption) Option {
	return func(e *Engine) {
		e.segmenterOpts = append(e.segmenterOpts, opts...)
	}
}

// New creates an engine over vectorStore and restores the glossaries and
// anchor index of the documents already ingested.
func New(ctx context.Context, vectorStore store.VectorStore, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if vectorStore == nil {
		return nil, helper.NewError("create engine", ErrNoEmbedder)
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:       vectorStore,
		glossary:    glossary.NewStore(),
		index:       pipeline.NewAnchorIndex(),
		temperature: 0.1,
		usage:       llm.NewUsageTracker(),
		cacheTTL:    DefaultCacheTTL,
		log:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.documents == nil {
		e.documents = NewMemoryDocuments()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.cacheTTL > 0 {
		e.cache = cache.New(e.cacheTTL, 2*e.cacheTTL)
	}

	e.pipeline = pipeline.NewPipeline(e.glossary, e.index, logger, e.segmenterOpts...)
	e.ranker = retrieval.NewRanker(vectorStore, e.glossary, logger, retrieval.WithFailureCounter(e.metrics.AnchorFailures))

	err := e.restore(ctx)
	if err != nil {
		return nil, helper.NewError("restore state", err)
	}

	return e, nil
}

// restore reloads persisted glossaries and rebuilds the anchor index from
// the stored chunks.
func (e *Engine) restore(ctx context.Context) error {
	if e.glossaries != nil {
		documents, err := e.glossaries.SelectGlossaryDocuments(ctx)
		if err != nil {
			return helper.NewError("select glossary documents", err)
		}
		for _, documentID := range documents {
			documentGlossary, err := e.glossaries.SelectDocumentGlossary(ctx, documentID)
			if err != nil {
				return helper.NewError("select document glossary", err)
			}
			e.glossary.AddDocument(documentID, documentGlossary)
		}
	}

	documents, err := e.documents.SelectAllDocuments(ctx)
	if err != nil {
		return helper.NewError("select documents", err)
	}
	for _, doc := range documents {
		chunks, err := e.store.ListBySource(ctx, doc.Filename)
		if err != nil {
			return helper.NewError("list chunks", err)
		}
		var anchors []*model.Anchor
		for _, chunk := range chunks {
			anchors = append(anchors, chunk.Anchors...)
		}
		e.index.Set(doc.Filename, anchors)
	}

	if len(documents) > 0 {
		e.log.Info("Restored engine state", slog.Int("documents", len(documents)), slog.Int("terms", len(e.glossary.Unified())))
	}

	return nil
}

// SetProvider replaces the language model provider.
func (e *Engine) SetProvider(provider llm.Provider) {
	e.providerMu.Lock()
	defer e.providerMu.Unlock()
	e.provider = provider
}

// Provider returns the configured language model provider or nil.
func (e *Engine) Provider() llm.Provider {
	e.providerMu.RLock()
	defer e.providerMu.RUnlock()
	return e.provider
}

// IngestFile reads the pages of the file at path and ingests them under the
// file's base name.
func (e *Engine) IngestFile(ctx context.Context, path string) (*model.Document, error) {
	src, err := source.ForPath(path, e.log)
	if err != nil {
		return nil, helper.NewError("select source", err)
	}

	pages, err := src.Pages(ctx, path)
	if err != nil {
		return nil, helper.NewError("read pages", err)
	}

	return e.ingest(ctx, filepath.Base(path), path, pages)
}

// Ingest processes the pages of a document and stores its meaningful chunks.
// Chunks already stored are skipped, so ingesting the same text twice adds nothing.
func (e *Engine) Ingest(ctx context.Context, filename string, pages []string) (*model.Document, error) {
	return e.ingest(ctx, filename, "", pages)
}

func (e *Engine) ingest(ctx context.Context, filename string, path string, pages []string) (*model.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	restore := e.pipeline.Checkpoint(filename)
	result, err := e.pipeline.Process(ctx, filename, pages)
	if err != nil {
		restore()
		return nil, helper.NewError("process document", err)
	}

	upsert, added, err := e.upsertNew(ctx, result.Meaningful)
	// rollback undoes this call when a later step fails.
	rollback := func() {
		restore()
		if len(added) == 0 {
			return
		}
		_, deleteErr := e.store.DeleteByIDs(context.WithoutCancel(ctx), added)
		if deleteErr != nil {
			e.log.Error("Failed to remove chunks of failed ingestion", slog.String("filename", filename), slog.String("error", deleteErr.Error()))
		}
	}
	if err != nil {
		rollback()
		return nil, helper.NewError("store chunks", err)
	}

	if e.glossaries != nil {
		err = e.glossaries.ReplaceDocumentGlossary(ctx, filename, result.Glossary)
		if err != nil {
			rollback()
			return nil, helper.NewError("store glossary", err)
		}
	}

	doc := &model.Document{
		Filename:         filename,
		Path:             path,
		Pages:            result.Pages,
		TotalChunks:      len(result.Chunks),
		MeaningfulChunks: len(result.Meaningful),
		AddedChunks:      upsert.Added,
		DocumentHash:     result.DocumentHash,
		Language:         result.Language,
		Tradition:        result.Tradition,
		ProcessingTime:   time.Since(start).Seconds(),
		Metadata: model.Metadata{
			"glossary_terms": result.Glossary.Len(),
			"skipped_chunks": upsert.Skipped,
		},
	}
	err = e.documents.UpsertDocument(ctx, doc)
	if err != nil {
		rollback()
		return nil, helper.NewError("register document", err)
	}

	e.flushCache()
	e.metrics.DocumentsIngested.Inc()
	e.metrics.ChunksIngested.WithLabelValues("added").Add(float64(upsert.Added))
	e.metrics.ChunksIngested.WithLabelValues("skipped").Add(float64(upsert.Skipped))

	e.log.Info(
		"Ingested document",
		slog.String("filename", filename),
		slog.Int("added", upsert.Added),
		slog.Int("skipped", upsert.Skipped),
		slog.String("tradition", string(doc.Tradition)),
	)

	return doc, nil
}

// upsertNew writes the chunks whose ids are not stored yet. It returns the
// ids it tried to write, also when the store fails part way.
func (e *Engine) upsertNew(ctx context.Context, chunks []*model.TextChunk) (*model.UpsertResult, []string, error) {
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		ids = append(ids, chunk.ID)
	}

	existing, err := e.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, helper.NewError("get existing chunks", err)
	}
	stored := make(map[string]bool, len(existing))
	for _, chunk := range existing {
		stored[chunk.ID] = true
	}

	fresh := make([]*model.TextChunk, 0, len(chunks))
	freshIDs := make([]string, 0, len(chunks))
	skipped := 0
	for _, chunk := range chunks {
		if stored[chunk.ID] {
			skipped++
			continue
		}
		fresh = append(fresh, chunk)
		freshIDs = append(freshIDs, chunk.ID)
	}

	result, err := e.store.Upsert(ctx, fresh)
	if err != nil {
		return nil, freshIDs, err
	}
	result.Skipped += skipped
	result.Total = len(chunks)
	return result, freshIDs, nil
}

// DeleteDocument removes a document's chunks, glossary and registry record.
// It reports whether anything was stored for filename.
func (e *Engine) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	deletedChunks, err := store.DeleteBySource(ctx, e.store, filename)
	if err != nil {
		return false, helper.NewError("delete chunks", err)
	}

	forgotten := e.pipeline.Forget(filename)

	if e.glossaries != nil {
		_, err = e.glossaries.DeleteDocumentGlossary(ctx, filename)
		if err != nil {
			return false, helper.NewError("delete glossary", err)
		}
	}

	registered, err := e.documents.DeleteDocument(ctx, filename)
	if err != nil {
		return false, helper.NewError("delete document", err)
	}

	e.flushCache()

	deleted := deletedChunks > 0 || forgotten || registered
	if deleted {
		e.metrics.DocumentsDeleted.Inc()
		e.log.Info("Deleted document", slog.String("filename", filename), slog.Int("chunks", deletedChunks))
	}

	return deleted, nil
}

// Query ranks the stored chunks for question.
func (e *Engine) Query(ctx context.Context, question string, config model.QueryConfig) ([]*model.SearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" || config.TopK <= 0 {
		return []*model.SearchResult{}, nil
	}

	key := fmt.Sprintf("%d|%s|%s", config.TopK, config.SourceDocument, question)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			e.metrics.CacheHits.Inc()
			return copyResults(cached.([]*model.SearchResult)), nil
		}
	}

	start := time.Now()
	results, err := e.ranker.Rank(ctx, question, config.TopK, config.Filter())
	if err != nil {
		return nil, helper.NewError("rank", err)
	}
	e.metrics.Queries.Inc()
	e.metrics.QueryLatency.Observe(time.Since(start).Seconds())

	if e.cache != nil {
		e.cache.Set(key, copyResults(results), cache.DefaultExpiration)
	}

	return results, nil
}

// Ask retrieves passages for question and has the provider answer with citations.
// Without passages the fixed no results answer is returned and no model is called.
func (e *Engine) Ask(ctx context.Context, question string, config model.QueryConfig) (*model.Answer, error) {
	return e.answer(ctx, question, config, nil)
}

// AskStream is Ask with the generated text passed to onToken as it arrives.
func (e *Engine) AskStream(ctx context.Context, question string, config model.QueryConfig, onToken func(string) error) (*model.Answer, error) {
	return e.answer(ctx, question, config, onToken)
}

func (e *Engine) answer(ctx context.Context, question string, config model.QueryConfig, onToken func(string) error) (*model.Answer, error) {
	provider := e.Provider()
	if provider == nil {
		return nil, helper.NewError("answer", ErrNoProvider)
	}

	start := time.Now()
	results, err := e.Query(ctx, question, config)
	if err != nil {
		return nil, err
	}

	answer := &model.Answer{
		Question: question,
		Sources:  llm.Citations(results),
	}

	if len(results) == 0 {
		answer.Text = llm.NoResultsAnswer
		if onToken != nil {
			if err := onToken(answer.Text); err != nil {
				return nil, err
			}
		}
		answer.ProcessingTime = time.Since(start)
		return answer, nil
	}

	req := llm.Request{
		System:      llm.SystemPrompt,
		Prompt:      llm.BuildPrompt(question, results),
		MaxTokens:   config.MaxResponseTokens,
		Temperature: e.temperature,
	}

	var resp *llm.Response
	if onToken != nil {
		resp, err = provider.Stream(ctx, req, onToken)
	} else {
		resp, err = provider.Generate(ctx, req)
	}
	if err != nil {
		e.usage.RecordFailure(provider.Name())
		e.metrics.LLMRequests.WithLabelValues(provider.Name(), "failure").Inc()
		return nil, helper.NewError("generate answer", err)
	}

	e.usage.Record(llm.Answerer(provider, resp), resp)
	e.metrics.LLMRequests.WithLabelValues(resp.Provider, "success").Inc()

	answer.Text = resp.Text
	answer.Provider = resp.Provider
	answer.Model = resp.Model
	answer.ProcessingTime = time.Since(start)

	return answer, nil
}

// Health checks the language model provider.
func (e *Engine) Health(ctx context.Context) (llm.Health, error) {
	provider := e.Provider()
	if provider == nil {
		return llm.Health{}, helper.NewError("health", ErrNoProvider)
	}
	return provider.HealthCheck(ctx), nil
}

// Documents lists the registered documents in ingestion order.
func (e *Engine) Documents(ctx context.Context) ([]*model.Document, error) {
	documents, err := e.documents.SelectAllDocuments(ctx)
	if err != nil {
		return nil, helper.NewError("select documents", err)
	}
	return documents, nil
}

// Document returns the registry record of filename.
func (e *Engine) Document(ctx context.Context, filename string) (*model.Document, error) {
	return e.documents.SelectDocument(ctx, filename)
}

// Stats summarises the stored chunks and the traditions of the documents.
func (e *Engine) Stats(ctx context.Context) (*model.CollectionStats, error) {
	stats, err := e.store.Statistics(ctx)
	if err != nil {
		return nil, helper.NewError("chunk statistics", err)
	}

	traditions, err := e.documents.SelectTraditionCounts(ctx)
	if err != nil {
		return nil, helper.NewError("tradition counts", err)
	}
	stats.Traditions = traditions

	return stats, nil
}

// SimilarChunks returns the k chunks most similar to the chunk with chunkID.
func (e *Engine) SimilarChunks(ctx context.Context, chunkID string, k int) ([]*model.SearchResult, error) {
	if k <= 0 {
		return []*model.SearchResult{}, nil
	}

	chunk, err := store.Get(ctx, e.store, chunkID)
	if err != nil {
		return nil, err
	}

	results, err := e.store.Search(ctx, chunk.Content, k+1, nil)
	if err != nil {
		return nil, helper.NewError("search similar", err)
	}

	similar := make([]*model.SearchResult, 0, k)
	for _, result := range results {
		if result.Chunk.ID == chunkID {
			continue
		}
		if len(similar) == k {
			break
		}
		result.Rank = len(similar) + 1
		similar = append(similar, result)
	}

	return similar, nil
}

// AnchorCrossReferences returns the confident anchors of term in every document.
func (e *Engine) AnchorCrossReferences(term string) []model.CrossReference {
	return e.index.Lookup(term)
}

// Glossary returns the glossary store shared by extraction and ranking.
func (e *Engine) Glossary() *glossary.Store {
	return e.glossary
}

// Usage returns the language model usage statistics.
func (e *Engine) Usage() []llm.Usage {
	return e.usage.Stats()
}

func (e *Engine) flushCache() {
	if e.cache != nil {
		e.cache.Flush()
	}
}

// copyResults copies the result structs so that callers can not change
// cached ranks or scores. Chunks are shared.
func copyResults(results []*model.SearchResult) []*model.SearchResult {
	copied := make([]*model.SearchResult, 0, len(results))
	for _, result := range results {
		r := *result
		copied = append(copied, &r)
	}
	return copied
}
