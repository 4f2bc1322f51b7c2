package dharmarag

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/siherrmann/dharmarag/core/engine"
	"github.com/siherrmann/dharmarag/core/glossary"
	"github.com/siherrmann/dharmarag/core/llm"
	"github.com/siherrmann/dharmarag/core/pipeline"
	"github.com/siherrmann/dharmarag/core/store"
	"github.com/siherrmann/dharmarag/database"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
	loadSql "github.com/siherrmann/dharmarag/sql"
)

// DharmaRAG provides a unified interface to the database handlers and the engine
type DharmaRAG struct {
	DB         *helper.Database
	Chunks     *database.ChunksDBHandler
	Documents  *database.DocumentsDBHandler
	Glossaries *database.GlossaryDBHandler
	Config     *helper.Config
	// Engine is nil until an embedder is set.
	Engine *engine.Engine
	// Registry holds the engine metrics.
	Registry *prometheus.Registry
	Metrics  *engine.Metrics
	provider llm.Provider
	// Logging
	log *slog.Logger
}

// NewDharmaRAG connects to the database and initializes all handlers.
// A nil cfg uses helper.DefaultConfig.
func NewDharmaRAG(dbConfig *helper.DatabaseConfiguration, cfg *helper.Config) (*DharmaRAG, error) {
	if cfg == nil {
		cfg = helper.DefaultConfig()
	}
	logger := helper.NewLogger(cfg.Level())

	// Initialize database
	db := helper.NewDatabase("dharmarag", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	glossaries, err := database.NewGlossaryDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create glossary handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, cfg.Embedding.Dimension, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	registry := prometheus.NewRegistry()

	return &DharmaRAG{
		DB:         db,
		Chunks:     chunks,
		Documents:  documents,
		Glossaries: glossaries,
		Config:     cfg,
		Registry:   registry,
		Metrics:    engine.NewMetrics(registry),
		log:        logger,
	}, nil
}

// Close closes the database connection
func (d *DharmaRAG) Close() error {
	if d.DB != nil && d.DB.Instance != nil {
		return d.DB.Instance.Close()
	}
	return nil
}

// UseDefaultEmbedder sets up the configured hugot sentence embedder.
func (d *DharmaRAG) UseDefaultEmbedder() error {
	embedder, err := pipeline.DefaultEmbedder(d.Config.Embedding.Model, d.Config.Embedding.OnnxFile)
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	return d.SetEmbedder(embedder)
}

// SetEmbedder creates the engine over the chunks table using embed. The
// stored glossaries and anchors are reloaded.
func (d *DharmaRAG) SetEmbedder(embed pipeline.EmbedFunc) error {
	vectorStore := store.NewPGStore(d.Chunks, embed, d.log)

	e, err := engine.New(
		context.Background(),
		vectorStore,
		d.log,
		engine.WithDocuments(d.Documents),
		engine.WithGlossaries(d.Glossaries),
		engine.WithProvider(d.provider),
		engine.WithTemperature(d.Config.LLM.Temperature),
		engine.WithMetrics(d.Metrics),
		engine.WithCacheTTL(time.Duration(d.Config.Retrieval.CacheTTLSecs)*time.Second),
	)
	if err != nil {
		return helper.NewError("create engine", err)
	}

	d.Engine = e
	return nil
}

// UseConfiguredProvider creates the language model provider from the configuration.
func (d *DharmaRAG) UseConfiguredProvider(ctx context.Context) error {
	provider, err := llm.NewProviderFromConfig(ctx, d.Config.LLM, d.log)
	if err != nil {
		return helper.NewError("create provider", err)
	}
	d.SetProvider(provider)
	return nil
}

// SetProvider sets the language model used by Ask.
func (d *DharmaRAG) SetProvider(provider llm.Provider) {
	d.provider = provider
	if d.Engine != nil {
		d.Engine.SetProvider(provider)
	}
}

// QueryConfig returns the query configuration from the application configuration.
func (d *DharmaRAG) QueryConfig() model.QueryConfig {
	config := model.DefaultQueryConfig()
	if d.Config.Retrieval.TopK > 0 {
		config.TopK = d.Config.Retrieval.TopK
	}
	if d.Config.LLM.MaxResponseTokens > 0 {
		config.MaxResponseTokens = d.Config.LLM.MaxResponseTokens
	}
	return config
}

func (d *DharmaRAG) engine() (*engine.Engine, error) {
	if d.Engine == nil {
		return nil, helper.NewError("engine", engine.ErrNoEmbedder)
	}
	return d.Engine, nil
}

// IngestFile ingests a PDF or plain text file.
func (d *DharmaRAG) IngestFile(ctx context.Context, path string) (*model.Document, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.IngestFile(ctx, path)
}

// Ingest ingests the given pages under filename.
func (d *DharmaRAG) Ingest(ctx context.Context, filename string, pages []string) (*model.Document, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.Ingest(ctx, filename, pages)
}

// Query performs anchor aware retrieval
func (d *DharmaRAG) Query(ctx context.Context, question string, config model.QueryConfig) ([]*model.SearchResult, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.Query(ctx, question, config)
}

// Ask answers question with citations from the library.
func (d *DharmaRAG) Ask(ctx context.Context, question string, config model.QueryConfig) (*model.Answer, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.Ask(ctx, question, config)
}

// AskStream answers question and passes the text to onToken as it is generated.
func (d *DharmaRAG) AskStream(ctx context.Context, question string, config model.QueryConfig, onToken func(string) error) (*model.Answer, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.AskStream(ctx, question, config, onToken)
}

func (d *DharmaRAG) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	e, err := d.engine()
	if err != nil {
		return false, err
	}
	return e.DeleteDocument(ctx, filename)
}

func (d *DharmaRAG) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.Documents(ctx)
}

func (d *DharmaRAG) Stats(ctx context.Context) (*model.CollectionStats, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.Stats(ctx)
}

func (d *DharmaRAG) SimilarChunks(ctx context.Context, chunkID string, k int) ([]*model.SearchResult, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.SimilarChunks(ctx, chunkID, k)
}

func (d *DharmaRAG) AnchorCrossReferences(term string) ([]model.CrossReference, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.AnchorCrossReferences(term), nil
}

// Glossary returns the unified glossary store.
func (d *DharmaRAG) Glossary() (*glossary.Store, error) {
	e, err := d.engine()
	if err != nil {
		return nil, err
	}
	return e.Glossary(), nil
}

// Health checks the language model provider.
func (d *DharmaRAG) Health(ctx context.Context) (llm.Health, error) {
	if d.provider == nil {
		return llm.Health{}, helper.NewError("health", engine.ErrNoProvider)
	}
	return d.provider.HealthCheck(ctx), nil
}

// Usage returns the language model usage statistics.
func (d *DharmaRAG) Usage() []llm.Usage {
	if d.Engine == nil {
		return nil
	}
	return d.Engine.Usage()
}

// ChangeIndexType rebuilds the chunk embedding index.
func (d *DharmaRAG) ChangeIndexType(ctx context.Context, indexType database.IndexType, params database.IndexParams) error {
	return d.Chunks.ChangeIndexType(ctx, indexType, params)
}
