package dharmarag

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/dharmarag/core/engine"
	"github.com/siherrmann/dharmarag/core/llm"
	"github.com/siherrmann/dharmarag/core/pipeline"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPages = []string{
	"Chapter 1\nMetta is practiced by every monk in the monastery with a calm heart and steady effort each day.",
	"Glossary\nMetta: loving kindness toward all beings.\nSati: mindfulness and awareness of the present moment.",
}

// echoProvider answers with the first passage header of the prompt.
type echoProvider struct{}

func (echoProvider) Name() string  { return llm.ProviderLocal }
func (echoProvider) Model() string { return "echo" }

func (echoProvider) EstimateCost(inputTokens int, outputTokens int) float64 { return 0 }

func (p echoProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	header, _, _ := strings.Cut(req.Prompt[strings.Index(req.Prompt, "Passage 1:"):], "\n")
	return &llm.Response{Text: header, Provider: p.Name(), Model: p.Model()}, nil
}

func (p echoProvider) Stream(ctx context.Context, req llm.Request, onToken func(string) error) (*llm.Response, error) {
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, onToken(resp.Text)
}

func (p echoProvider) HealthCheck(ctx context.Context) llm.Health {
	return llm.Health{Provider: p.Name(), Model: p.Model(), Available: true}
}

func initDharmaRAG(t *testing.T) *DharmaRAG {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	d, err := NewDharmaRAG(dbConfig, nil)
	require.NoError(t, err, "failed to create dharmarag")
	require.NotNil(t, d, "expected dharmarag to be non-nil")

	t.Cleanup(func() {
		d.Close()
	})

	return d
}

func TestNewDharmaRAG(t *testing.T) {
	t.Run("Valid call NewDharmaRAG", func(t *testing.T) {
		d := initDharmaRAG(t)
		assert.NotNil(t, d.DB, "Expected dharmarag to have a database instance")
		assert.NotNil(t, d.Chunks, "Expected dharmarag to have chunks handler")
		assert.NotNil(t, d.Documents, "Expected dharmarag to have documents handler")
		assert.NotNil(t, d.Glossaries, "Expected dharmarag to have glossary handler")
		assert.Nil(t, d.Engine, "Expected engine to be nil initially")
	})

	t.Run("DharmaRAG with nil database handles Close gracefully", func(t *testing.T) {
		d := &DharmaRAG{}
		err := d.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})

	t.Run("Operations need an embedder", func(t *testing.T) {
		d := initDharmaRAG(t)
		_, err := d.Query(context.Background(), "What is metta?", d.QueryConfig())
		assert.ErrorIs(t, err, engine.ErrNoEmbedder)
		_, err = d.Ingest(context.Background(), "metta.pdf", testPages)
		assert.ErrorIs(t, err, engine.ErrNoEmbedder)
		_, err = d.Health(context.Background())
		assert.ErrorIs(t, err, engine.ErrNoProvider)
	})
}

func TestDharmaRAGIngestAndAsk(t *testing.T) {
	ctx := context.Background()
	d := initDharmaRAG(t)
	require.NoError(t, d.SetEmbedder(pipeline.HashEmbedder(384)))
	d.SetProvider(echoProvider{})

	filename := uuid.NewString() + ".pdf"

	t.Run("Ingest", func(t *testing.T) {
		doc, err := d.Ingest(ctx, filename, testPages)
		require.NoError(t, err)
		assert.Equal(t, 2, doc.AddedChunks)
		assert.NotZero(t, doc.ID)

		stored, err := d.Documents.SelectDocument(ctx, filename)
		require.NoError(t, err)
		assert.Equal(t, doc.DocumentHash, stored.DocumentHash)
	})

	t.Run("Query", func(t *testing.T) {
		config := d.QueryConfig()
		config.SourceDocument = filename
		results, err := d.Query(ctx, "What is metta?", config)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 1, results[0].Rank)
	})

	t.Run("Ask", func(t *testing.T) {
		config := d.QueryConfig()
		config.SourceDocument = filename
		answer, err := d.Ask(ctx, "What is metta?", config)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(answer.Text, "Passage 1: "+filename))
		assert.Len(t, answer.Sources, 2)

		health, err := d.Health(ctx)
		require.NoError(t, err)
		assert.True(t, health.Available)
	})

	t.Run("Glossary and cross references", func(t *testing.T) {
		store, err := d.Glossary()
		require.NoError(t, err)
		definition, ok := store.Definition("Sati")
		require.True(t, ok)
		assert.Equal(t, "mindfulness and awareness of the present moment.", definition)

		refs, err := d.AnchorCrossReferences("Sati")
		require.NoError(t, err)
		found := false
		for _, ref := range refs {
			found = found || ref.Document == filename
		}
		assert.True(t, found)
	})

	t.Run("State survives a restart", func(t *testing.T) {
		restarted := initDharmaRAG(t)
		require.NoError(t, restarted.SetEmbedder(pipeline.HashEmbedder(384)))

		store, err := restarted.Glossary()
		require.NoError(t, err)
		_, ok := store.Lookup("Metta")
		assert.True(t, ok)

		documents, err := restarted.ListDocuments(ctx)
		require.NoError(t, err)
		filenames := []string{}
		for _, doc := range documents {
			filenames = append(filenames, doc.Filename)
		}
		assert.Contains(t, filenames, filename)
	})

	t.Run("Delete", func(t *testing.T) {
		deleted, err := d.DeleteDocument(ctx, filename)
		require.NoError(t, err)
		assert.True(t, deleted)

		stats, err := d.Stats(ctx)
		require.NoError(t, err)
		assert.NotContains(t, stats.Documents, filename)

		glossaryDocuments, err := d.Glossaries.SelectGlossaryDocuments(ctx)
		require.NoError(t, err)
		assert.NotContains(t, glossaryDocuments, filename)

		results, err := d.Query(ctx, "What is metta?", model.QueryConfig{TopK: 5, SourceDocument: filename})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
