package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/dharmarag"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

var theravadaPages = []string{
	`Thus have I heard. On one occasion the Blessed One was living at Benares in the Deer Park.
There the Blessed One taught the monks the Four Noble Truths: dukkha, its arising, its cessation
and the path leading to its cessation, which is the Noble Eightfold Path.`,
	`Glossary

Dukkha: suffering or unsatisfactoriness, the first noble truth.
Nibbana: the cessation of craving and the end of suffering.
Anatta: not-self, the absence of a permanent self in any phenomenon.`,
}

var mahayanaPages = []string{
	`The bodhisattva Avalokiteshvara, practicing deeply the prajnaparamita, perceived that all five
skandhas are empty and was saved from all suffering. Form is emptiness, emptiness is form.`,
	`Glossary

Sunyata: emptiness, the absence of inherent existence in all dharmas.
Bodhisattva: one who vows to attain awakening for the benefit of all beings.
Nibbana: the extinguishing of the fires of greed, hatred and delusion.`,
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	cfg := helper.DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Retrieval.TopK = 3

	d, err := dharmarag.NewDharmaRAG(dbConfig, cfg)
	if err != nil {
		log.Fatalf("Failed to create dharmarag: %v", err)
	}
	defer d.Close()

	if err := d.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	ctx := context.Background()

	// Ingest two documents whose glossaries share a term
	for filename, pages := range map[string][]string{
		"four_noble_truths.txt": theravadaPages,
		"heart_sutra.txt":       mahayanaPages,
	} {
		doc, err := d.Ingest(ctx, filename, pages)
		if err != nil {
			log.Fatalf("Failed to ingest %s: %v", filename, err)
		}
		fmt.Printf("Ingested %s: %d chunks, tradition %s, %v glossary terms\n",
			doc.Filename, doc.AddedChunks, doc.Tradition, doc.Metadata["glossary_terms"])
	}

	// Unified glossary
	store, err := d.Glossary()
	if err != nil {
		log.Fatalf("Failed to get glossary: %v", err)
	}
	summary := store.Summary()
	fmt.Printf("\nGlossary: %d terms from %d documents\n", summary.TotalTerms, summary.DocumentsProcessed)
	if entry, ok := store.Lookup("Nibbana"); ok {
		fmt.Printf("Nibbana (%s, from %v): %s\n", entry.Source, entry.SourceDocuments, entry.Definition)
	}
	fmt.Printf("Core doctrine terms: %v\n", store.TermsByCategory(model.CategoryCoreDoctrine))

	// Anchor cross references
	fmt.Println("\nCross references for Dukkha:")
	refs, err := d.AnchorCrossReferences("Dukkha")
	if err != nil {
		log.Fatalf("Failed to get cross references: %v", err)
	}
	for _, ref := range refs {
		fmt.Printf("  %s chunk %s\n", ref.Document, ref.ChunkID)
	}

	// Anchor aware retrieval restricted to one document
	config := d.QueryConfig()
	config.SourceDocument = "heart_sutra.txt"
	results, err := d.Query(ctx, "What is emptiness?", config)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}
	fmt.Printf("\nFound %d results in %s:\n", len(results), config.SourceDocument)
	for _, result := range results {
		fmt.Printf("  [%d] page %d, %.4f: %s\n", result.Rank, result.Chunk.PageNumber, result.Similarity, result.Chunk.Content)
	}

	if len(results) > 0 {
		similar, err := d.SimilarChunks(ctx, results[0].Chunk.ID, 2)
		if err != nil {
			log.Fatalf("Failed to find similar chunks: %v", err)
		}
		fmt.Printf("\nChunks similar to %s:\n", results[0].Chunk.ID)
		for _, result := range similar {
			fmt.Printf("  %s page %d, %.4f\n", result.Chunk.SourceDocument, result.Chunk.PageNumber, result.Similarity)
		}
	}

	// Collection statistics
	stats, err := d.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to get stats: %v", err)
	}
	fmt.Printf("\nTotal chunks: %d, traditions: %v, chunk types: %v\n", stats.TotalChunks, stats.Traditions, stats.ChunkTypes)

	// Removing a document removes its glossary contribution
	if _, err := d.DeleteDocument(ctx, "four_noble_truths.txt"); err != nil {
		log.Fatalf("Failed to delete document: %v", err)
	}
	if entry, ok := store.Lookup("Nibbana"); ok {
		fmt.Printf("\nAfter delete, Nibbana comes from %v\n", entry.SourceDocuments)
	}

	// Metrics
	families, err := d.Registry.Gather()
	if err != nil {
		log.Fatalf("Failed to gather metrics: %v", err)
	}
	fmt.Println("\nMetrics:")
	for _, family := range families {
		fmt.Printf("  %s\n", family.GetName())
	}

	fmt.Println("\nAdvanced example completed successfully!")
}
