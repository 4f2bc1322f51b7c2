package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/dharmarag"
	"github.com/siherrmann/dharmarag/helper"
)

var samplePages = []string{
	`The Discourse on Loving Kindness

Thus have I heard. On one occasion the Blessed One was dwelling at Savatthi in Jeta's Grove.
There the Blessed One addressed the monks: "Monks, one who practices metta sleeps in comfort,
wakes in comfort and dreams no evil dreams."`,
	`Chapter 2

Mindfulness of breathing, when developed and cultivated, brings the four foundations of
mindfulness to fulfilment. The monk sits down, folds his legs crosswise and sets mindfulness
in front of him. Mindfully he breathes in, mindfully he breathes out.`,
	`Glossary

Metta: loving kindness, the wish for the welfare of all beings.
Sati: mindfulness, the awareness of the present moment.
Dukkha: suffering, the unsatisfactoriness of conditioned existence.`,
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	d, err := dharmarag.NewDharmaRAG(dbConfig, nil)
	if err != nil {
		log.Fatalf("Failed to create dharmarag: %v", err)
	}
	defer d.Close()

	// Set up the sentence embedder (downloads the model on first use)
	if err := d.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Ingesting document...")
	doc, err := d.Ingest(ctx, "loving_kindness.txt", samplePages)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Document %s ingested with %d chunks (%s, %s)\n", doc.Filename, doc.AddedChunks, doc.Language, doc.Tradition)

	question := "What are the benefits of metta?"
	fmt.Printf("\nQuerying: %s\n", question)

	results, err := d.Query(ctx, question, d.QueryConfig())
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}

	fmt.Printf("\nFound %d results:\n", len(results))
	for _, result := range results {
		fmt.Printf("\n--- Result %d ---\n", result.Rank)
		fmt.Printf("Score: %.4f\n", result.Similarity)
		fmt.Printf("Page: %d (%s)\n", result.Chunk.PageNumber, result.Chunk.SectionType)
		fmt.Printf("Content: %s\n", result.Chunk.Content)
	}

	// Answering needs a running Ollama server or an API key in the environment
	if err := d.UseConfiguredProvider(ctx); err != nil {
		fmt.Printf("\nNo language model configured: %v\n", err)
		return
	}
	health, err := d.Health(ctx)
	if err != nil || !health.Available {
		fmt.Printf("\nLanguage model unavailable: %s\n", health.Error)
		return
	}

	answer, err := d.Ask(ctx, question, d.QueryConfig())
	if err != nil {
		log.Fatalf("Failed to ask: %v", err)
	}
	fmt.Printf("\nAnswer (%s/%s):\n%s\n", answer.Provider, answer.Model, answer.Text)
	for _, source := range answer.Sources {
		fmt.Println(source.Citation)
	}

	fmt.Println("\nBasic example completed successfully!")
}
