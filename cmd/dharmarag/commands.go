package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/siherrmann/dharmarag/database"
	"github.com/siherrmann/dharmarag/model"
	"github.com/spf13/cobra"
)

func (a *app) createIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file...>",
		Short: "Ingest PDF or text files into the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			failed := 0
			for _, path := range args {
				doc, err := d.IngestFile(cmd.Context(), path)
				if err != nil {
					cmd.PrintErrf("Failed to ingest %s: %v\n", path, err)
					failed++
					continue
				}
				cmd.Printf("Ingested %s: %d pages, %d chunks (%d new), %s, %.2fs\n",
					doc.Filename, doc.Pages, doc.MeaningfulChunks, doc.AddedChunks, doc.Tradition, doc.ProcessingTime)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}

func (a *app) createQueryCommand() *cobra.Command {
	var topK int
	var source string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Retrieve the passages most relevant to a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			config := d.QueryConfig()
			if topK > 0 {
				config.TopK = topK
			}
			config.SourceDocument = source

			results, err := d.Query(cmd.Context(), args[0], config)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if asJSON {
				return printJSON(cmd, results)
			}
			printResults(cmd, results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages (default from config)")
	cmd.Flags().StringVarP(&source, "source", "s", "", "only search this document")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")

	return cmd
}

func (a *app) createAskCommand() *cobra.Command {
	var topK int
	var source string
	var stream bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question with citations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer d.Close()

			config := d.QueryConfig()
			if topK > 0 {
				config.TopK = topK
			}
			config.SourceDocument = source

			var answer *model.Answer
			if stream {
				answer, err = d.AskStream(cmd.Context(), args[0], config, func(token string) error {
					cmd.Print(token)
					return nil
				})
				cmd.Println()
			} else {
				answer, err = d.Ask(cmd.Context(), args[0], config)
			}
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}

			if !stream {
				cmd.Println(answer.Text)
			}
			if len(answer.Sources) > 0 {
				cmd.Println()
				cmd.Println("Sources:")
				for _, citation := range answer.Sources {
					cmd.Printf("  %s (%.2f)\n", citation.Citation, citation.Similarity)
				}
			}
			cmd.Printf("\n%s/%s in %s\n", answer.Provider, answer.Model, answer.ProcessingTime.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages (default from config)")
	cmd.Flags().StringVarP(&source, "source", "s", "", "only use this document")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the answer while it is generated")

	return cmd
}

func (a *app) createGlossaryCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "glossary [term]",
		Short: "Look up glossary terms learned from the library",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			store, err := d.Glossary()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				entry, ok := store.Lookup(args[0])
				if !ok {
					cmd.Printf("No glossary entry for %q.\n", args[0])
					return nil
				}
				cmd.Printf("%s: %s\n", entry.Term, entry.Definition)
				cmd.Printf("  confidence %.2f, %s, from %s\n", entry.Confidence, entry.Source, strings.Join(entry.SourceDocuments, ", "))
				if related := store.RelatedTerms(entry.Term); len(related) > 0 {
					cmd.Printf("  related: %s\n", strings.Join(related, ", "))
				}
				return nil
			}

			if category != "" {
				terms := store.TermsByCategory(model.Category(category))
				cmd.Printf("%d terms in %s:\n", len(terms), category)
				for _, term := range terms {
					cmd.Printf("  %s\n", term)
				}
				return nil
			}

			summary := store.Summary()
			cmd.Printf("%d terms from %d documents (%d with high confidence)\n",
				summary.TotalTerms, summary.DocumentsProcessed, summary.HighConfidenceTerms)
			for _, entry := range store.Unified() {
				cmd.Printf("  %s: %s\n", entry.Term, entry.Definition)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "list terms of one category")

	return cmd
}

func (a *app) createDocumentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			documents, err := d.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			if len(documents) == 0 {
				cmd.Println("No documents ingested.")
				return nil
			}

			for _, doc := range documents {
				cmd.Printf("%s\n", doc.Filename)
				cmd.Printf("  %d pages, %d chunks, %s, %s, ingested %s\n",
					doc.Pages, doc.MeaningfulChunks, doc.Language, doc.Tradition, doc.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func (a *app) createDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>",
		Short: "Remove a document and everything derived from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			deleted, err := d.DeleteDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				cmd.Printf("Document %s not found.\n", args[0])
				return nil
			}
			cmd.Printf("Deleted %s.\n", args[0])
			return nil
		},
	}
}

func (a *app) createSimilarCommand() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "similar <chunk-id>",
		Short: "Find passages similar to a stored chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			results, err := d.SimilarChunks(cmd.Context(), args[0], k)
			if err != nil {
				return err
			}
			printResults(cmd, results)
			return nil
		},
	}

	cmd.Flags().IntVar(&k, "k", 3, "number of similar passages")

	return cmd
}

func (a *app) createIndexCommand() *cobra.Command {
	var params database.IndexParams

	cmd := &cobra.Command{
		Use:       "index <hnsw|ivfflat>",
		Short:     "Rebuild the embedding index",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(database.IndexHNSW), string(database.IndexIVFFlat)},
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			err = d.ChangeIndexType(cmd.Context(), database.IndexType(args[0]), params)
			if err != nil {
				return err
			}
			cmd.Printf("Rebuilt the embedding index as %s.\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&params.M, "m", 0, "hnsw connections per layer")
	cmd.Flags().IntVar(&params.EfConstruction, "ef-construction", 0, "hnsw candidate list size")
	cmd.Flags().IntVar(&params.Lists, "lists", 0, "ivfflat list count")

	return cmd
}

func (a *app) createStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			stats, err := d.Stats(cmd.Context())
			if err != nil {
				return err
			}

			cmd.Printf("Total chunks: %d\n", stats.TotalChunks)
			cmd.Println("Documents:")
			for _, name := range sortedKeys(stats.Documents) {
				cmd.Printf("  %s: %d chunks, %d pages\n", name, stats.Documents[name].Chunks, stats.Documents[name].Pages)
			}
			cmd.Println("Chunk types:")
			for _, name := range sortedKeys(stats.ChunkTypes) {
				cmd.Printf("  %s: %d\n", name, stats.ChunkTypes[name])
			}
			cmd.Println("Traditions:")
			for _, name := range sortedKeys(stats.Traditions) {
				cmd.Printf("  %s: %d\n", name, stats.Traditions[name])
			}
			return nil
		},
	}
}

func (a *app) createHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the configured language model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer d.Close()

			health, err := d.Health(cmd.Context())
			if err != nil {
				return err
			}
			if !health.Available {
				return fmt.Errorf("%s/%s unavailable: %s", health.Provider, health.Model, health.Error)
			}
			cmd.Printf("%s/%s available\n", health.Provider, health.Model)
			return nil
		},
	}
}

func printResults(cmd *cobra.Command, results []*model.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	for _, result := range results {
		chunk := result.Chunk
		cmd.Printf("[%d] %s, page %d (%.2f, %s)\n", result.Rank, chunk.SourceDocument, chunk.PageNumber, result.Similarity, chunk.SectionType)
		cmd.Printf("    %s\n\n", snippet(chunk.Content, 200))
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func snippet(content string, limit int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
