package main

import (
	"context"
	"log"

	"github.com/siherrmann/dharmarag"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	verbose    bool
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "dharmarag",
		Short: "Ask questions about a library of Buddhist texts",
		Long: `dharmarag ingests PDF and text files of Buddhist literature, learns their
glossaries and answers questions with citations to the source pages.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "dharmarag.yaml", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		a.createIngestCommand(),
		a.createQueryCommand(),
		a.createAskCommand(),
		a.createGlossaryCommand(),
		a.createDocumentsCommand(),
		a.createDeleteCommand(),
		a.createSimilarCommand(),
		a.createIndexCommand(),
		a.createStatsCommand(),
		a.createHealthCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// open connects to the database and sets up the embedder. The language
// model provider is only created when withProvider is set.
func (a *app) open(ctx context.Context, withProvider bool) (*dharmarag.DharmaRAG, error) {
	cfg, err := helper.LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, err
	}

	d, err := dharmarag.NewDharmaRAG(dbConfig, cfg)
	if err != nil {
		return nil, err
	}

	if err := d.UseDefaultEmbedder(); err != nil {
		d.Close()
		return nil, err
	}

	if withProvider {
		if err := d.UseConfiguredProvider(ctx); err != nil {
			d.Close()
			return nil, err
		}
	}

	return d, nil
}
