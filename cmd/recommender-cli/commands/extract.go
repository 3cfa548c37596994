package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-cli/ui"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/kg"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/llm"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
)

var (
	extractFilePath string
	extractUseLLM   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract knowledge-graph triples from a catalog",
	Long:  "Extract brand and category triples from each catalog row, optionally augmented with LLM extraction, and store them in the database.",
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractFilePath, "file", "f", "", "Path to catalog file (required)")
	extractCmd.Flags().BoolVar(&extractUseLLM, "llm", false, "augment heuristic triples with LLM extraction")
	extractCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var gen llm.Generator
	if extractUseLLM {
		gemini, err := newGemini(ctx, cfg)
		if err != nil {
			return err
		}
		defer gemini.Close()
		gen = gemini
	}

	ui.Section("Triple Extraction")
	ui.Info("Catalog: %s", extractFilePath)

	table, err := catalog.ParseFile(extractFilePath)
	if err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	ui.Verbose("Parsed %d rows, %d columns", len(table.Rows), len(table.Columns))

	extractor := kg.NewExtractor(gen, logger)

	spin := ui.NewSpinner("Extracting triples...")
	spin.Start()
	triples := extractor.Extract(ctx, table, filepath.Base(extractFilePath), extractUseLLM)
	spin.Stop()

	if err := extractor.Persist(ctx, storage.NewTripleRepository(db), triples); err != nil {
		return err
	}

	ui.Success("Stored %d triple(s) from %d row(s)", len(triples), len(table.Rows))
	return nil
}
