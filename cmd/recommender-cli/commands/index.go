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
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/vectorstore"
)

var indexFilePath string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index catalog rows into the similarity store",
	Long:  "Embed every row of a catalog file and append it to the on-disk similarity index for later retrieval.",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexFilePath, "file", "f", "", "Path to catalog file (required)")
	indexCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	ui.Section("Catalog Indexing")
	ui.Info("Catalog: %s", indexFilePath)

	table, err := catalog.ParseFile(indexFilePath)
	if err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	store := newStore(cfg, logger)
	sourceFile := filepath.Base(indexFilePath)

	bar := ui.NewProgressBar(int64(len(table.Rows)), "Indexing rows")
	indexed := 0
	for _, row := range table.Rows {
		text := kg.RowText(row)
		if text == "" {
			bar.Add(1)
			continue
		}

		meta := make(vectorstore.Meta, len(row)+1)
		for key, value := range row {
			meta[key] = value
		}
		meta["source_file"] = sourceFile

		if err := store.Add(ctx, text, meta); err != nil {
			bar.Finish()
			return fmt.Errorf("index row: %w", err)
		}
		indexed++
		bar.Add(1)
	}
	bar.Finish()

	ui.Success("Indexed %d row(s) into %s", indexed, cfg.Vector.IndexPath)
	return nil
}
