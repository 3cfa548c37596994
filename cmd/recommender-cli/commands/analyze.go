package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-cli/ui"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
)

var analyzeFilePath string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a product catalog with the LLM",
	Long:  "Analyze a catalog file (CSV, XLSX or JSON) and print the recommended best product with reasoning and alternatives.",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFilePath, "file", "f", "", "Path to catalog file (required)")
	analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	gemini, err := newGemini(ctx, cfg)
	if err != nil {
		return err
	}
	defer gemini.Close()

	ui.Section("Catalog Analysis")
	ui.Info("Catalog: %s", analyzeFilePath)

	spin := ui.NewSpinner("Analyzing catalog...")
	spin.Start()
	result := catalog.NewSummarizer(gemini, logger).Summarize(ctx, analyzeFilePath)
	spin.Stop()

	if result.Status != catalog.StatusSuccess {
		return fmt.Errorf("analysis failed: %s", result.Message)
	}

	ui.Success("Best product: %s", result.Result.BestProduct)
	if len(result.Result.Reasoning) > 0 {
		ui.Section("Reasoning")
		for _, reason := range result.Result.Reasoning {
			ui.Info("  - %s", reason)
		}
	}
	if len(result.Result.Alternatives) > 0 {
		ui.Section("Alternatives")
		for _, alt := range result.Result.Alternatives {
			ui.Info("  - %s", alt)
		}
	}
	return nil
}
