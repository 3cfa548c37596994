package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-cli/ui"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/retrieval"
)

var (
	similarQuery string
	similarTopK  int
)

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Find indexed catalog rows similar to a query",
	RunE:  runSimilar,
}

func init() {
	similarCmd.Flags().StringVarP(&similarQuery, "query", "q", "", "Query text (required)")
	similarCmd.Flags().IntVarP(&similarTopK, "top-k", "k", retrieval.DefaultTopK, "number of results")
	similarCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	retriever := retrieval.New(newStore(cfg, logger), logger)

	results, err := retriever.Retrieve(ctx, similarQuery, similarTopK)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	if len(results) == 0 {
		ui.Warn("No results. Index a catalog first with 'recommender index'.")
		return nil
	}

	ui.Section(fmt.Sprintf("Top %d matches", len(results)))
	for i, meta := range results {
		score, _ := meta[retrieval.ScoreKey].(float64)
		ui.Info("%d. score=%.4f", i+1, score)

		keys := make([]string, 0, len(meta))
		for key := range meta {
			if key != retrieval.ScoreKey {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			ui.Info("   %s: %v", key, meta[key])
		}
	}
	return nil
}
