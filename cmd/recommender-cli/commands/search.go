package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-cli/ui"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/search"
)

var searchQuery string

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search products via the remote shopping API",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Product search query (required)")
	searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	if cfg.Search.APIKey == "" {
		return fmt.Errorf("SERP_API_KEY is not set")
	}

	client := search.NewClient(cfg.Search, logger)

	spin := ui.NewSpinner(fmt.Sprintf("Searching for %q...", searchQuery))
	spin.Start()
	products, err := client.Search(ctx, searchQuery)
	spin.Stop()

	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(products) == 0 {
		ui.Warn("No matching products found.")
		return nil
	}

	ui.Section(fmt.Sprintf("%d result(s)", len(products)))
	for i, product := range products {
		ui.Info("%d. %s", i+1, product.Title)
		ui.Info("   price: %s", product.Price)
		if product.URL != "" {
			ui.Info("   url: %s", product.URL)
		}
		ui.Verbose("   %s", product.Description)
	}
	return nil
}
