// Package commands implements the recommender CLI subcommands.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-cli/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "recommender",
	Short: "Product recommender CLI for catalog analysis and retrieval",
	Long: `The recommender CLI analyzes uploaded product catalogs with an LLM,
extracts knowledge-graph triples, maintains a local similarity index over
catalog rows, and queries the remote product-search API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		ui.Init(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
