// Package main provides the recommender CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
