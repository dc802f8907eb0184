// Package main provides the entry point for the land-scout CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "landscout",
	Short: "Incremental park4night crawl, enrich and persist pipeline",
	Long:  "land-scout incrementally harvests place records from park4night, enriches them with Gemini-derived price normalization and pros/cons summaries, and merges the result into a durable place table.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
