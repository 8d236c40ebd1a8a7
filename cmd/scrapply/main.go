// Package main provides the entry point for the Scrapply HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scrapply",
	Short: "Scrapply HTTP API Server",
	Long:  "Scrapply turns a URL and a natural-language description into a working scraper exposed as a live API endpoint, generated and tested automatically.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
