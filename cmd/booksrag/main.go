package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/booksrag/internal/config"
	"github.com/kailas-cloud/booksrag/internal/version"
)

var envName string

var rootCmd = &cobra.Command{
	Use:           "booksrag",
	Short:         "Books RAG API server",
	Long:          `HTTP front for book ingestion, retrieval and store consistency checks.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(),
		"configuration environment (config/<env>.yaml)")
	rootCmd.AddCommand(serveCmd, checkCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
