// Package main provides the resume_eval CLI: page scans, job posting indexing,
// LinkedIn search, result reports and the HTTP trigger service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-evaluator/internal/config"
	"github.com/jonathan/resume-evaluator/internal/observability"
)

var (
	configPath string
	verbose    bool

	// Set by the root PersistentPreRunE.
	appConfig *config.Config
	appLogger *logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:   "resume_eval",
	Short: "Resume Evaluator CLI",
	Long: "Resume Evaluator scans a recruiting applications page for resume links, fetches the PDFs " +
		"and submits them with a search query to the evaluation service.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print per-document progress and debug logs")
}

func loadConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := observability.NewLogger(os.Stderr, level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	appConfig = cfg
	appLogger = logger
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
