package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-evaluator/internal/observability"
	"github.com/jonathan/resume-evaluator/internal/render"
	"github.com/jonathan/resume-evaluator/internal/store"
	"github.com/jonathan/resume-evaluator/internal/types"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show the latest search results",
	Long: `Read the most recently published result set and print it, write it as JSON, or render the
HTML report. Reading consumes the result set unless --keep is given. With --run the stored
results of a past run are read from the run history database instead.`,
	RunE: runResults,
}

var (
	resultsHTML   string
	resultsJSON   bool
	resultsFilter string
	resultsKeep   bool
	resultsRun    string
)

func init() {
	resultsCmd.Flags().StringVar(&resultsHTML, "html", "", "Write the HTML report to this file")
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "Print the result set as JSON")
	resultsCmd.Flags().StringVar(&resultsFilter, "filter", "all", "Results to show in the HTML report: all, match or no-match")
	resultsCmd.Flags().BoolVar(&resultsKeep, "keep", false, "Leave the result set in place for the next reader")
	resultsCmd.Flags().StringVar(&resultsRun, "run", "", "Run ID to read from the run history database")

	resultsCmd.MarkFlagsMutuallyExclusive("html", "json")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, _ []string) error {
	filter, err := render.ParseFilter(resultsFilter)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	set, err := readResults(cmd, a)
	if err != nil {
		return err
	}

	switch {
	case resultsHTML != "":
		return writeReport(resultsHTML, set, filter)
	case resultsJSON:
		return writeJSON(cmd.OutOrStdout(), set)
	default:
		observability.NewPrinter(cmd.OutOrStdout()).PrintResultSet(set)
		return nil
	}
}

func readResults(cmd *cobra.Command, a *app) (*types.SearchResultSet, error) {
	if resultsRun != "" {
		if a.history == nil {
			return nil, fmt.Errorf("--run requires DATABASE_URL to be set")
		}
		runID, err := uuid.Parse(resultsRun)
		if err != nil {
			return nil, fmt.Errorf("invalid run ID: %w", err)
		}
		set, err := a.history.GetRunResults(cmd.Context(), runID)
		if err != nil {
			return nil, err
		}
		if set == nil {
			return nil, fmt.Errorf("run %s has no stored results", runID)
		}
		return set, nil
	}

	read := a.handoff.Consume
	if resultsKeep {
		read = a.handoff.Peek
	}
	set, err := read()
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no results available, run evaluate first")
	}
	return set, err
}

func writeReport(path string, set *types.SearchResultSet, filter render.Filter) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := render.HTML(f, set, render.Options{Filter: filter, Location: time.Local}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}

func writeJSON(w io.Writer, set *types.SearchResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}
