package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-evaluator/internal/ingestion"
	"github.com/jonathan/resume-evaluator/internal/linkedin"
	"github.com/jonathan/resume-evaluator/internal/observability"
)

var linkedinCmd = &cobra.Command{
	Use:   "linkedin",
	Short: "Search LinkedIn profiles for a query",
	Long: `Send a query to the LinkedIn search service and print the matching profiles. The query comes
from --query or is extracted from a job posting page with --posting.`,
	RunE: runLinkedIn,
}

var (
	linkedinQuery    string
	linkedinPosting  string
	linkedinEndpoint string
)

func init() {
	linkedinCmd.Flags().StringVarP(&linkedinQuery, "query", "q", "", "Search query")
	linkedinCmd.Flags().StringVar(&linkedinPosting, "posting", "", "Job posting page to extract the query from")
	linkedinCmd.Flags().StringVar(&linkedinEndpoint, "endpoint", "", "LinkedIn search URL (overrides LINKEDIN_URL)")

	linkedinCmd.MarkFlagsMutuallyExclusive("query", "posting")
	rootCmd.AddCommand(linkedinCmd)
}

func runLinkedIn(cmd *cobra.Command, _ []string) error {
	if linkedinQuery == "" && linkedinPosting == "" {
		return fmt.Errorf("--query or --posting is required")
	}
	if cmd.Flags().Changed("endpoint") {
		appConfig.LinkedInURL = linkedinEndpoint
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	query := linkedinQuery
	if linkedinPosting != "" {
		posting, err := ingestion.NewReader(a.loader(), a.logger).Read(ctx, linkedinPosting)
		if err != nil {
			return fmt.Errorf("failed to read job posting: %w", err)
		}
		query = posting.Query
	}

	client := linkedin.NewClient(linkedin.Config{Endpoint: a.cfg.LinkedInURL, Logger: a.logger})
	set, err := client.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("LinkedIn search failed: %w", err)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintResultSet(set)

	channel, err := a.handoff.Publish(set)
	if err != nil {
		return fmt.Errorf("failed to publish results: %w", err)
	}
	printer.PrintNotice(fmt.Sprintf("Results published (%s channel)", channel))
	return nil
}
