package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-evaluator/internal/observability"
	"github.com/jonathan/resume-evaluator/internal/pipeline"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Evaluate applicants using the requirements of their job posting",
	Long: `Read the job posting page, extract the query from the "What you'll bring" section of its
description and evaluate the resumes on the posting's applications page.`,
	RunE: runIndex,
}

var (
	indexPosting      string
	indexApplications string
	indexPrefix       string
	indexEndpoint     string
	indexThrottle     time.Duration
)

func init() {
	indexCmd.Flags().StringVar(&indexPosting, "posting", "", "Job posting page URL (required)")
	indexCmd.Flags().StringVar(&indexApplications, "applications", "", "Applications page URL (defaults to the posting's Active Applications link)")
	addStageFlags(indexCmd, &indexPrefix, &indexEndpoint, &indexThrottle)

	_ = indexCmd.MarkFlagRequired("posting")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	applyStageFlags(cmd, indexPrefix, indexEndpoint, indexThrottle)

	a, err := newApp(cmd.Context(), appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	p := pipeline.New(withPrinter(a.pipelineOptions(a.loader()), printer))

	res, err := p.Index(cmd.Context(), indexPosting, indexApplications)
	if err != nil {
		return err
	}
	printer.PrintNotice(fmt.Sprintf("Index process completed for query: %q", res.Query))
	reportResult(printer, res)
	return nil
}
