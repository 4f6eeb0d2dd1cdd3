package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-evaluator/internal/observability"
	"github.com/jonathan/resume-evaluator/internal/page"
	"github.com/jonathan/resume-evaluator/internal/pipeline"
	"github.com/jonathan/resume-evaluator/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Scan an applications page and evaluate the linked resumes",
	Long: `Load a recruiting applications page, collect every resume link under the configured prefix,
fetch the PDFs sequentially and submit them with the query to the evaluation service.
The result set is printed and published for the results command and GET /results/latest.`,
	RunE: runEvaluate,
}

var (
	evaluatePage     string
	evaluateFile     string
	evaluateQuery    string
	evaluatePrefix   string
	evaluateEndpoint string
	evaluateThrottle time.Duration
)

func init() {
	evaluateCmd.Flags().StringVarP(&evaluatePage, "page", "p", "", "Applications page URL (or base URL with --file)")
	evaluateCmd.Flags().StringVarP(&evaluateFile, "file", "f", "", "Read the applications page from a saved HTML file")
	evaluateCmd.Flags().StringVarP(&evaluateQuery, "query", "q", "", "Search query sent with the resumes")
	addStageFlags(evaluateCmd, &evaluatePrefix, &evaluateEndpoint, &evaluateThrottle)

	rootCmd.AddCommand(evaluateCmd)
}

// addStageFlags registers the flags that override pipeline configuration.
func addStageFlags(cmd *cobra.Command, prefix, endpoint *string, throttle *time.Duration) {
	cmd.Flags().StringVar(prefix, "prefix", "", "Resume link prefix (overrides RESUME_PREFIX)")
	cmd.Flags().StringVar(endpoint, "endpoint", "", "Evaluation endpoint URL (overrides EVALUATE_URL)")
	cmd.Flags().DurationVar(throttle, "throttle", 0, "Delay between PDF fetches (overrides FETCH_THROTTLE)")
}

// applyStageFlags copies explicitly set flags over the loaded configuration.
func applyStageFlags(cmd *cobra.Command, prefix, endpoint string, throttle time.Duration) {
	if cmd.Flags().Changed("prefix") {
		appConfig.ResumePrefix = prefix
	}
	if cmd.Flags().Changed("endpoint") {
		appConfig.EvaluateURL = endpoint
	}
	if cmd.Flags().Changed("throttle") {
		appConfig.FetchThrottle = throttle
	}
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	if evaluatePage == "" && evaluateFile == "" {
		return fmt.Errorf("--page or --file is required")
	}
	applyStageFlags(cmd, evaluatePrefix, evaluateEndpoint, evaluateThrottle)

	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	loader := a.loader()
	location := evaluatePage
	if evaluateFile != "" {
		loader = page.FileLoader{BaseURL: evaluatePage}
		location = evaluateFile
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	p := pipeline.New(withPrinter(a.pipelineOptions(loader), printer))

	res, err := p.Run(ctx, location, evaluateQuery)
	if err != nil {
		return err
	}
	reportResult(printer, res)
	return nil
}

// withPrinter routes notices and, in verbose mode, progress to printer.
func withPrinter(opts pipeline.Options, printer *observability.Printer) pipeline.Options {
	opts.OnNotice = func(n pipeline.Notice) { printer.PrintNotice(n.Message) }
	if verbose {
		opts.OnStatus = printer.PrintStatus
		opts.OnLinks = printer.PrintLinks
	} else {
		opts.OnLinks = func(l []types.LinkRecord) {
			printer.PrintNotice(fmt.Sprintf("Found %d unique resume links, fetching...", len(l)))
		}
	}
	return opts
}

func reportResult(printer *observability.Printer, res *pipeline.Result) {
	if res.Fetch != nil && res.Fetch.Failed() > 0 {
		printer.PrintNotice(fmt.Sprintf("%d of %d documents could not be fetched", res.Fetch.Failed(), len(res.Links)))
	}
	if res.Skipped {
		if res.SkipReason != "" {
			printer.PrintNotice("Nothing submitted: " + res.SkipReason)
		}
		return
	}
	printer.PrintResultSet(res.ResultSet)
	if res.Channel != "" {
		printer.PrintNotice(fmt.Sprintf("Results published (%s channel), run %s", res.Channel, res.RunID))
	}
}
