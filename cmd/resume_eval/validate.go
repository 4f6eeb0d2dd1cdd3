package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-evaluator/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate <results.json>",
	Short: "Validate a search results JSON file",
	Long:  "Check a saved SearchResultSet JSON file (for example the output of results --json) against the result schema.",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := schemas.ValidateResultFile(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is a valid search result set\n", args[0])
	return nil
}
