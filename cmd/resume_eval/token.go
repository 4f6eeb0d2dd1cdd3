package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-evaluator/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP service",
	Long:  "Sign a JWT with JWT_SECRET that the serve command accepts in the Authorization header.",
	RunE:  runToken,
}

var tokenSubject string

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "resume_eval", "Token subject identifying the caller")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if !appConfig.JWT.Enabled() {
		return fmt.Errorf("JWT_SECRET is required to issue tokens")
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	token, err := server.NewJWTService(&appConfig.JWT).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
