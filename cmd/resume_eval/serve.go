package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-evaluator/internal/pipeline"
	"github.com/jonathan/resume-evaluator/internal/server"
	"github.com/jonathan/resume-evaluator/internal/server/ratelimit"
	"github.com/jonathan/resume-evaluator/internal/types"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger service",
	Long: `Start an HTTP server that accepts evaluateCandidates and indexCandidates messages on
POST /messages, serves the latest results and run history, and streams progress on GET /events.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("port") {
		appConfig.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv, err := newServer(a)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		}
		return nil
	})
	return g.Wait()
}

// newServer builds the server with one pipeline per applications page. Each
// pipeline streams its progress to the event broadcaster.
func newServer(a *app) (*server.Server, error) {
	events := server.NewBroadcaster()
	loader := a.loader()

	sessions := pipeline.NewSessions(func(pageURL string) *pipeline.Pipeline {
		opts := a.pipelineOptions(loader)
		opts.Logger = a.logger.WithField("page", pageURL)
		status := events.StatusFunc(pageURL)
		opts.OnStatus = func(ev types.StatusEvent) {
			opts.Logger.WithField("state", ev.State).Debug(ev.Message)
			status(ev)
		}
		opts.OnNotice = events.NoticeFunc(pageURL)
		opts.OnLinks = events.LinksFunc(pageURL)
		return pipeline.New(opts)
	})

	cfg := server.Config{
		Port:      a.cfg.Server.Port,
		Sessions:  sessions,
		Results:   a.handoff,
		Events:    events,
		JWT:       &a.cfg.JWT,
		RateLimit: ratelimit.NewConfig(a.cfg.Server.RateLimitPerSecond, a.cfg.Server.RateLimitBurst),
		Logger:    a.logger,
	}
	if a.history != nil {
		cfg.History = a.history
	}
	return server.New(cfg)
}
