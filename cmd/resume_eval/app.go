package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-evaluator/internal/config"
	"github.com/jonathan/resume-evaluator/internal/db"
	"github.com/jonathan/resume-evaluator/internal/evaluate"
	"github.com/jonathan/resume-evaluator/internal/fetch"
	"github.com/jonathan/resume-evaluator/internal/ingestion"
	"github.com/jonathan/resume-evaluator/internal/links"
	"github.com/jonathan/resume-evaluator/internal/page"
	"github.com/jonathan/resume-evaluator/internal/pipeline"
	"github.com/jonathan/resume-evaluator/internal/store"
)

// app holds the dependencies shared by every command.
type app struct {
	cfg    *config.Config
	logger *logrus.Entry

	// client carries the session cookie jar for page loads and PDF fetches.
	client *http.Client
	jar    http.CookieJar

	handoff *store.Handoff
	history *db.DB
}

// newApp validates cfg and opens the result stores and, when configured, the
// run history database.
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Entry) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.WithField("config", fmt.Sprintf("%+v", cfg.Redacted())).Debug("configuration loaded")

	jar, err := page.NewSessionJar(cfg.SessionCookies, cfg.CookieURLs())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.HTTPTimeout, Jar: jar},
		jar:    jar,
	}

	a.handoff, err = openHandoff(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = a.handoff.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			_ = a.handoff.Close()
			return nil, err
		}
		a.history = database
	}
	return a, nil
}

// openHandoff opens the LevelDB primary and the file fallback. A primary that
// cannot be opened, for example because a running server holds its lock, is
// skipped and every set goes to the fallback.
func openHandoff(cfg *config.Config, logger *logrus.Entry) (*store.Handoff, error) {
	fallback, err := store.NewFileStore(cfg.FallbackDir)
	if err != nil {
		return nil, err
	}

	var primary store.KV
	if ldb, err := store.OpenLevelDB(cfg.StorePath, cfg.MaxStoreBytes); err != nil {
		logger.WithField("err", err).Warn("primary result store unavailable, using fallback only")
	} else {
		primary = ldb
	}

	return store.NewHandoff(primary, fallback, logger), nil
}

func (a *app) Close() error {
	var err error
	if a.handoff != nil {
		if cErr := a.handoff.Close(); cErr != nil {
			err = multierror.Append(err, cErr)
		}
	}
	if a.history != nil {
		a.history.Close()
	}
	return err
}

// loader returns the browser loader when enabled, otherwise the HTTP loader.
func (a *app) loader() page.Loader {
	if a.cfg.Browser.Enabled {
		return page.NewBrowserLoader(page.BrowserLoaderConfig{
			Timeout:      a.cfg.Browser.Timeout,
			UserDataDir:  a.cfg.Browser.UserDataDir,
			WaitSelector: a.cfg.Browser.WaitSelector,
			Jar:          a.jar,
			CookieURLs:   a.cfg.CookieURLs(),
			Logger:       a.logger,
		})
	}
	return page.NewHTTPLoader(page.HTTPLoaderConfig{Client: a.client, Logger: a.logger})
}

// pipelineOptions wires every stage. Callers add their own callbacks.
func (a *app) pipelineOptions(loader page.Loader) pipeline.Options {
	opts := pipeline.Options{
		Loader:    loader,
		Collector: links.NewCollector(a.cfg.ResumePrefix, a.logger),
		Fetcher: fetch.New(fetch.Config{
			Client:   a.client,
			Throttle: a.cfg.FetchThrottle,
			Logger:   a.logger,
		}),
		Submitter: evaluate.NewClient(evaluate.Config{Endpoint: a.cfg.EvaluateURL, Logger: a.logger}),
		Postings:  ingestion.NewReader(loader, a.logger),
		Publisher: a.handoff,
		Logger:    a.logger,
	}
	if a.history != nil {
		opts.Recorder = a.history
	}
	return opts
}
