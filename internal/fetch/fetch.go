// Package fetch retrieves resume documents one at a time with the session credentials
// of the hosting page and reports progress per item.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jonathan/resume-evaluator/internal/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultThrottle is the default minimum delay between two consecutive requests.
const DefaultThrottle = 500 * time.Millisecond

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ResumeEvaluator/1.0)"

// StatusFunc receives progress events. It is called synchronously from FetchAll.
type StatusFunc func(types.StatusEvent)

// Config configures a Fetcher.
type Config struct {
	// Client performs requests. Its Jar carries the session cookies.
	// Defaults to a client with DefaultTimeout and no jar.
	Client *http.Client

	// Throttle is the minimum spacing between request starts. Zero disables it.
	Throttle time.Duration

	UserAgent string

	// Clock provides fetch timestamps. Defaults to clock.WallClock.
	Clock clock.Clock

	Logger *logrus.Entry
}

func (cfg *Config) setDefaults() {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
}

// Fetcher downloads documents sequentially.
type Fetcher struct {
	cfg     Config
	limiter *rate.Limiter
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.setDefaults()
	f := &Fetcher{cfg: cfg}
	if cfg.Throttle > 0 {
		f.limiter = rate.NewLimiter(rate.Every(cfg.Throttle), 1)
	}
	return f
}

// Report is the outcome of a FetchAll call.
type Report struct {
	// Documents holds the successfully fetched documents in input order.
	Documents []types.FetchedDocument

	// Failures aggregates one *FetchError per failed link. Nil when all succeeded.
	Failures *multierror.Error

	Attempted int
}

// Failed returns the number of links that could not be fetched.
func (r *Report) Failed() int {
	if r.Failures == nil {
		return 0
	}
	return len(r.Failures.Errors)
}

// FetchAll fetches every link in order, waiting for each request to finish before
// starting the next. A failed link is reported and skipped. A cancelled context
// stops the loop after recording the current link as failed. The complete event is
// always emitted.
func (f *Fetcher) FetchAll(ctx context.Context, links []types.LinkRecord, report StatusFunc) *Report {
	if report == nil {
		report = func(types.StatusEvent) {}
	}

	total := len(links)
	result := &Report{}

	for i, link := range links {
		report(types.StatusEvent{
			Index:   i + 1,
			Total:   total,
			State:   types.StatusPending,
			Message: fmt.Sprintf("Fetching: %s", link.Text),
		})
		result.Attempted++

		doc, err := f.Fetch(ctx, link)
		if err != nil {
			result.Failures = multierror.Append(result.Failures, err)
			f.cfg.Logger.WithFields(logrus.Fields{"url": link.URL, "err": err}).Warn("failed to fetch PDF")
			report(types.StatusEvent{
				Index:   i + 1,
				Total:   total,
				State:   types.StatusError,
				Message: fmt.Sprintf("Failed: %s - %s", link.Text, describe(err)),
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		result.Documents = append(result.Documents, *doc)
		report(types.StatusEvent{
			Index:   i + 1,
			Total:   total,
			State:   types.StatusSuccess,
			Message: fmt.Sprintf("Processed: %s (%.2f KB)", link.Text, float64(doc.Size())/1024),
			Bytes:   doc.Size(),
		})
	}

	report(types.StatusEvent{
		Index:   total,
		Total:   total,
		State:   types.StatusComplete,
		Message: fmt.Sprintf("Completed fetching %d PDFs", total),
	})

	f.cfg.Logger.WithFields(logrus.Fields{
		"attempted": result.Attempted,
		"fetched":   len(result.Documents),
		"failed":    result.Failed(),
	}).Info("PDF fetch complete")

	return result
}

// Fetch retrieves a single document. It honours the throttle.
func (f *Fetcher) Fetch(ctx context.Context, link types.LinkRecord) (*types.FetchedDocument, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: link.URL, Text: link.Text, Message: "throttle wait aborted", Cause: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: link.URL, Text: link.Text, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/pdf")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.cfg.Client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: link.URL, Text: link.Text, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:        link.URL,
			Text:       link.Text,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Network response was not ok: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: link.URL, Text: link.Text, Message: "failed to read response body", Cause: err}
	}

	return &types.FetchedDocument{
		Content:    body,
		Filename:   GenerateFilename(link.Text, f.cfg.Clock.Now()),
		SourceText: link.Text,
		SourceURL:  link.URL,
	}, nil
}

func describe(err error) string {
	if fe, ok := err.(*FetchError); ok {
		if fe.Cause != nil {
			return fmt.Sprintf("%s: %v", fe.Message, fe.Cause)
		}
		return fe.Message
	}
	return err.Error()
}
