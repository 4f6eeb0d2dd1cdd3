// Package pipeline orchestrates one page-scan-and-submit run: collect resume
// links, deduplicate, fetch, submit, format and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-evaluator/internal/db"
	"github.com/jonathan/resume-evaluator/internal/evaluate"
	"github.com/jonathan/resume-evaluator/internal/fetch"
	"github.com/jonathan/resume-evaluator/internal/ingestion"
	"github.com/jonathan/resume-evaluator/internal/links"
	"github.com/jonathan/resume-evaluator/internal/page"
	"github.com/jonathan/resume-evaluator/internal/results"
	"github.com/jonathan/resume-evaluator/internal/store"
	"github.com/jonathan/resume-evaluator/internal/types"
)

// ErrAlreadyTriggered is returned when a Pipeline instance is triggered a second time.
var ErrAlreadyTriggered = errors.New("pipeline already triggered")

// User-facing notice texts.
const (
	NoticeNoLinks = "No resume links found with the specified prefix."
)

// NoticeLevel classifies a Notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient user-facing message.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Submitter sends fetched documents for evaluation.
type Submitter interface {
	Submit(ctx context.Context, query string, docs []types.FetchedDocument) (*evaluate.Response, error)
}

// Publisher hands a result set to the render surface.
type Publisher interface {
	Publish(set *types.SearchResultSet) (store.Channel, error)
}

// Recorder stores run history.
type Recorder interface {
	CreateRun(ctx context.Context, runID uuid.UUID, query, pageURL string) error
	CompleteRun(ctx context.Context, runID uuid.UUID, summary db.RunSummary) error
	SaveResultSet(ctx context.Context, runID uuid.UUID, set *types.SearchResultSet) error
}

// Options wires a Pipeline. Loader, Collector, Fetcher and Submitter are required.
type Options struct {
	Loader    page.Loader
	Collector *links.Collector
	Fetcher   *fetch.Fetcher
	Submitter Submitter

	// Postings reads job postings for Index. Optional.
	Postings *ingestion.Reader

	// Publisher and Recorder are optional.
	Publisher Publisher
	Recorder  Recorder

	Clock  clock.Clock
	Logger *logrus.Entry

	OnStatus fetch.StatusFunc
	OnNotice func(Notice)
	OnLinks  func([]types.LinkRecord)
}

// Result describes a finished run.
type Result struct {
	RunID      uuid.UUID
	PageURL    string
	Query      string
	Links      []types.LinkRecord
	Duplicates int
	Fetch      *fetch.Report

	// Skipped is set when nothing was submitted; SkipReason says why.
	Skipped    bool
	SkipReason string

	ResultSet *types.SearchResultSet
	Channel   store.Channel
}

// Pipeline runs at most once. Create a new instance to run again.
type Pipeline struct {
	opts      Options
	triggered atomic.Bool
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	if opts.OnStatus == nil {
		opts.OnStatus = func(types.StatusEvent) {}
	}
	if opts.OnNotice == nil {
		opts.OnNotice = func(Notice) {}
	}
	if opts.OnLinks == nil {
		opts.OnLinks = func([]types.LinkRecord) {}
	}
	return &Pipeline{opts: opts}
}

// Triggered reports whether the pipeline has been started.
func (p *Pipeline) Triggered() bool {
	return p.triggered.Load()
}

// Outcome is delivered by Start once the run finishes.
type Outcome struct {
	Result *Result
	Err    error
}

// Run evaluates the resumes linked from pageURL against query.
func (p *Pipeline) Run(ctx context.Context, pageURL, query string) (*Result, error) {
	if !p.triggered.CompareAndSwap(false, true) {
		return nil, ErrAlreadyTriggered
	}
	return p.evaluate(ctx, pageURL, query)
}

// Start claims the pipeline and runs it on a new goroutine. The returned channel
// receives one Outcome and is then closed.
func (p *Pipeline) Start(ctx context.Context, pageURL, query string) (<-chan Outcome, error) {
	if !p.triggered.CompareAndSwap(false, true) {
		return nil, ErrAlreadyTriggered
	}
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		res, err := p.evaluate(ctx, pageURL, query)
		out <- Outcome{Result: res, Err: err}
	}()
	return out, nil
}

// Index reads the query from the job posting at postingURL and evaluates the
// applications page. When applicationsURL is empty the posting's "Active
// Applications" link is used.
func (p *Pipeline) Index(ctx context.Context, postingURL, applicationsURL string) (*Result, error) {
	if !p.triggered.CompareAndSwap(false, true) {
		return nil, ErrAlreadyTriggered
	}
	if p.opts.Postings == nil {
		return nil, errors.New("pipeline has no posting reader")
	}

	posting, err := p.opts.Postings.Read(ctx, postingURL)
	if err != nil {
		p.notify(NoticeError, "Error processing details: "+err.Error())
		return nil, fmt.Errorf("failed to read job posting: %w", err)
	}

	if applicationsURL == "" {
		applicationsURL = posting.ApplicationsURL
	}
	if applicationsURL == "" {
		err := errors.New("no applications page found on the job posting")
		p.notify(NoticeError, "Error: "+err.Error())
		return nil, err
	}

	p.opts.Logger.WithFields(logrus.Fields{"posting": postingURL, "query": posting.Query}).Info("query extracted from job posting")
	return p.evaluate(ctx, applicationsURL, posting.Query)
}

func (p *Pipeline) notify(level NoticeLevel, msg string) {
	p.opts.OnNotice(Notice{Level: level, Message: msg})
}

func (p *Pipeline) evaluate(ctx context.Context, pageURL, query string) (*Result, error) {
	res := &Result{RunID: uuid.New(), PageURL: pageURL, Query: query}
	logger := p.opts.Logger.WithFields(logrus.Fields{"run_id": res.RunID, "page": pageURL})
	p.recordStart(ctx, logger, res)

	pg, err := p.opts.Loader.Load(ctx, pageURL)
	if err != nil {
		return res, p.abort(ctx, logger, res, fmt.Errorf("failed to load page: %w", err))
	}

	collected, err := p.opts.Collector.Collect(pg)
	if err != nil {
		return res, p.abort(ctx, logger, res, err)
	}

	res.Links = links.Deduplicate(collected)
	res.Duplicates = len(collected) - len(res.Links)
	logger.WithFields(logrus.Fields{
		"found":      len(collected),
		"unique":     len(res.Links),
		"duplicates": res.Duplicates,
	}).Debug("resume links collected")

	if len(res.Links) == 0 {
		p.notify(NoticeInfo, NoticeNoLinks)
		res.Skipped = true
		res.SkipReason = NoticeNoLinks
		p.recordEnd(ctx, logger, res, db.RunStatusSkipped, "")
		return res, nil
	}
	p.opts.OnLinks(res.Links)

	res.Fetch = p.opts.Fetcher.FetchAll(ctx, res.Links, p.opts.OnStatus)
	docs := res.Fetch.Documents

	if strings.TrimSpace(query) != "" && len(docs) > 0 {
		p.opts.OnStatus(types.StatusEvent{
			Index:   0,
			Total:   1,
			State:   types.StatusPending,
			Message: fmt.Sprintf("Sending %d PDFs to search service with query: %q", len(docs), query),
		})
	}

	resp, err := p.opts.Submitter.Submit(ctx, query, docs)
	if err != nil {
		msg := "Search failed: " + err.Error()
		p.opts.OnStatus(types.StatusEvent{Index: 0, Total: 1, State: types.StatusError, Message: msg})
		p.notify(NoticeError, msg)
		p.recordEnd(ctx, logger, res, db.RunStatusFailed, err.Error())
		return res, err
	}
	if resp.Skipped {
		res.Skipped = true
		res.SkipReason = resp.SkipReason
		if resp.SkipReason == evaluate.ReasonEmptyQuery {
			p.opts.OnStatus(types.StatusEvent{Index: 0, Total: 1, State: types.StatusError, Message: resp.SkipReason})
			p.notify(NoticeError, resp.SkipReason)
		}
		p.recordEnd(ctx, logger, res, db.RunStatusSkipped, "")
		return res, nil
	}

	formattedQuery := query
	if resp.Query != "" {
		formattedQuery = resp.Query
	}
	set := results.Format(formattedQuery, resp.Verdicts, docs, p.opts.Clock.Now())
	res.ResultSet = &set

	p.opts.OnStatus(types.StatusEvent{
		Index:   1,
		Total:   1,
		State:   types.StatusSuccess,
		Message: fmt.Sprintf("Search complete: %d matches found for %q", set.TotalMatches, query),
	})
	logger.WithFields(logrus.Fields{"results": len(set.Results), "matches": set.TotalMatches}).Info("search complete")

	if p.opts.Publisher != nil {
		channel, err := p.opts.Publisher.Publish(res.ResultSet)
		if err != nil {
			p.notify(NoticeError, "Failed to display search results: "+err.Error())
			p.recordEnd(ctx, logger, res, db.RunStatusFailed, err.Error())
			return res, fmt.Errorf("failed to publish results: %w", err)
		}
		res.Channel = channel
	}

	if p.opts.Recorder != nil {
		if err := p.opts.Recorder.SaveResultSet(ctx, res.RunID, res.ResultSet); err != nil {
			logger.WithField("err", err).Warn("failed to save run results")
		}
	}
	p.recordEnd(ctx, logger, res, db.RunStatusCompleted, "")
	return res, nil
}

// abort handles failures before any link was fetched.
func (p *Pipeline) abort(ctx context.Context, logger *logrus.Entry, res *Result, err error) error {
	logger.WithField("err", err).Error("run aborted")
	p.notify(NoticeError, "Error: "+err.Error())
	p.recordEnd(ctx, logger, res, db.RunStatusFailed, err.Error())
	return err
}

func (p *Pipeline) recordStart(ctx context.Context, logger *logrus.Entry, res *Result) {
	if p.opts.Recorder == nil {
		return
	}
	if err := p.opts.Recorder.CreateRun(ctx, res.RunID, res.Query, res.PageURL); err != nil {
		logger.WithField("err", err).Warn("failed to record run start")
	}
}

func (p *Pipeline) recordEnd(ctx context.Context, logger *logrus.Entry, res *Result, status, errMsg string) {
	if p.opts.Recorder == nil {
		return
	}
	summary := db.RunSummary{
		Status:     status,
		Query:      res.Query,
		LinksFound: len(res.Links),
		Error:      errMsg,
	}
	if res.Fetch != nil {
		summary.DocumentsFetched = len(res.Fetch.Documents)
		summary.FetchFailures = res.Fetch.Failed()
	}
	if res.ResultSet != nil {
		summary.TotalMatches = res.ResultSet.TotalMatches
	}
	// The final status is written even when ctx was cancelled.
	if err := p.opts.Recorder.CompleteRun(context.WithoutCancel(ctx), res.RunID, summary); err != nil {
		logger.WithField("err", err).Warn("failed to record run completion")
	}
}
