// Package server provides the HTTP trigger service for the resume evaluator.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-evaluator/internal/config"
	"github.com/jonathan/resume-evaluator/internal/db"
	"github.com/jonathan/resume-evaluator/internal/messaging"
	"github.com/jonathan/resume-evaluator/internal/pipeline"
	"github.com/jonathan/resume-evaluator/internal/server/middleware"
	"github.com/jonathan/resume-evaluator/internal/server/ratelimit"
	"github.com/jonathan/resume-evaluator/internal/types"
)

// DefaultShutdownTimeout bounds graceful shutdown, including waiting for
// background runs.
const DefaultShutdownTimeout = 30 * time.Second

// ResultSource exposes the latest published result set without consuming it.
type ResultSource interface {
	Peek() (*types.SearchResultSet, error)
}

// RunHistory reads stored runs.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	GetRunResults(ctx context.Context, runID uuid.UUID) (*types.SearchResultSet, error)
}

// Config holds server configuration. Sessions is required.
type Config struct {
	Port     int
	Sessions *pipeline.Sessions

	// Results, History and Events are optional; their endpoints answer 404 or
	// 503 when unset.
	Results ResultSource
	History RunHistory
	Events  *Broadcaster

	// JWT enables bearer-token auth when its secret is set.
	JWT       *config.JWTConfig
	RateLimit *ratelimit.Config

	// Location is used to display timestamps in HTML reports.
	Location *time.Location

	ShutdownTimeout time.Duration
	Logger          *logrus.Entry
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	router      *messaging.Router
	sessions    *pipeline.Sessions
	results     ResultSource
	history     RunHistory
	events      *Broadcaster
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	validate    *validator.Validate
	location    *time.Location
	logger      *logrus.Entry

	shutdownTimeout time.Duration

	// runCtx is handed to every pipeline run; cancelRuns aborts them.
	runCtx     context.Context
	cancelRuns context.CancelFunc
	runs       sync.WaitGroup
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("server requires pipeline sessions")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{
		sessions:        cfg.Sessions,
		results:         cfg.Results,
		history:         cfg.History,
		events:          cfg.Events,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit),
		validate:        newValidator(),
		location:        cfg.Location,
		logger:          cfg.Logger.WithField("component", "server"),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	s.runCtx, s.cancelRuns = context.WithCancel(context.Background())

	s.router = messaging.NewRouter(s.logger)
	s.router.Handle(messaging.ActionEvaluate, s.evaluateAction)
	s.router.Handle(messaging.ActionIndex, s.indexAction)

	api := http.NewServeMux()
	api.HandleFunc("POST /messages", s.handleMessage)
	api.HandleFunc("GET /results/latest", s.handleLatestResults)
	api.HandleFunc("GET /runs", s.handleListRuns)
	api.HandleFunc("GET /runs/{id}", s.handleGetRun)
	api.HandleFunc("GET /runs/{id}/results", s.handleRunResults)
	api.HandleFunc("DELETE /sessions", s.handleResetSessions)
	api.HandleFunc("GET /events", s.handleEvents)

	var protected http.Handler = api
	if cfg.JWT != nil && cfg.JWT.Enabled() {
		s.jwtService = NewJWTService(cfg.JWT)
		protected = middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(api)
	} else {
		s.logger.Warn("JWT_SECRET not set, API authentication is disabled")
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.handleHealth)
	root.Handle("/", protected)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(root)))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      300 * time.Second, // Index runs answer on completion
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// JWTService returns the token service, or nil when auth is disabled.
func (s *Server) JWTService() *JWTService {
	return s.jwtService
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.cancelRuns()
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown stops accepting requests and waits for in-flight runs. Runs still
// going when the shutdown timeout expires are cancelled.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down server")
	defer s.rateLimiter.Stop()
	defer s.cancelRuns()

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown failed: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("cancelling runs still in progress")
		s.cancelRuns()
		<-done
	}

	s.logger.Info("server stopped")
	return shutdownErr
}

// evaluateAction starts a run in the background and answers immediately.
func (s *Server) evaluateAction(_ context.Context, req messaging.Request) messaging.Response {
	if req.PageURL == "" {
		return messaging.Response{Status: "Error: page_url is required", Error: "page_url is required"}
	}

	s.runs.Add(1)
	outcome, err := s.sessions.Get(req.PageURL).Start(s.runCtx, req.PageURL, req.Query)
	if err != nil {
		s.runs.Done()
		return messaging.Ignored()
	}

	go func() {
		defer s.runs.Done()
		o := <-outcome
		s.finish(req.PageURL, o.Result, o.Err)
	}()

	return messaging.Response{Status: "Search started with query: " + req.Query}
}

// indexAction runs the posting flow and answers once it finishes.
func (s *Server) indexAction(_ context.Context, req messaging.Request) messaging.Response {
	if req.PostingURL == "" {
		return messaging.Response{Status: "Error: posting_url is required", Error: "posting_url is required"}
	}

	page := req.PageURL
	if page == "" {
		page = req.PostingURL
	}

	s.runs.Add(1)
	defer s.runs.Done()

	res, err := s.sessions.Get(page).Index(s.runCtx, req.PostingURL, req.PageURL)
	if errors.Is(err, pipeline.ErrAlreadyTriggered) {
		return messaging.Ignored()
	}
	s.finish(page, res, err)
	if err != nil {
		return messaging.Response{Status: "Error: " + err.Error(), Error: err.Error()}
	}

	switch {
	case res.Skipped:
		return messaging.Response{Status: "Index process completed: " + res.SkipReason}
	case res.ResultSet != nil:
		return messaging.Response{Status: fmt.Sprintf("Index process completed: %d matches found for %q",
			res.ResultSet.TotalMatches, res.ResultSet.Query)}
	default:
		return messaging.Response{Status: "Index process completed"}
	}
}

// runCompletion is the payload of a complete event.
type runCompletion struct {
	RunID   string `json:"run_id,omitempty"`
	Status  string `json:"status"`
	Matches int    `json:"matches"`
	Channel string `json:"channel,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) finish(page string, res *pipeline.Result, err error) {
	c := runCompletion{Status: db.RunStatusCompleted}
	if res != nil {
		c.RunID = res.RunID.String()
		c.Channel = string(res.Channel)
		if res.Skipped {
			c.Status = db.RunStatusSkipped
		}
		if res.ResultSet != nil {
			c.Matches = res.ResultSet.TotalMatches
		}
	}

	logger := s.logger.WithFields(logrus.Fields{"page": page, "run_id": c.RunID})
	if err != nil {
		c.Status = db.RunStatusFailed
		c.Error = err.Error()
		logger.WithField("err", err).Error("run failed")
	} else {
		logger.WithFields(logrus.Fields{"status": c.Status, "matches": c.Matches}).Info("run finished")
	}

	if s.events != nil {
		s.events.Publish(Event{Type: EventComplete, Page: page, Data: c})
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("request completed")
	})
}

// extractClientID extracts the client identifier from the request. Only the
// connection address is trusted; X-Forwarded-For is ignored.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	retryAfter := int((info.RetryAfter + time.Second - 1) / time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	s.logger.WithFields(logrus.Fields{"limit": info.Limit, "retry_after": retryAfter}).Warn("rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     "Rate limit exceeded. Please try again later.",
		"limit":       info.Limit,
		"retry_after": retryAfter,
	})
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
