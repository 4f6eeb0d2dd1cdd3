package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/resume-evaluator/internal/messaging"
	"github.com/jonathan/resume-evaluator/internal/render"
	"github.com/jonathan/resume-evaluator/internal/types"
)

// maxMessageBytes caps the size of a POST /messages body.
const maxMessageBytes = 64 << 10

// keepAliveInterval is how often an idle event stream receives a comment.
const keepAliveInterval = 15 * time.Second

// handleMessage dispatches a trigger request and returns its single response.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messaging.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if err := s.validateRequest(&req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp := <-s.router.Send(r.Context(), req)
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) validateRequest(req *messaging.Request) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		msg := fmt.Sprintf("failed %q validation", fe.Tag())
		if fe.Tag() == "required" {
			msg = "is required"
		}
		return &ErrValidation{Field: fe.Field(), Message: msg}
	}
	return &ErrValidation{Field: "request", Message: err.Error()}
}

// handleLatestResults returns the most recent published result set as JSON,
// or as the HTML report with ?format=html.
func (s *Server) handleLatestResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, (&ErrNotConfigured{Feature: "result handoff"}).Error())
		return
	}

	set, err := s.results.Peek()
	if err != nil {
		status := HTTPStatus(err)
		if status == http.StatusNotFound {
			s.errorResponse(w, status, "no results available")
			return
		}
		s.logger.WithField("err", err).Error("failed to read latest results")
		s.errorResponse(w, status, "failed to read results")
		return
	}

	s.writeResultSet(w, r, set, "/results/latest?format=html")
}

// handleListRuns lists the most recent runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.historyUnavailable(w)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			s.errorResponse(w, http.StatusBadRequest, (&ErrValidation{Field: "limit", Message: "must be between 1 and 100"}).Error())
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.WithField("err", err).Error("failed to list runs")
		s.errorResponse(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns one run record.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.historyUnavailable(w)
		return
	}
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := s.history.GetRun(r.Context(), runID)
	if err != nil {
		s.logger.WithField("err", err).Error("failed to get run")
		s.errorResponse(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, (&ErrNotFound{Resource: "run"}).Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleRunResults returns the stored result set of a run.
func (s *Server) handleRunResults(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.historyUnavailable(w)
		return
	}
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	set, err := s.history.GetRunResults(r.Context(), runID)
	if err != nil {
		s.logger.WithField("err", err).Error("failed to get run results")
		s.errorResponse(w, http.StatusInternalServerError, "failed to get run results")
		return
	}
	if set == nil {
		s.errorResponse(w, http.StatusNotFound, (&ErrNotFound{Resource: "run results"}).Error())
		return
	}

	s.writeResultSet(w, r, set, "/runs/"+runID.String()+"/results?format=html")
}

// handleResetSessions forgets every page's pipeline so pages can be triggered again.
func (s *Server) handleResetSessions(w http.ResponseWriter, _ *http.Request) {
	n := s.sessions.Reset()
	s.logger.WithField("sessions", n).Info("sessions reset")
	s.jsonResponse(w, http.StatusOK, map[string]int{"reset": n})
}

// handleEvents streams pipeline events. ?page= restricts the stream to one page.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, (&ErrNotConfigured{Feature: "event stream"}).Error())
		return
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)

	page := r.URL.Query().Get("page")
	events, cancel := s.events.Subscribe()
	defer cancel()

	if err := sse.Open(); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.runCtx.Done():
			sse.WriteError("server shutting down")
			return
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if page != "" && ev.Page != page {
				continue
			}
			if err := sse.WriteEvent(ev.Type, ev); err != nil {
				return
			}
		}
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *Server) writeResultSet(w http.ResponseWriter, r *http.Request, set *types.SearchResultSet, basePath string) {
	if r.URL.Query().Get("format") != "html" {
		s.jsonResponse(w, http.StatusOK, set)
		return
	}

	filter, err := render.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := render.HTML(w, set, render.Options{Filter: filter, Location: s.location, BasePath: basePath}); err != nil {
		s.logger.WithField("err", err).Error("failed to render results")
	}
}

func (s *Server) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, (&ErrValidation{Field: "id", Message: "must be a UUID"}).Error())
		return uuid.Nil, false
	}
	return runID, true
}

func (s *Server) historyUnavailable(w http.ResponseWriter) {
	s.errorResponse(w, http.StatusServiceUnavailable, (&ErrNotConfigured{Feature: "run history"}).Error())
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithField("err", err).Error("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
