// Package messaging routes trigger requests to handlers and delivers exactly one
// response per request.
package messaging

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Action names a request kind.
type Action string

const (
	// ActionEvaluate scans the applications page, fetches resumes and submits them.
	ActionEvaluate Action = "evaluateCandidates"
	// ActionIndex extracts the query from a posting page, then evaluates.
	ActionIndex Action = "indexCandidates"
)

// StatusIgnored is the response to unknown or repeated actions.
const StatusIgnored = "Ignored - action already processed or unknown"

// Request is an inbound trigger.
type Request struct {
	Action     Action `json:"action" validate:"required"`
	Query      string `json:"query,omitempty"`
	PageURL    string `json:"page_url,omitempty" validate:"omitempty,url"`
	PostingURL string `json:"posting_url,omitempty" validate:"omitempty,url"`
}

// Response is the single reply to a Request.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Ignored returns the response for unknown or repeated actions.
func Ignored() Response {
	return Response{Status: StatusIgnored}
}

// Handler processes one request.
type Handler func(ctx context.Context, req Request) Response

// Router dispatches requests by action.
type Router struct {
	mu       sync.RWMutex
	handlers map[Action]Handler
	logger   *logrus.Entry
}

// NewRouter creates an empty Router.
func NewRouter(logger *logrus.Entry) *Router {
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &Router{handlers: make(map[Action]Handler), logger: logger}
}

// Handle registers h for action, replacing any previous handler.
func (r *Router) Handle(action Action, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
}

// Send dispatches req on a new goroutine. The returned channel receives exactly
// one Response and is then closed. A panicking handler produces an error response.
func (r *Router) Send(ctx context.Context, req Request) <-chan Response {
	out := make(chan Response, 1)

	r.mu.RLock()
	h, ok := r.handlers[req.Action]
	r.mu.RUnlock()

	if !ok {
		r.logger.WithField("action", req.Action).Debug("ignoring unknown action")
		out <- Ignored()
		close(out)
		return out
	}

	go func() {
		defer close(out)
		defer func() {
			if p := recover(); p != nil {
				r.logger.WithFields(logrus.Fields{"action": req.Action, "panic": p}).Error("handler panicked")
				out <- Response{Status: "Error: internal error", Error: fmt.Sprint(p)}
			}
		}()
		out <- h(ctx, req)
	}()
	return out
}
