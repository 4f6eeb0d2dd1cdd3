// Package evaluate submits fetched resumes and a free-text query to the external
// evaluation service and returns its raw verdicts.
package evaluate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-evaluator/internal/types"
)

// DefaultEndpoint is the evaluation service URL used when none is configured.
const DefaultEndpoint = "http://localhost:8000/evaluate/"

// DefaultTimeout bounds a single submission.
const DefaultTimeout = 120 * time.Second

// Skip reasons reported when a submission is not sent.
const (
	ReasonEmptyQuery  = "Cannot search with empty query"
	ReasonNoDocuments = "Not sending to search endpoint - missing query or no PDFs collected"
)

// Config configures a Client.
type Config struct {
	Endpoint string
	Client   *http.Client
	Logger   *logrus.Entry
}

// Client talks to the evaluation service.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *logrus.Entry
}

// NewClient creates a Client, filling in defaults for unset fields.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &Client{endpoint: cfg.Endpoint, client: cfg.Client, logger: cfg.Logger}
}

// Response is the outcome of a submission.
type Response struct {
	Verdicts []types.VerdictRaw

	// Query is the query echoed by the service, empty when absent.
	Query string

	// Skipped is set when the request was never sent; SkipReason says why.
	Skipped    bool
	SkipReason string
}

// Submit posts query and docs as multipart/form-data. When the trimmed query is
// empty or docs is empty no request is made and a skipped Response is returned
// with a nil error. A non-2xx status returns *ServiceError. A body that cannot be
// read as verdicts yields an empty verdict list.
func (c *Client) Submit(ctx context.Context, query string, docs []types.FetchedDocument) (*Response, error) {
	if strings.TrimSpace(query) == "" || len(docs) == 0 {
		reason := ReasonNoDocuments
		if strings.TrimSpace(query) == "" {
			reason = ReasonEmptyQuery
		}
		c.logger.WithFields(logrus.Fields{"documents": len(docs), "query": query}).Warn(ReasonNoDocuments)
		return &Response{Skipped: true, SkipReason: reason}, nil
	}

	body, contentType, err := buildForm(query, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to build submission form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.WithFields(logrus.Fields{
		"endpoint":  c.endpoint,
		"documents": len(docs),
		"query":     query,
	}).Info("sending PDFs to evaluation service")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evaluation request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read evaluation response: %w", err)
	}

	verdicts, echoed, perr := ParseVerdicts(raw)
	if perr != nil {
		c.logger.WithField("err", perr).Warn("unexpected evaluation response, treating as no results")
	}

	c.logger.WithField("verdicts", len(verdicts)).Debug("evaluation response received")
	return &Response{Verdicts: verdicts, Query: echoed}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildForm writes the query field followed by one pdf_<i> part per document.
func buildForm(query string, docs []types.FetchedDocument) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("query", query); err != nil {
		return nil, "", err
	}

	for i, doc := range docs {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf_%d"; filename="%s"`, i, quoteEscaper.Replace(doc.Filename)))
		h.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(doc.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
