// Package linkedin queries the LinkedIn search service and normalizes its answer
// into a SearchResultSet.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/jonathan/resume-evaluator/internal/results"
	"github.com/jonathan/resume-evaluator/internal/types"
)

// DefaultEndpoint is the LinkedIn search URL used when none is configured.
const DefaultEndpoint = "http://localhost:8000/linkedin"

// DefaultTimeout bounds a single search.
const DefaultTimeout = 120 * time.Second

// Config configures a Client.
type Config struct {
	Endpoint string
	Client   *http.Client
	Clock    clock.Clock
	Logger   *logrus.Entry
}

// Client talks to the LinkedIn search service.
type Client struct {
	cfg Config
}

// NewClient creates a Client, filling in defaults for unset fields.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &Client{cfg: cfg}
}

// ServiceError is returned when the service answers with a non-2xx status.
type ServiceError struct {
	StatusCode int
	Status     string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("LinkedIn service error: %d %s", e.StatusCode, e.Status)
}

// ParseError describes a response with neither a result nor a profiles field.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("LinkedIn response parse error: %s", e.Message)
}

// Search posts {"query": query} and returns the normalized results.
func (c *Client) Search(ctx context.Context, query string) (*types.SearchResultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("LinkedIn search requires a query")
	}

	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.cfg.Logger.WithField("endpoint", c.cfg.Endpoint).Info("sending query to LinkedIn service")

	resp, err := c.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LinkedIn request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read LinkedIn response: %w", err)
	}

	return Normalize(query, body, c.cfg.Clock.Now())
}

// Normalize converts either response shape into a SearchResultSet:
// {"result": [name, "YES"|..., explanation]} or {"profiles": [...]}.
func Normalize(query string, body []byte, now time.Time) (*types.SearchResultSet, error) {
	if !gjson.ValidBytes(body) {
		return nil, &ParseError{Message: "response is not valid JSON"}
	}
	root := gjson.ParseBytes(body)

	set := &types.SearchResultSet{
		Query:     query,
		Timestamp: results.Timestamp(now),
		Results:   []types.FormattedResult{},
	}

	if result := root.Get("result"); result.Exists() && result.Type != gjson.Null {
		set.Results = append(set.Results, fromResultTuple(result))
	} else if profiles := root.Get("profiles"); profiles.IsArray() {
		for i, p := range profiles.Array() {
			set.Results = append(set.Results, fromProfile(i, p))
		}
	} else {
		return nil, &ParseError{Message: "response has neither result nor profiles"}
	}

	set.TotalMatches = results.CountMatches(set.Results)
	return set, nil
}

func fromResultTuple(result gjson.Result) types.FormattedResult {
	match := result.Get("1").String() == "YES"
	return types.FormattedResult{
		ID:              "linkedin-result",
		Filename:        orDefault(result.Get("0").String(), "LinkedIn Search Result"),
		IsMatch:         match,
		Explanation:     orDefault(result.Get("2").String(), "No explanation available"),
		Snippet:         "LinkedIn Search Result",
		Score:           score(match),
		LinkedInProfile: true,
	}
}

func fromProfile(index int, p gjson.Result) types.FormattedResult {
	match := p.Get("match").Type == gjson.True

	var skills []string
	for _, s := range p.Get("skills").Array() {
		skills = append(skills, s.String())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<p><strong>Title:</strong> %s</p>", field(p, "title"))
	fmt.Fprintf(&sb, "<p><strong>Location:</strong> %s</p>", field(p, "location"))
	fmt.Fprintf(&sb, "<p><strong>Skills:</strong> %s</p>", html.EscapeString(orDefault(strings.Join(skills, ", "), "N/A")))
	fmt.Fprintf(&sb, "<p><strong>Experience:</strong> %s</p>", field(p, "experience"))
	if u := p.Get("url").String(); u != "" {
		fmt.Fprintf(&sb, `<p><a href="%s" target="_blank">View Profile</a></p>`, html.EscapeString(u))
	}

	return types.FormattedResult{
		ID:              fmt.Sprintf("linkedin-%d", index),
		Filename:        orDefault(p.Get("name").String(), "LinkedIn Profile"),
		IsMatch:         match,
		Explanation:     orDefault(p.Get("analysis").String(), "No analysis available"),
		Snippet:         sb.String(),
		Score:           score(match),
		LinkedInProfile: true,
	}
}

func field(p gjson.Result, name string) string {
	return html.EscapeString(orDefault(p.Get(name).String(), "N/A"))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func score(match bool) int {
	if match {
		return 1
	}
	return 0
}
