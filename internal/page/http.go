package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ResumeEvaluator/1.0)"

// HTTPLoaderConfig configures an HTTPLoader.
type HTTPLoaderConfig struct {
	// Client carries the session cookie jar. If nil, a client with DefaultTimeout is used.
	Client *http.Client

	// UserAgent defaults to DefaultUserAgent.
	UserAgent string

	// Logger defaults to a discarding logger.
	Logger *logrus.Entry
}

// HTTPLoader loads pages over HTTP and resolves same-origin iframe documents.
type HTTPLoader struct {
	client    *http.Client
	userAgent string
	logger    *logrus.Entry
}

// NewHTTPLoader creates an HTTPLoader.
func NewHTTPLoader(cfg HTTPLoaderConfig) *HTTPLoader {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &HTTPLoader{client: cfg.Client, userAgent: cfg.UserAgent, logger: cfg.Logger}
}

// Load fetches the page, then fetches each same-origin iframe. Cross-origin frames
// and frames that fail to load are recorded as inaccessible.
func (l *HTTPLoader) Load(ctx context.Context, location string) (*Page, error) {
	html, err := l.get(ctx, location)
	if err != nil {
		return nil, err
	}

	sources, err := IframeSources(html, location)
	if err != nil {
		return nil, &Error{URL: location, Message: "failed to parse page", Cause: err}
	}

	p := &Page{URL: location, HTML: html}
	for i, src := range sources {
		frame := Frame{Src: src}
		if src != "" && SameOrigin(location, src) {
			frameHTML, err := l.get(ctx, src)
			if err != nil {
				l.logger.WithFields(logrus.Fields{"frame": i, "src": src, "err": err}).Debug("iframe not accessible")
			} else {
				frame.HTML = frameHTML
				frame.Accessible = true
			}
		}
		p.Frames = append(p.Frames, frame)
	}

	l.logger.WithFields(logrus.Fields{"url": location, "bytes": len(html), "frames": len(p.Frames)}).Debug("page loaded")
	return p, nil
}

func (l *HTTPLoader) get(ctx context.Context, urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	return string(body), nil
}
