// Package page loads recruiting application pages, together with their iframe
// documents, so that resume links can be scanned without further network I/O.
package page

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Frame is the state of one <iframe> element of a page.
// Accessible is true only when the frame document could be read (same origin, loaded).
type Frame struct {
	Src        string
	HTML       string
	Accessible bool
}

// Page is a loaded document plus one Frame per <iframe>, in document order.
type Page struct {
	URL    string
	HTML   string
	Frames []Frame
}

// Loader loads a page from a location (URL or path, depending on the implementation).
type Loader interface {
	Load(ctx context.Context, location string) (*Page, error)
}

// Error represents an error during page loading.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("page load error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("page load error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRemote reports whether location is an http(s) URL rather than a file path.
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Resolve resolves ref against base the way a browser fills element.href.
// Empty refs and unparsable values resolve to "".
func Resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

// SameOrigin reports whether two URLs share scheme and host (including port).
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}

// IframeSources returns the resolved src of every <iframe> in html, in document order.
func IframeSources(html string, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	base, _ := url.Parse(baseURL)

	var sources []string
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		sources = append(sources, Resolve(base, src))
	})
	return sources, nil
}

// FileLoader loads a saved HTML page from disk. Frames are listed but never accessible,
// since a saved page carries no frame documents.
type FileLoader struct {
	// BaseURL is used to resolve relative links, standing in for the page's original address.
	BaseURL string
}

// Load reads the HTML file at path.
func (l FileLoader) Load(_ context.Context, path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{URL: path, Message: "failed to read page file", Cause: err}
	}

	html := string(data)
	sources, err := IframeSources(html, l.BaseURL)
	if err != nil {
		return nil, &Error{URL: path, Message: "failed to parse page file", Cause: err}
	}

	p := &Page{URL: l.BaseURL, HTML: html}
	for _, src := range sources {
		p.Frames = append(p.Frames, Frame{Src: src})
	}
	return p, nil
}
