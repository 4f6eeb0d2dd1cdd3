// Package types provides type definitions for structured data used throughout the resume-evaluator system.
package types

// LinkSource records where on a page a resume link was discovered.
type LinkSource string

const (
	// SourceAnchor is an <a href> in the top-level document
	SourceAnchor LinkSource = "anchor"
	// SourceIframe is an <iframe src> in the top-level document
	SourceIframe LinkSource = "iframe"
	// SourceIframeContent is an <a href> inside a same-origin iframe document
	SourceIframeContent LinkSource = "iframe-content"
)

// LinkRecord is a single resume link found on a page.
type LinkRecord struct {
	URL    string     `json:"url"`
	Text   string     `json:"text"`
	Source LinkSource `json:"source"`
}

// URLs returns the URL of every record, in order.
func URLs(records []LinkRecord) []string {
	urls := make([]string, len(records))
	for i, r := range records {
		urls[i] = r.URL
	}
	return urls
}
