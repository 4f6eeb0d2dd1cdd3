// Package render produces the HTML report for a SearchResultSet.
package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jonathan/resume-evaluator/internal/types"
)

// Filter selects which results a report shows.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterMatch   Filter = "match"
	FilterNoMatch Filter = "no-match"
)

// ParseFilter accepts all, match or no-match. The empty string means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterMatch, FilterNoMatch:
		return Filter(s), nil
	default:
		return "", fmt.Errorf("invalid filter %q: must be all, match or no-match", s)
	}
}

func (f Filter) keep(r types.FormattedResult) bool {
	switch f {
	case FilterMatch:
		return r.IsMatch
	case FilterNoMatch:
		return !r.IsMatch
	default:
		return true
	}
}

// Options tunes report rendering.
type Options struct {
	Filter Filter

	// Location is used to display the run timestamp. Defaults to UTC.
	Location *time.Location

	// BasePath prefixes the filter links, e.g. "/results/latest?format=html".
	BasePath string
}

type card struct {
	ID          string
	Filename    string
	IsMatch     bool
	Snippet     template.HTML
	Explanation template.HTML
}

type filterLink struct {
	Label  string
	Href   string
	Active bool
}

type report struct {
	Found        bool
	Query        string
	TotalMatches int
	Timestamp    string
	Filters      []filterLink
	Cards        []card
	Message      string
}

var policy = bluemonday.UGCPolicy()

// HTML writes the report for set. A nil set renders the "could not retrieve" page.
func HTML(w io.Writer, set *types.SearchResultSet, opts Options) error {
	if opts.Filter == "" {
		opts.Filter = FilterAll
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	data := report{}
	if set == nil {
		data.Message = "Could not retrieve search results. Please try your search again."
		return reportTemplate.Execute(w, data)
	}

	data.Found = true
	data.Query = set.Query
	data.TotalMatches = set.TotalMatches
	data.Timestamp = displayTime(set.Timestamp, opts.Location)
	data.Filters = filterLinks(opts)

	if len(set.Results) == 0 {
		data.Message = fmt.Sprintf("No matches found for %q. Try a different search term.", set.Query)
	}

	for _, r := range set.Results {
		if !opts.Filter.keep(r) {
			continue
		}
		snippet := r.Snippet
		if snippet == "" {
			snippet = "No preview available"
		}
		filename := r.Filename
		if filename == "" {
			filename = "Untitled Resume"
		}
		data.Cards = append(data.Cards, card{
			ID:       r.ID,
			Filename: filename,
			IsMatch:  r.IsMatch,
			// Sanitized before highlighting so only the highlight spans are added.
			Snippet:     template.HTML(Highlight(policy.Sanitize(snippet), set.Query)),
			Explanation: template.HTML(policy.Sanitize(r.Explanation)),
		})
	}

	return reportTemplate.Execute(w, data)
}

func displayTime(ts string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.In(loc).Format("Jan 2, 2006 3:04:05 PM MST")
}

func filterLinks(opts Options) []filterLink {
	sep := "?"
	if strings.Contains(opts.BasePath, "?") {
		sep = "&"
	}
	var links []filterLink
	for _, f := range []struct {
		label  string
		filter Filter
	}{{"All", FilterAll}, {"Matches", FilterMatch}, {"Non-matches", FilterNoMatch}} {
		links = append(links, filterLink{
			Label:  f.label,
			Href:   opts.BasePath + sep + "filter=" + string(f.filter),
			Active: opts.Filter == f.filter,
		})
	}
	return links
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{if .Found}}Search Results: {{.Query}}{{else}}Search Results{{end}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.result-card { border: 1px solid #ddd; border-radius: 6px; padding: 1em; margin-bottom: 1em; }
.result-card.match { border-left: 4px solid #2ecc71; }
.result-card.no-match { border-left: 4px solid #e74c3c; }
.match-badge { font-size: 0.8em; padding: 2px 6px; border-radius: 4px; margin-left: 0.5em; }
.match-badge.yes { background: #2ecc71; color: #fff; }
.match-badge.no { background: #e74c3c; color: #fff; }
.highlight { background: #fff3a0; }
.filter-btn { margin-right: 1em; }
.filter-btn.active { font-weight: bold; }
.result-footer { color: #777; font-size: 0.9em; }
</style>
</head>
<body>
{{if .Found}}
<h1 id="query-info">Query: "{{.Query}}" - {{.TotalMatches}} matches found</h1>
<p id="timestamp">Search performed: {{.Timestamp}}</p>
<nav>{{range .Filters}}<a class="filter-btn{{if .Active}} active{{end}}" href="{{.Href}}">{{.Label}}</a>{{end}}</nav>
{{else}}
<h1 id="query-info">No results available</h1>
{{end}}
<div id="results-container">
{{if .Message}}<div class="no-results"><p>{{.Message}}</p></div>{{end}}
{{range .Cards}}
<div class="result-card {{if .IsMatch}}match{{else}}no-match{{end}}" data-match="{{.IsMatch}}">
<div class="result-title">{{.Filename}} <span class="match-badge {{if .IsMatch}}yes{{else}}no{{end}}">{{if .IsMatch}}Match{{else}}No Match{{end}}</span></div>
<div class="result-snippet">{{.Snippet}}</div>
<details class="result-explanation"><summary>Show full explanation</summary>{{.Explanation}}</details>
<div class="result-footer">ID: {{.ID}}</div>
</div>
{{end}}
</div>
</body>
</html>
`))
