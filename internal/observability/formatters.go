// Package observability provides logger construction and formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-evaluator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

var stateMarks = map[types.StatusState]string{
	types.StatusPending:  "…",
	types.StatusSuccess:  "✓",
	types.StatusError:    "✗",
	types.StatusComplete: "■",
}

// PrintStatus writes one progress line: [index/total] mark message.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStatus(e types.StatusEvent) {
	fmt.Fprintf(p.out, "[%d/%d] %s %s\n", e.Index, e.Total, stateMarks[e.State], e.Message)
}

// PrintNotice writes a single user-facing notice line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintNotice(msg string) {
	fmt.Fprintln(p.out, msg)
}

// PrintLinks lists the unique resume links found on the page.
func (p *Printer) PrintLinks(links []types.LinkRecord) {
	if len(links) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d unique resume links:\n\n", len(links)))

	count := min(len(links), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("• %s [%s]\n", links[i].Text, links[i].Source))
	}
	if len(links) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(links)-maxItemsToShow))
	}

	p.printBox("RESUME LINKS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResultSet outputs the match summary followed by every result.
func (p *Printer) PrintResultSet(set *types.SearchResultSet) {
	if set == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Query:    %s\n", set.Query))
	sb.WriteString(fmt.Sprintf("Run at:   %s\n", set.Timestamp))
	sb.WriteString(fmt.Sprintf("Matches:  %d of %d\n", set.TotalMatches, len(set.Results)))

	if len(set.Results) == 0 {
		sb.WriteString("\nNo matches found")
	}
	for _, r := range set.Results {
		mark := "✗"
		if r.IsMatch {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("\n%s %s\n", mark, r.Filename))
		if r.Snippet != "" && !r.LinkedInProfile {
			sb.WriteString(fmt.Sprintf("    %s\n", r.Snippet))
		} else if r.Explanation != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", r.Explanation))
		}
	}

	p.printBox("SEARCH RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}
