// Package results turns raw evaluation verdicts into a display-ready SearchResultSet.
package results

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/resume-evaluator/internal/types"
)

// TimestampLayout is the ISO-8601 UTC layout with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t in TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// IsMatch reports whether a verdict flag means a positive match: boolean true or a
// string equal to "yes" ignoring case.
func IsMatch(flag any) bool {
	switch v := flag.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "yes")
	default:
		return false
	}
}

// Format builds the result set for one submission. Each verdict is joined to a
// document by index when its identifier is an integer in range, otherwise to the
// first document whose filename contains the identifier.
func Format(query string, verdicts []types.VerdictRaw, docs []types.FetchedDocument, now time.Time) types.SearchResultSet {
	set := types.SearchResultSet{
		Query:     query,
		Timestamp: Timestamp(now),
		Results:   make([]types.FormattedResult, 0, len(verdicts)),
	}

	for _, v := range verdicts {
		match := IsMatch(v.Flag)
		score := 0
		if match {
			score = 1
		}

		filename := fmt.Sprintf("Resume %s", v.ID)
		if doc, ok := correlate(v.ID, docs); ok {
			filename = doc.Filename
		}

		set.Results = append(set.Results, types.FormattedResult{
			ID:          v.ID,
			Filename:    filename,
			IsMatch:     match,
			Explanation: v.Explanation,
			Snippet:     ExtractSnippet(v.Explanation),
			Score:       score,
		})
	}

	set.TotalMatches = CountMatches(set.Results)
	return set
}

// CountMatches returns the number of matching results.
func CountMatches(results []types.FormattedResult) int {
	n := 0
	for _, r := range results {
		if r.IsMatch {
			n++
		}
	}
	return n
}

func correlate(id string, docs []types.FetchedDocument) (types.FetchedDocument, bool) {
	if idx, err := strconv.Atoi(strings.TrimSpace(id)); err == nil && idx >= 0 && idx < len(docs) {
		return docs[idx], true
	}
	if id == "" {
		return types.FetchedDocument{}, false
	}
	for _, d := range docs {
		if strings.Contains(d.Filename, id) {
			return d, true
		}
	}
	return types.FetchedDocument{}, false
}
