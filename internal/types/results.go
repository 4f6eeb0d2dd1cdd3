package types

import (
	"github.com/go-playground/validator/v10"
)

// VerdictRaw is one (identifier, verdictFlag, explanation) tuple returned by the evaluation service.
// Flag keeps the decoded JSON value (string, bool, number or nil).
type VerdictRaw struct {
	ID          string `json:"id"`
	Flag        any    `json:"flag"`
	Explanation string `json:"explanation"`
}

// FormattedResult is a display-ready verdict for a single document.
type FormattedResult struct {
	ID              string `json:"id"`
	Filename        string `json:"filename"`
	IsMatch         bool   `json:"isMatch"`
	Explanation     string `json:"explanation"`
	Snippet         string `json:"snippet"`
	Score           int    `json:"score" validate:"oneof=0 1"`
	LinkedInProfile bool   `json:"linkedinProfile,omitempty"`
}

// SearchResultSet is the artifact handed to the render surface after a submission.
type SearchResultSet struct {
	Query        string            `json:"query"`
	Timestamp    string            `json:"timestamp" validate:"required"`
	TotalMatches int               `json:"totalMatches" validate:"gte=0"`
	Results      []FormattedResult `json:"results" validate:"dive"`
}

// Validate validates the SearchResultSet using the validator.
func (s *SearchResultSet) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// Matches returns only the matching results.
func (s *SearchResultSet) Matches() []FormattedResult {
	out := make([]FormattedResult, 0, s.TotalMatches)
	for _, r := range s.Results {
		if r.IsMatch {
			out = append(out, r)
		}
	}
	return out
}
