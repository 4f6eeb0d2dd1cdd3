package links

import (
	"github.com/jonathan/resume-evaluator/internal/types"
)

// Deduplicate returns records with repeated URLs removed, keeping the first occurrence
// of each URL in its original position.
func Deduplicate(records []types.LinkRecord) []types.LinkRecord {
	seen := make(map[string]bool, len(records))
	unique := make([]types.LinkRecord, 0, len(records))
	for _, r := range records {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		unique = append(unique, r)
	}
	return unique
}
