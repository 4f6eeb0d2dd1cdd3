package results

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// shortExplanation is the length below which an explanation is used verbatim.
	shortExplanation = 300
	truncateLength   = 250
)

var (
	reasonSentence = regexp.MustCompile(`(?i)[^.!?]*(?:because|since|reason|qualified|experience|skill)[^.!?]*[.!?]`)
	sentence       = regexp.MustCompile(`[^.!?]*[.!?]`)
)

// ExtractSnippet shortens an explanation for display. Explanations under 300
// characters are returned as is. Longer ones yield their first two sentences that
// give a reason, else the first three sentences, else the first 250 characters
// followed by "...".
func ExtractSnippet(explanation string) string {
	if utf8.RuneCountInString(explanation) < shortExplanation {
		return explanation
	}

	if found := reasonSentence.FindAllString(explanation, 2); len(found) > 0 {
		return joinTrimmed(found)
	}

	if found := sentence.FindAllString(explanation, 3); len(found) > 0 {
		return joinTrimmed(found)
	}

	return string([]rune(explanation)[:truncateLength]) + "..."
}

func joinTrimmed(parts []string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return strings.Join(out, " ")
}
