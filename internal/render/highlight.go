package render

import (
	"regexp"
	"strings"
	"unicode/utf8"

	snowballeng "github.com/kljensen/snowball/english"
)

var (
	tagOrText = regexp.MustCompile(`<[^>]*>|&[#\w]+;|[^<&]+|[<&]`)
	wordToken = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

type term struct {
	word string
	stem string
}

// queryTerms returns the lowercased query words longer than two characters.
func queryTerms(query string) []term {
	var terms []term
	seen := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(query)) {
		for _, w := range wordToken.FindAllString(field, -1) {
			if utf8.RuneCountInString(w) <= 2 || seen[w] {
				continue
			}
			seen[w] = true
			terms = append(terms, term{word: w, stem: snowballeng.Stem(w, false)})
		}
	}
	return terms
}

func (t term) matches(token string) bool {
	lower := strings.ToLower(token)
	if strings.HasPrefix(lower, t.word) {
		return true
	}
	return snowballeng.Stem(lower, false) == t.stem
}

// Highlight wraps words of sanitized HTML that match a query term in
// <span class="highlight">. A word matches when it starts with the term or shares
// its English stem. Tags and character references are left untouched.
func Highlight(html, query string) string {
	terms := queryTerms(query)
	if len(terms) == 0 || html == "" {
		return html
	}

	var sb strings.Builder
	for _, part := range tagOrText.FindAllString(html, -1) {
		if strings.HasPrefix(part, "<") || strings.HasPrefix(part, "&") {
			sb.WriteString(part)
			continue
		}
		sb.WriteString(wordToken.ReplaceAllStringFunc(part, func(token string) string {
			for _, t := range terms {
				if t.matches(token) {
					return `<span class="highlight">` + token + `</span>`
				}
			}
			return token
		}))
	}
	return sb.String()
}
