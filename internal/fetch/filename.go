package fetch

import (
	"regexp"
	"strings"
	"time"
)

var (
	nonAlnum    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscores = regexp.MustCompile(`_+`)
)

const maxNameLength = 30

// GenerateFilename builds resume_<sanitized text>_<YYYYMMDDHHMMSS>.pdf using the UTC
// time of t.
func GenerateFilename(text string, t time.Time) string {
	name := nonAlnum.ReplaceAllString(text, "_")
	name = underscores.ReplaceAllString(name, "_")
	name = strings.ToLower(name)
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return "resume_" + name + "_" + t.UTC().Format("20060102150405") + ".pdf"
}
