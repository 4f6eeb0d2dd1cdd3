package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// AppName is attached to every log entry.
const AppName = "resume-evaluator"

// NewLogger builds the root log entry. level is a logrus level name; format is
// "text" or "json".
func NewLogger(out io.Writer, level, format string) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	root := logrus.New()
	root.SetOutput(out)
	root.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		root.SetFormatter(new(logrus.JSONFormatter))
	case "", "text":
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}

	host, _ := os.Hostname()
	return root.WithFields(logrus.Fields{
		"app":  AppName,
		"host": host,
	}), nil
}

// Discard returns an entry that drops everything.
func Discard() *logrus.Entry {
	return logrus.NewEntry(&logrus.Logger{Out: io.Discard})
}
