// Package logging builds the logrus logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"courierdash/internal/config"
	"courierdash/internal/metrics"
)

// New builds a logger from cfg. Output goes to cfg.File when set, otherwise
// to fallback; the TUI passes io.Discard so nothing lands on the alt screen.
// The returned close func releases the log file.
func New(cfg config.LogConfig, fallback io.Writer) (*logrus.Logger, func() error, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	l := logrus.New()
	l.SetLevel(level)

	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: cfg.File != ""})
	}

	closer := func() error { return nil }
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		l.SetOutput(f)
		closer = f.Close
	case fallback != nil:
		l.SetOutput(fallback)
	default:
		l.SetOutput(os.Stderr)
	}
	return l, closer, nil
}

// FieldReporter logs reconciler field issues at debug level.
func FieldReporter(l logrus.FieldLogger) metrics.Reporter {
	return func(issue metrics.FieldIssue) {
		l.WithFields(logrus.Fields{
			"path": issue.Path,
			"want": issue.Want,
			"got":  issue.Got,
		}).Debug("metrics field ignored")
	}
}
