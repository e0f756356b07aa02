// Package logging provides the one logrus setup shared by the writer,
// dispatcher, and command-line entrypoints, so every component logs with
// the same field conventions and level policy instead of each wiring its
// own logger.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger configured from the LOG_LEVEL and LOG_FORMAT
// environment variables (default "info" and "text"). component is
// attached to every entry so multi-package log output stays attributable.
func New(component string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(strings.ToLower(envOr("LOG_LEVEL", "info")))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(envOr("LOG_FORMAT", "text"), "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log.WithField("component", component)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
