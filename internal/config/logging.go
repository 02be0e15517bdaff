package config

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// NewLogger builds a logrus logger from the logging configuration. Unknown
// levels fall back to info rather than failing; Validate has already rejected
// anything truly malformed.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
