// Package utils provides shared helpers for the floodwatch server
package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the application logger. Output is JSON when jsonFormat is
// set (for log shippers) and human-readable text otherwise.
func NewLogger(level string, jsonFormat bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if jsonFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.ErrorLevel
	}
	logger.SetLevel(lvl)

	return logger
}
