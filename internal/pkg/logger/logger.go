// internal/pkg/logger/logger.go
package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/config"
)

// New builds the application logger from the logging config
func New(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	// Set log format based on config
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(discard{})
	return logger
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
