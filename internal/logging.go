package internal

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var root = newRootLogger()

func newRootLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})
	return logger
}

// ConfigureLogging applies the level and format from cfg to the root logger.
func ConfigureLogging(cfg LogConfig) error {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return err
	}
	root.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		root.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// NewLogger returns a logger tagged with the given component.
func NewLogger(component string) *logrus.Entry {
	name := "reviewhooks"
	if component != "" {
		name = name + "/" + component
	}
	return root.WithField("component", name)
}

// WithRequestID returns a logger that tags entries with a request ID.
func WithRequestID(logger *logrus.Entry, requestID string) *logrus.Entry {
	if logger == nil {
		logger = NewLogger("")
	}
	if requestID == "" {
		return logger
	}
	return logger.WithField("request_id", requestID)
}
