// Package log implements the repository's logging facade on logrus,
// with a pattern formatter and a multi-appender writer chain.
package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.Mutex
	logger Logger
)

func init() {
	// Console fallback so early callers always have a logger.
	logger = newLogrusLogger(DefaultConfig(), os.Stdout)
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Init replaces the process-wide logger from configuration. Call once
// during bootstrap before the workers start.
func Init(cfg *LoggerConfig) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultConfig().Pattern
	}
	if cfg.Time == "" {
		cfg.Time = DefaultConfig().Time
	}
	if _, err := parseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log init: %w", err)
	}

	writer := NewMultiWriter()
	if len(cfg.Appenders) == 0 {
		writer.AddConsoleAppender()
	}
	for _, ap := range cfg.Appenders {
		switch ap.Type {
		case "console":
			writer.AddConsoleAppender()
		case "file":
			if ap.File.Filename == "" {
				return fmt.Errorf("log init: file appender requires a filename")
			}
			writer.AddFileAppender(ap.File)
		default:
			return fmt.Errorf("log init: unknown appender type %q", ap.Type)
		}
	}

	l := newLogrusLogger(cfg, writer)

	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func parseLevel(s string) (logrus.Level, error) {
	if s == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
