// Package logger holds the process-wide logrus logger.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is an alias so callers do not need to import logrus.
type Fields = logrus.Fields

var (
	log  *logrus.Logger
	once sync.Once
)

func initLogger() {
	once.Do(func() {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.InfoLevel)
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	})
}

// GetLogger returns the shared logger.
func GetLogger() *logrus.Logger {
	initLogger()
	return log
}

// Configure sets level ("debug", "info", ...) and format ("text" or "json").
// Empty values keep the current setting.
func Configure(level, format string) error {
	l := GetLogger()
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		l.SetLevel(lvl)
	}
	switch strings.ToLower(format) {
	case "":
	case "text":
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("log format %q: want text or json", format)
	}
	return nil
}
