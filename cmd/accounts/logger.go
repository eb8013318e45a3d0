package main

import (
	"os"

	accounts "github.com/goliatone/go-accounts"
	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus entry to accounts.Logger
type logrusLogger struct {
	entry *logrus.Entry
}

var _ accounts.Logger = logrusLogger{}

func (l logrusLogger) Debug(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l logrusLogger) Info(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l logrusLogger) Warn(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l logrusLogger) Error(format string, args ...any) { l.entry.Errorf(format, args...) }

func newLogger(level, format string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)

	return logger
}

func component(logger *logrus.Logger, name string) accounts.Logger {
	return logrusLogger{entry: logger.WithField("component", name)}
}
