// Package logger is the process-wide logging facade for gridDB, backed by
// logrus. The storage layer logs and swallows the block I/O errors of
// eviction write-back, flushes and deletes instead of propagating them, so
// the log is the only place those surface. Block read, WritePage and rename
// errors are returned to the caller.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		TimestampFormat:  "15:04:05",
		FullTimestamp:    true,
	})
	return l
}

// Init configures the level and an optional extra output file.
func Init(level string, logPath string) error {
	log.SetLevel(parseLevel(level))
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return nil
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetOutput redirects all log output (used by tests).
func SetOutput(w io.Writer) { log.SetOutput(w) }

// Debugf logs at debug level.
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }

// Infof logs at info level.
func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

// Warnf logs at warn level.
func Warnf(format string, args ...interface{}) { log.Warnf(format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
