package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the root logger. Format is "text" or "json"; unknown levels
// fall back to info.
func New(w io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	return log
}

// Printf adapts a logger to the func(format, args...) progress callback used
// by the one-shot CLI.
func Printf(log logrus.FieldLogger) func(format string, args ...any) {
	return func(format string, args ...any) {
		log.Info(fmt.Sprintf(format, args...))
	}
}

// MaskSecret keeps the first and last four characters of a key.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
