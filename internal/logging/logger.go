package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the standard logrus logger.
// In production (env == "production") it emits JSON for log aggregation,
// otherwise human-readable text.  An unknown level falls back to info.
func Init(env, level string) {
	logrus.SetOutput(os.Stdout)
	if strings.EqualFold(env, "production") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// WithSession returns an entry scoped to one intake session.
func WithSession(sessionID string) *logrus.Entry {
	return logrus.WithField("session_id", sessionID)
}
