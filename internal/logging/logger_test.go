package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	defer logrus.SetFormatter(&logrus.TextFormatter{})
	defer logrus.SetLevel(logrus.InfoLevel)

	Init("production", "debug")
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	Init("development", "nonsense")
	_, isText := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestWithSession(t *testing.T) {
	entry := WithSession("abc")
	assert.Equal(t, "abc", entry.Data["session_id"])
}
