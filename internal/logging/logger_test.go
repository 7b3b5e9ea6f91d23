package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLogger_Production(t *testing.T) {
	logger, err := NewLogger("production", "info")
	assert.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Development(t *testing.T) {
	logger, err := NewLogger("development", "debug")
	assert.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	logger, err := NewLogger("production", "not-a-level")
	assert.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestWith_ReturnsChildLogger(t *testing.T) {
	logger, err := NewLogger("development", "debug")
	assert.NoError(t, err)

	child := logger.With(zap.String("component", "dispatcher"))
	assert.NotNil(t, child)
	child.Info("child logger works")
}

func TestNoOpLogger_DoesNothing(t *testing.T) {
	logger := NewNoOpLogger()
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	assert.NoError(t, logger.Sync())
	assert.Equal(t, logger, logger.With(zap.String("k", "v")))
}
