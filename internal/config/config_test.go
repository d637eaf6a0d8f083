package config_test

import (
	"testing"

	"github.com/ericpruitt/hupmon/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := config.DefaultConfig()
	require.Equal(t, config.HangupDetection, c.Mode)
	require.Equal(t, config.DefaultActivityTimeoutSeconds, c.ActivityTimeoutSeconds)
	require.Equal(t, config.DefaultProbeDeadlineSeconds, c.ProbeDeadlineSeconds)
}

func TestNewLoggerUsesConfiguredLevel(t *testing.T) {
	c := config.DefaultConfig()
	c.LogLevel = logrus.DebugLevel
	logger := c.NewLogger()
	require.Equal(t, logrus.DebugLevel, logger.GetLevel())
}
