package main

import (
	"testing"

	"github.com/ericpruitt/hupmon/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestToConfigDefaultsToHangupDetection(t *testing.T) {
	f := flags{probeDeadline: 0.2, activityTimeout: 10}
	cfg, argv, err := f.toConfig([]string{"sh", "-c", "true"})
	require.NoError(t, err)
	require.Equal(t, config.HangupDetection, cfg.Mode)
	require.Equal(t, []string{"sh", "-c", "true"}, argv)
}

func TestToConfigMissingCommandIsUsageError(t *testing.T) {
	f := flags{probeDeadline: 0.2, activityTimeout: 10}
	_, _, err := f.toConfig(nil)
	require.ErrorIs(t, err, ErrMissingCommand)
}

func TestToConfigOneShotForbidsCommand(t *testing.T) {
	f := flags{oneShot: true, probeDeadline: 0.2, activityTimeout: 10}
	_, _, err := f.toConfig([]string{"sh"})
	require.ErrorIs(t, err, ErrOneShotForbidsCommand)
}

func TestToConfigOneShotAllowsNoCommand(t *testing.T) {
	f := flags{oneShot: true, probeDeadline: 0.2, activityTimeout: 10}
	cfg, argv, err := f.toConfig(nil)
	require.NoError(t, err)
	require.Equal(t, config.OneShot, cfg.Mode)
	require.Nil(t, argv)
}

func TestToConfigFlowOnlyDisablesTimeout(t *testing.T) {
	f := flags{flowOnly: true, probeDeadline: 0.2, activityTimeout: 10}
	cfg, _, err := f.toConfig([]string{"sh"})
	require.NoError(t, err)
	require.Equal(t, config.FlowControlOnly, cfg.Mode)
	require.Less(t, cfg.ActivityTimeoutSeconds, 0.0)
}

func TestToConfigRejectsTinyProbeDeadline(t *testing.T) {
	f := flags{probeDeadline: 0.001, activityTimeout: 10}
	_, _, err := f.toConfig([]string{"sh"})
	require.ErrorIs(t, err, ErrInvalidProbeDeadline)
}

func TestToConfigRejectsSubOneSecondTimeout(t *testing.T) {
	f := flags{probeDeadline: 0.2, activityTimeout: 0.5}
	_, _, err := f.toConfig([]string{"sh"})
	require.ErrorIs(t, err, ErrInvalidActivityTimeout)
}

func TestToConfigRejectsInvalidLogLevel(t *testing.T) {
	f := flags{probeDeadline: 0.2, activityTimeout: 10, logLevel: "verbose"}
	_, _, err := f.toConfig([]string{"sh"})
	require.ErrorIs(t, err, ErrInvalidLogLevel)
}

func TestResolveLogLevelPrefersExplicitOverDebug(t *testing.T) {
	level, err := resolveLogLevel("warn", true)
	require.NoError(t, err)
	require.Equal(t, logrus.WarnLevel, level)
}

func TestResolveLogLevelDebugShorthand(t *testing.T) {
	level, err := resolveLogLevel("", true)
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, level)
}
