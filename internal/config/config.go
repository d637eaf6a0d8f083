// Package config holds hupmon's runtime configuration in a conventional
// shape: a plain struct, a
// DefaultConfig constructor, and a NewLogger method that wires up
// structured logging the same way everywhere in the codebase.
package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Mode selects which of hupmon's three operating modes the command runs
// in (spec.md §6's -1/-f/-h options).
type Mode int

const (
	// HangupDetection mediates flow control and probes for liveness,
	// sending a hangup signal to the child when the terminal goes
	// offline. The default mode.
	HangupDetection Mode = iota
	// FlowControlOnly mediates flow control only; hangup detection is
	// disabled (an infinite activity timeout).
	FlowControlOnly
	// OneShot probes once, prints the device status, and exits without
	// spawning a child.
	OneShot
)

// Config holds the fully parsed, validated configuration for a run of
// hupmon.
type Config struct {
	Mode Mode

	// ActivityTimeoutSeconds is the configured inactivity window before
	// a liveness probe runs. Negative disables hangup detection.
	ActivityTimeoutSeconds float64

	// ProbeDeadlineSeconds is how long the prober waits for a CPR reply.
	ProbeDeadlineSeconds float64

	// Argv is the command and arguments to run behind the PTY. Empty in
	// OneShot mode.
	Argv []string

	LogLevel logrus.Level
}

// Default activity timeout, probe deadline, and log level match
// spec.md §6's documented defaults.
const (
	DefaultActivityTimeoutSeconds = 10.0
	DefaultProbeDeadlineSeconds   = 0.200
	MinActivityTimeoutSeconds     = 1.0
	MinProbeDeadlineSeconds       = 0.01
)

// DefaultConfig returns the configuration hupmon runs with when no flags
// override it: hangup-detection mode, a 10 second activity timeout, and
// a 0.2 second probe deadline.
func DefaultConfig() *Config {
	return &Config{
		Mode:                   HangupDetection,
		ActivityTimeoutSeconds: DefaultActivityTimeoutSeconds,
		ProbeDeadlineSeconds:   DefaultProbeDeadlineSeconds,
		LogLevel:               logrus.ErrorLevel,
	}
}

// NewLogger creates a logger configured the way every hupmon component
// expects: text formatting with full RFC3339 timestamps, at the
// configured verbosity.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger
}
