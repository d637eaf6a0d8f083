package main

import (
	"fmt"
	"io"

	"github.com/ericpruitt/hupmon/internal/config"
	"github.com/ericpruitt/hupmon/internal/prober"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// runOneShot implements -1: probe the TTY exactly once and print the
// resulting device status, colorized the way a human operator benefits
// from at a glance.
func runOneShot(w io.Writer, ttyFd int, cfg *config.Config, logger *logrus.Logger) (int, error) {
	reply := make([]byte, prober.MinReplyBufferSize)
	state, _, err := prober.Probe(ttyFd, reply, cfg.ProbeDeadlineSeconds, logger)
	if err != nil {
		return 1, fmt.Errorf("probe failed: %w", err)
	}

	fmt.Fprintln(w, colorizeState(state))
	return 0, nil
}

func colorizeState(state prober.DeviceState) string {
	switch state {
	case prober.Online:
		return color.GreenString(state.String())
	case prober.Offline:
		return color.RedString(state.String())
	default:
		return color.YellowString(state.String())
	}
}
