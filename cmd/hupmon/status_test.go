package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/creack/pty"
	"github.com/ericpruitt/hupmon/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRunOneShotPrintsOfflineWhenNoReply(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	cfg := config.DefaultConfig()
	cfg.ProbeDeadlineSeconds = 0.05

	var buf bytes.Buffer
	code, err := runOneShot(&buf, int(slave.Fd()), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Contains(t, buf.String(), "DEVICE_OFFLINE")
}

func TestRunOneShotPrintsOnlineOnValidReply(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	cfg := config.DefaultConfig()
	cfg.ProbeDeadlineSeconds = 0.3

	go func() {
		// Reply only once the CPR request arrives: input queued before
		// the probe enters raw mode is flushed.
		request := make([]byte, 4)
		if _, err := io.ReadFull(master, request); err != nil {
			return
		}
		_, _ = master.Write([]byte("\x1b[24;80R"))
	}()

	var buf bytes.Buffer
	code, err := runOneShot(&buf, int(slave.Fd()), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Contains(t, buf.String(), "DEVICE_ONLINE")
}
