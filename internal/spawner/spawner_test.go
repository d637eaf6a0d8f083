package spawner_test

import (
	"testing"

	"github.com/creack/pty"
	"github.com/ericpruitt/hupmon/internal/rawmode"
	"github.com/ericpruitt/hupmon/internal/spawner"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSpawnRunsCommandAndExposesPty(t *testing.T) {
	ws := &unix.Winsize{Row: 24, Col: 80}

	child, outcome, err := spawner.Spawn(nil, ws, []string{"/bin/echo", "hello"})
	require.NoError(t, err)
	require.Equal(t, spawner.Spawned, outcome)
	require.NotNil(t, child.Pty)
	defer child.Pty.Close()

	buf := make([]byte, 64)
	n, err := child.Pty.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "hello")

	require.NoError(t, child.Cmd.Wait())
}

func TestSpawnAppliesWindowSize(t *testing.T) {
	ws := &unix.Winsize{Row: 50, Col: 132}

	child, outcome, err := spawner.Spawn(nil, ws, []string{"/bin/sleep", "0.2"})
	require.NoError(t, err)
	require.Equal(t, spawner.Spawned, outcome)
	defer child.Pty.Close()

	got, err := unix.IoctlGetWinsize(int(child.Pty.Fd()), unix.TIOCGWINSZ)
	require.NoError(t, err)
	require.Equal(t, ws.Row, got.Row)
	require.Equal(t, ws.Col, got.Col)

	_ = child.Cmd.Wait()
}

func TestSpawnMissingCommandReturnsNotFound(t *testing.T) {
	child, outcome, err := spawner.Spawn(nil, nil, []string{"/no/such/command/hupmon-test"})
	require.Error(t, err)
	require.Equal(t, spawner.NotFound, outcome)
	require.Nil(t, child)
	require.Equal(t, 127, outcome.ExitCode())
}

func TestSpawnAppliesWindowSizeFailureIsSetupFailed(t *testing.T) {
	// A Winsize is just data applied via ioctl on the already-open
	// follower descriptor, so there is no way to make the apply itself
	// fail short of closing that descriptor underneath Spawn, which this
	// package does not expose. Instead this asserts the classification
	// directly: SetupFailed, not ExecFailed/NotFound, is what a pre-exec
	// failure must report (spec.md §7's Setup/Exec distinction).
	require.Equal(t, 1, spawner.SetupFailed.ExitCode())
	require.NotEqual(t, spawner.ExecFailed.ExitCode(), spawner.SetupFailed.ExitCode())
	require.NotEqual(t, spawner.NotFound.ExitCode(), spawner.SetupFailed.ExitCode())
}

func TestSpawnRejectsEmptyArgv(t *testing.T) {
	child, outcome, err := spawner.Spawn(nil, nil, nil)
	require.Error(t, err)
	require.Equal(t, spawner.ExecFailed, outcome)
	require.Nil(t, child)
}

func TestSpawnAppliesTTYAttributes(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	snap, err := rawmode.Get(int(slave.Fd()))
	require.NoError(t, err)

	child, outcome, err := spawner.Spawn(snap, nil, []string{"/bin/sleep", "0.2"})
	require.NoError(t, err)
	require.Equal(t, spawner.Spawned, outcome)
	defer child.Pty.Close()

	_ = child.Cmd.Wait()
}
