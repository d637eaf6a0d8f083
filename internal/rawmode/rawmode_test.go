package rawmode_test

import (
	"testing"

	"github.com/creack/pty"
	"github.com/ericpruitt/hupmon/internal/rawmode"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEnterRawAndRestore(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	fd := int(slave.Fd())

	before, err := rawmode.Get(fd)
	require.NoError(t, err)

	snap, err := rawmode.EnterRaw(fd, rawmode.Flush)
	require.NoError(t, err)
	require.NotNil(t, snap)

	raw, err := rawmode.Get(fd)
	require.NoError(t, err)
	require.Zero(t, raw.Termios().Lflag&unix.ICANON, "ICANON should be cleared in raw mode")
	require.Zero(t, raw.Termios().Lflag&unix.ECHO, "ECHO should be cleared in raw mode")

	require.NoError(t, rawmode.Restore(fd, snap, rawmode.Drain))

	after, err := rawmode.Get(fd)
	require.NoError(t, err)
	require.Equal(t, before.Termios().Lflag, after.Termios().Lflag)
	require.Equal(t, before.Termios().Iflag, after.Termios().Iflag)
}

func TestFlushBothDoesNotError(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	require.NoError(t, rawmode.FlushBoth(int(slave.Fd())))
}
