// Package rawmode brackets a TTY file descriptor in raw mode with an
// explicit choice of how pending I/O is handled on entry and restore
// (drain, flush, or apply immediately) — the one thing golang.org/x/term's
// MakeRaw/Restore pair does not expose, and which this supervisor's
// invariants depend on: the CPR prober must flush on entry and drain on
// restore, while the Mediator's outer bracket flushes on both ends.
package rawmode

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// When controls the TCSADRAIN/TCSAFLUSH/TCSANOW choice made when attributes
// are applied, matching POSIX tcsetattr(3) semantics.
type When int

const (
	// Now applies changes immediately, discarding nothing.
	Now When = unix.TCSETS
	// Drain waits for all queued output to be transmitted first.
	Drain When = unix.TCSETSW
	// Flush waits for queued output to drain, then discards unread input.
	Flush When = unix.TCSETSF
)

// Snapshot is a captured termios state, restorable with Restore.
type Snapshot struct {
	termios unix.Termios
}

// Get captures the current termios state of fd without modifying it.
func Get(fd int) (*Snapshot, error) {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("rawmode: tcgetattr: %w", err)
	}
	return &Snapshot{termios: *t}, nil
}

// Termios returns a copy of the captured attributes, e.g. to hand to a
// child PTY so it observes the terminal's pre-supervision settings.
func (s *Snapshot) Termios() unix.Termios {
	return s.termios
}

// Restore re-applies a previously captured snapshot to fd.
func Restore(fd int, snap *Snapshot, when When) error {
	t := snap.termios
	if err := unix.IoctlSetTermios(fd, uint(when), &t); err != nil {
		return fmt.Errorf("rawmode: tcsetattr: %w", err)
	}
	return nil
}

// EnterRaw captures fd's current attributes, derives the raw-mode
// equivalent (no line editing, no echo, no signal generation — the same
// transformation golang.org/x/term.MakeRaw performs) and applies it using
// the requested When semantics. On any failure the original attributes are
// left untouched and a nil snapshot is returned.
func EnterRaw(fd int, when When) (*Snapshot, error) {
	snap, err := Get(fd)
	if err != nil {
		return nil, err
	}

	raw := snap.termios
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, uint(when), &raw); err != nil {
		return nil, fmt.Errorf("rawmode: enter raw mode: %w", err)
	}

	return snap, nil
}

// FlushBoth discards both unread input and unwritten output queued on fd
// (TCIOFLUSH), used by the Mediator's teardown to avoid delivering stale
// bytes after attributes are restored.
func FlushBoth(fd int) error {
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		return fmt.Errorf("rawmode: tcflush: %w", err)
	}
	return nil
}
