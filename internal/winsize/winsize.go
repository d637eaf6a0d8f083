// Package winsize forwards the controlling TTY's window dimensions to a
// child's PTY whenever the terminal reports a resize (C4 in spec.md).
//
// The asynchronous half of this is a single-writer, single-reader flag:
// spec.md's design notes call for "a process-wide pending-flag...checked
// and cleared only by the Mediator at loop edges". Go's os/signal already
// delivers SIGWINCH through exactly that shape — a buffered, single-slot
// channel fed from outside the Go scheduler's normal goroutine model — so
// Forwarder uses a size-1 channel instead of reimplementing an atomic
// flag plus a raw sigaction handler.
package winsize

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Forwarder watches for window-change notifications on the controlling
// TTY and, when asked to Sync, propagates the current size to a child PTY
// and signals the child.
type Forwarder struct {
	notify chan os.Signal
	logger *logrus.Logger
}

// NewForwarder installs the window-change signal handler. Call Stop to
// restore the prior disposition.
func NewForwarder(logger *logrus.Logger) *Forwarder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGWINCH)
	return &Forwarder{notify: ch, logger: logger}
}

// Stop uninstalls the handler, returning the channel to an unused state.
func (f *Forwarder) Stop() {
	signal.Stop(f.notify)
}

// Pending reports whether a window-change notification has arrived since
// the last call, clearing it unconditionally so spurious repeats cannot
// cause spinning.
func (f *Forwarder) Pending() bool {
	select {
	case <-f.notify:
		return true
	default:
		return false
	}
}

// Get reads the current window size of fd.
func Get(fd int) (*unix.Winsize, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return nil, fmt.Errorf("winsize: get: %w", err)
	}
	return ws, nil
}

// Set applies ws to fd.
func Set(fd int, ws *unix.Winsize) error {
	if err := unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, ws); err != nil {
		return fmt.Errorf("winsize: set: %w", err)
	}
	return nil
}

// Sync reads ttyFd's current window size, applies it to childFd, and
// delivers SIGWINCH to childPid. Failures in either step are logged and
// swallowed — spec.md requires this to never abort the Mediator loop.
func (f *Forwarder) Sync(ttyFd, childFd int, childPid int) {
	ws, err := Get(ttyFd)
	if err != nil {
		f.logger.WithError(err).Debug("winsize: failed to read TTY window size")
		return
	}

	if err := Set(childFd, ws); err != nil {
		f.logger.WithError(err).Debug("winsize: failed to apply window size to child PTY")
		return
	}

	if err := unix.Kill(childPid, unix.SIGWINCH); err != nil {
		f.logger.WithError(err).Debug("winsize: failed to signal child")
	}
}
