// Package mediator implements the supervisor's core event loop (C6 in
// spec.md): it brackets the controlling TTY in raw mode, spawns the user's
// command behind a PTY, and then simultaneously forwards bytes in both
// directions, gates writes on flow-control state, probes for liveness on
// inactivity, forwards window-change notifications, and tears everything
// down in reverse order on exit.
//
// The loop is deliberately synchronous and single-threaded, unlike a
// goroutine-and-ring-buffer design: spec.md requires a
// single cooperative worker with no shared memory across threads, so this
// package polls two descriptors directly with golang.org/x/sys/unix rather
// than fanning reads out across background goroutines.
package mediator

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/ericpruitt/hupmon/internal/clock"
	"github.com/ericpruitt/hupmon/internal/flowcontrol"
	"github.com/ericpruitt/hupmon/internal/prober"
	"github.com/ericpruitt/hupmon/internal/rawmode"
	"github.com/ericpruitt/hupmon/internal/spawner"
	"github.com/ericpruitt/hupmon/internal/winsize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Config carries the Mediator's tunables; validation (minimums, defaults)
// is the caller's responsibility.
type Config struct {
	// ActivityTimeoutSeconds gates how long the TTY may stay silent
	// before a liveness probe runs. Negative disables hangup detection
	// entirely (flow-control-only mode).
	ActivityTimeoutSeconds float64
	// ProbeDeadlineSeconds bounds how long the prober waits for a CPR
	// reply once a probe is sent.
	ProbeDeadlineSeconds float64
	// Argv is the command to run behind the PTY, argv[0] included.
	Argv []string
}

const readBufferSize = 4096

// unreachableExitCode is reported when the child cannot be reaped at all;
// hupmon.c's wait() failure path labels this condition "unreachable" but
// still needs a process exit status.
const unreachableExitCode = -1

// Run brackets ttyFd in raw mode, spawns cfg.Argv behind a PTY, mediates
// I/O between them until the child exits or an unrecoverable error occurs,
// and restores every piece of external state it touched. The returned
// exitCode is always the process's final exit status; err, when non-nil,
// is the first failure encountered (for diagnostic logging only — it does
// not override exitCode, per spec.md's teardown error-preservation policy).
func Run(ttyFd int, cfg Config, logger *logrus.Logger) (exitCode int, err error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	forwarder := winsize.NewForwarder(logger)
	defer forwarder.Stop()

	ws, err := winsize.Get(ttyFd)
	if err != nil {
		return 1, fmt.Errorf("mediator: read window size: %w", err)
	}

	origSnap, err := rawmode.EnterRaw(ttyFd, rawmode.Flush)
	if err != nil {
		return 1, fmt.Errorf("mediator: enter raw mode: %w", err)
	}
	restoreAttrs := func(when rawmode.When) error {
		return rawmode.Restore(ttyFd, origSnap, when)
	}

	child, outcome, err := spawner.Spawn(origSnap, ws, cfg.Argv)
	if err != nil {
		if rerr := restoreAttrs(rawmode.Flush); rerr != nil {
			logger.WithError(rerr).Warn("mediator: failed to restore TTY attributes after failed spawn")
		}
		return outcome.ExitCode(), err
	}

	loopErr := loop(ttyFd, child, cfg, forwarder, logger)

	exitCode, teardownErr := teardown(ttyFd, child, restoreAttrs, logger)

	err = loopErr
	if err == nil {
		err = teardownErr
	}

	return exitCode, err
}

// loop runs the Mediator's main event dispatch until the child's PTY or
// the TTY closes, or an unrecoverable I/O failure occurs. It never reaps
// the child; that is teardown's job, and must happen only after the
// child's PTY controller descriptor has been closed (spec.md §4.6
// teardown steps 1–2).
func loop(ttyFd int, child *spawner.Child, cfg Config, forwarder *winsize.Forwarder, logger *logrus.Logger) error {
	childFd := int(child.Pty.Fd())
	txEnabled := true

	timeoutEnabled := cfg.ActivityTimeoutSeconds >= 0
	var deadline clock.Deadline
	if timeoutEnabled {
		d, err := clock.After(cfg.ActivityTimeoutSeconds)
		if err != nil {
			return err
		}
		deadline = d
	}

	rearm := func() error {
		if !timeoutEnabled {
			return nil
		}
		d, err := clock.After(cfg.ActivityTimeoutSeconds)
		if err != nil {
			return err
		}
		deadline = d
		return nil
	}

	issueHangup := func() {
		timeoutEnabled = false
		if err := unix.Kill(child.Pid, unix.SIGHUP); err != nil {
			logger.WithError(err).Debug("mediator: failed to deliver hangup to child")
		}
	}

	for {
		pfds := []unix.PollFd{{Fd: int32(ttyFd), Events: unix.POLLIN}}
		childIdx := -1
		if txEnabled {
			pfds = append(pfds, unix.PollFd{Fd: int32(childFd), Events: unix.POLLIN})
			childIdx = 1
		}

		timeoutMs := -1
		if timeoutEnabled {
			remaining, err := deadline.Remaining()
			if err != nil {
				return err
			}
			timeoutMs = int(remaining * 1000)
		}

		n, err := unix.Poll(pfds, timeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				syncPendingResize(forwarder, ttyFd, childFd, child.Pid)
				continue
			}
			return fmt.Errorf("mediator: poll: %w", err)
		}

		if n == 0 {
			if !txEnabled {
				issueHangup()
			} else {
				reply := make([]byte, prober.MinReplyBufferSize)
				devState, replyLen, perr := prober.Probe(ttyFd, reply, cfg.ProbeDeadlineSeconds, logger)
				if perr != nil {
					return fmt.Errorf("mediator: probe: %w", perr)
				}
				if replyLen > 0 {
					if werr := fullWrite(childFd, reply[:replyLen]); werr != nil {
						return fmt.Errorf("mediator: forward probe reply: %w", werr)
					}
				}
				if devState == prober.Offline {
					issueHangup()
				} else if err := rearm(); err != nil {
					return err
				}
			}
			syncPendingResize(forwarder, ttyFd, childFd, child.Pid)
			continue
		}

		if pfds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return nil
		}
		if pfds[0].Revents&unix.POLLIN != 0 {
			done, rerr := handleTTYReadable(ttyFd, childFd, &txEnabled, rearm)
			if rerr != nil {
				return rerr
			}
			if done {
				return nil
			}
		}

		if childIdx >= 0 && txEnabled {
			if pfds[childIdx].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
				return nil
			}
			if pfds[childIdx].Revents&unix.POLLIN != 0 {
				done, rerr := handleChildReadable(ttyFd, childFd)
				if rerr != nil {
					return rerr
				}
				if done {
					return nil
				}
			}
		}

		syncPendingResize(forwarder, ttyFd, childFd, child.Pid)
	}
}

// handleTTYReadable reads one buffer from the TTY, applies the
// flow-control filter when IXOFF is set, and forwards the result to the
// child. done reports loop termination (EOF/dead descriptor); err reports
// an unrecoverable I/O failure.
func handleTTYReadable(ttyFd, childFd int, txEnabled *bool, rearm func() error) (done bool, err error) {
	buf := make([]byte, readBufferSize)
	n, rerr := readRetryEINTR(ttyFd, buf)
	if rerr != nil {
		return false, fmt.Errorf("mediator: read TTY: %w", rerr)
	}
	if n <= 0 {
		return true, nil
	}
	data := buf[:n]

	snap, serr := rawmode.Get(ttyFd)
	if serr == nil && snap.Termios().Iflag&unix.IXOFF != 0 {
		newLen, newTx := flowcontrol.Filter(data, *txEnabled)
		data = data[:newLen]
		*txEnabled = newTx
	}

	if len(data) > 0 {
		if werr := fullWrite(childFd, data); werr != nil {
			return false, fmt.Errorf("mediator: write child: %w", werr)
		}
	}

	if err := rearm(); err != nil {
		return false, err
	}
	return false, nil
}

// handleChildReadable reads one buffer from the child PTY and forwards it
// to the TTY verbatim.
func handleChildReadable(ttyFd, childFd int) (done bool, err error) {
	buf := make([]byte, readBufferSize)
	n, rerr := readRetryEINTR(childFd, buf)
	if rerr != nil {
		return false, fmt.Errorf("mediator: read child: %w", rerr)
	}
	if n <= 0 {
		return true, nil
	}
	if werr := fullWrite(ttyFd, buf[:n]); werr != nil {
		return false, fmt.Errorf("mediator: write TTY: %w", werr)
	}
	return false, nil
}

func syncPendingResize(forwarder *winsize.Forwarder, ttyFd, childFd, childPid int) {
	if forwarder.Pending() {
		forwarder.Sync(ttyFd, childFd, childPid)
	}
}

// readRetryEINTR performs a single read, transparently retrying on
// signal interruption, matching spec.md's "the only errors retried are
// signal-interruption of the wait and read syscalls."
func readRetryEINTR(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return 0, err
		}
		return n, nil
	}
}

// fullWrite writes all of buf, retrying short writes and EINTR.
func fullWrite(fd int, buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// teardown runs the Mediator's fixed shutdown sequence in order — close
// the child's PTY controller descriptor, reap the child, flush remaining
// TTY I/O, restore TTY attributes — always executing every step and
// preserving the first non-nil error (spec.md §4.6 teardown, §7
// propagation policy). The window-change handler restoration (step 5) is
// the caller's deferred Forwarder.Stop().
func teardown(ttyFd int, child *spawner.Child, restoreAttrs func(rawmode.When) error, logger *logrus.Logger) (int, error) {
	var first error
	record := func(err error) {
		if first == nil && err != nil {
			first = err
		}
	}

	record(child.Pty.Close())

	waitErr := child.Cmd.Wait()
	exitCode := reapExitCode(child, waitErr, logger)

	if err := rawmode.FlushBoth(ttyFd); err != nil {
		logger.WithError(err).Debug("mediator: failed to flush TTY I/O during teardown")
		record(err)
	}

	if err := restoreAttrs(rawmode.Flush); err != nil {
		logger.WithError(err).Warn("mediator: failed to restore TTY attributes during teardown")
		record(err)
	}

	return exitCode, first
}

// reapExitCode classifies an already-Wait()-ed child's terminal status:
// normal exit reports its code verbatim, death by signal s reports
// 128+s, and an unreachable ProcessState reports unreachableExitCode.
func reapExitCode(child *spawner.Child, waitErr error, logger *logrus.Logger) int {
	state := child.Cmd.ProcessState
	if state == nil {
		if waitErr != nil {
			logger.WithError(waitErr).Warn("mediator: failed to reap child")
		}
		return unreachableExitCode
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
