// Package prober implements the Cursor Position Report liveness probe
// (C3 in spec.md): it puts a TTY into raw mode, writes the ANSI "report
// cursor position" query, and validates the reply against a 10-state FSM
// within a deadline, classifying the far end as Unknown, Offline, or
// Online.
package prober

import (
	"errors"
	"fmt"

	"github.com/ericpruitt/hupmon/internal/clock"
	"github.com/ericpruitt/hupmon/internal/flowcontrol"
	"github.com/ericpruitt/hupmon/internal/rawmode"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DeviceState is the tri-state outcome of a probe.
type DeviceState int

const (
	// Unknown means a transport error occurred during the probe itself
	// (distinct from the terminal simply not answering).
	Unknown DeviceState = -1
	// Offline means no valid reply arrived before the deadline.
	Offline DeviceState = 0
	// Online means at least one byte was received, even if malformed.
	Online DeviceState = 1
)

// String renders the state the way the one-shot diagnostic mode prints it.
func (s DeviceState) String() string {
	switch s {
	case Offline:
		return "DEVICE_OFFLINE"
	case Online:
		return "DEVICE_ONLINE"
	default:
		return "DEVICE_STATUS_UNKNOWN"
	}
}

// cprRequest is the ANSI X3.64 Cursor Position Report query.
var cprRequest = []byte("\x1b[6n")

// MinReplyBufferSize is the minimum length reply must have: enough to hold
// "\x1b[999;999R" (3-digit row and column).
const MinReplyBufferSize = 10

const esc = 0x1b

func isControl(b byte) bool {
	return b == 0x7f || b <= 0x1f || (b >= 0x80 && b <= 0x9f)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Probe writes a CPR request to ttyFd and waits up to minDeadlineSeconds
// for a reply, classifying the result. reply must have capacity for at
// least MinReplyBufferSize bytes; on return, reply[:n] holds any bytes
// that must be forwarded to the child because they did not form a valid
// CPR reply (a fully valid reply reports n == 0 — it is consumed here).
//
// The returned error is non-nil only for precondition violations or a
// failure of the monotonic clock itself; ordinary transport failures are
// reported via DeviceState(Unknown), matching spec.md's invariant that
// probe failures never surface outside the tri-state.
func Probe(ttyFd int, reply []byte, minDeadlineSeconds float64, logger *logrus.Logger) (DeviceState, int, error) {
	if minDeadlineSeconds < 0.01 {
		return Unknown, 0, fmt.Errorf("prober: minDeadlineSeconds must be >= 0.01, got %v", minDeadlineSeconds)
	}
	if len(reply) < MinReplyBufferSize {
		return Unknown, 0, fmt.Errorf("prober: reply buffer must be at least %d bytes", MinReplyBufferSize)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	snap, err := rawmode.Get(ttyFd)
	if err != nil {
		return Unknown, 0, nil
	}
	ixoff := snap.Termios().Iflag&unix.IXOFF != 0

	if _, err := rawmode.EnterRaw(ttyFd, rawmode.Flush); err != nil {
		logger.WithError(err).Debug("prober: failed to enter raw mode")
		return Unknown, 0, nil
	}

	restore := func() {
		if err := rawmode.Restore(ttyFd, snap, rawmode.Drain); err != nil {
			logger.WithError(err).Debug("prober: failed to restore TTY attributes")
		}
	}

	if _, err := unix.Write(ttyFd, cprRequest); err != nil {
		logger.WithError(err).Debug("prober: write CPR request failed")
		restore()
		return Unknown, 0, nil
	}
	if err := tcdrain(ttyFd); err != nil {
		logger.WithError(err).Debug("prober: tcdrain failed")
		restore()
		return Unknown, 0, nil
	}

	state := Offline
	deadline, err := clock.After(minDeadlineSeconds)
	if err != nil {
		restore()
		return Unknown, 0, err
	}

	step := 0
	eom := 0

poll:
	for {
		expired, cerr := deadline.Expired()
		if cerr != nil {
			state = Unknown
			break
		}
		if expired {
			break
		}

		remaining, cerr := deadline.Remaining()
		if cerr != nil {
			state = Unknown
			break
		}

		pfd := []unix.PollFd{{Fd: int32(ttyFd), Events: unix.POLLIN}}
		n, perr := unix.Poll(pfd, int(remaining*1000))
		if perr != nil {
			if errors.Is(perr, unix.EINTR) {
				continue
			}
			state = Unknown
			break
		}
		if n == 0 {
			break
		}
		if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			break
		}

		var b [1]byte
		rn, rerr := unix.Read(ttyFd, b[:])
		if rerr != nil {
			if errors.Is(rerr, unix.EINTR) {
				continue
			}
			state = Unknown
			break
		}
		if rn <= 0 {
			break
		}

		state = Online
		c := b[0]

		if c != esc && isControl(c) {
			if c == flowcontrol.XOFF && ixoff {
				deadline = deadline.Extend(0.1)
			}
			continue
		}

		if (c == ';' && (step == 3 || step == 4)) || (c == 'R' && (step == 7 || step == 8)) {
			step += step%2 + 1
		}

		valid := stepValid(step, c)

		if eom < len(reply) {
			reply[eom] = c
		}
		eom++

		if !valid || step == 9 {
			if valid {
				eom = 0
			}
			break poll
		}
		step++
	}

	restore()
	return state, eom, nil
}

func stepValid(step int, b byte) bool {
	switch step {
	case 0:
		return b == esc
	case 1:
		return b == '['
	case 2, 3, 4:
		return isDigit(b)
	case 5:
		return b == ';'
	case 6, 7, 8:
		return isDigit(b)
	case 9:
		return b == 'R'
	default:
		return false
	}
}

// tcdrain waits for all output written to fd to be transmitted. The
// termios(3)/ioctl_tty(2) TCSBRK request with a non-zero argument has this
// effect without flushing anything, unlike TCFLSH.
func tcdrain(fd int) error {
	return unix.IoctlSetInt(fd, unix.TCSBRK, 1)
}
