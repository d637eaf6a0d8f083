// Package clock supplies a monotonic, steadily-increasing time source used
// for deadline arithmetic throughout the supervisor. It is deliberately
// thin: the only interesting property is that it can fail, which the
// standard library's time.Now() cannot, so callers get an explicit error to
// propagate instead of a silently-wrong deadline.
package clock

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Now returns the number of elapsed seconds on the system's monotonic clock.
// The reference point is unspecified; only differences between two calls
// are meaningful.
func Now() (float64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, fmt.Errorf("clock: CLOCK_MONOTONIC: %w", err)
	}
	return float64(ts.Sec) + float64(ts.Nsec)/1e9, nil
}

// Deadline is an absolute instant on the Now() timeline.
type Deadline float64

// After computes a deadline timeoutSeconds in the future.
func After(timeoutSeconds float64) (Deadline, error) {
	now, err := Now()
	if err != nil {
		return 0, err
	}
	return Deadline(now + timeoutSeconds), nil
}

// Extend pushes the deadline further into the future by deltaSeconds.
func (d Deadline) Extend(deltaSeconds float64) Deadline {
	return d + Deadline(deltaSeconds)
}

// Remaining returns how many seconds are left until the deadline, clamped
// at zero. A negative result is never returned so callers can feed it
// directly into a poll timeout.
func (d Deadline) Remaining() (float64, error) {
	now, err := Now()
	if err != nil {
		return 0, err
	}
	remaining := float64(d) - now
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Expired reports whether the deadline has passed.
func (d Deadline) Expired() (bool, error) {
	now, err := Now()
	if err != nil {
		return false, err
	}
	return float64(d) <= now, nil
}
