package main

import "errors"

// Command-level errors, classified per spec.md §7's error kinds. Usage
// errors map to exit status 2.
var (
	ErrMissingCommand         = errors.New("no command given")
	ErrOneShotForbidsCommand  = errors.New("-1 does not accept a trailing command")
	ErrNotATTY                = errors.New("standard input and standard output must both be terminals")
	ErrDeviceMismatch         = errors.New("standard input and standard output do not refer to the same device")
	ErrInvalidProbeDeadline   = errors.New("probe deadline must be at least 0.01 seconds")
	ErrInvalidActivityTimeout = errors.New("activity timeout must be at least 1 second")
	ErrInvalidLogLevel        = errors.New("invalid log level: must be debug, info, warn, or error")
)

// formatUserError returns the message printed after the "hupmon: " prefix
// main() adds. It is err's message unchanged; prefixes added by %w
// wrapping (such as "mediator: ") are not removed.
func formatUserError(err error) string {
	return err.Error()
}
