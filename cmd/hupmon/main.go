// Command hupmon supervises a child process behind a PTY, detecting when
// its controlling terminal has hung up (via periodic ANSI Cursor Position
// Report probes) and mediating XON/XOFF software flow control for
// applications that do not implement it themselves.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ericpruitt/hupmon/internal/config"
	"github.com/ericpruitt/hupmon/internal/mediator"
	"github.com/ericpruitt/hupmon/internal/ttyident"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const usageText = `usage: hupmon [-1 | -f | -h] [-r seconds] [-t seconds] command [args...]

  -1             probe once, print the device status, and exit
  -f             mediate flow control only (hangup detection disabled)
  -h             hangup-detection mode (default)
  -r seconds     probe reply deadline, minimum 0.01 (default 0.200)
  -t seconds     activity timeout, minimum 1 (default 10)
  --help         print this message and exit
`

// exitCodeError carries a concrete process exit status alongside an
// optional diagnostic, letting RunE report both through cobra's ordinary
// error-return path.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func main() {
	// hupmon.c's getopt loop has no long-option support, so --help is
	// special-cased the way a dedicated usage() call would be: only
	// when it is literally the first argument.
	if len(os.Args) > 1 && os.Args[1] == "--help" {
		fmt.Print(usageText)
		os.Exit(0)
	}

	var f flags
	cmd := newRootCommand(&f, runHupmon)
	cmd.SetArgs(os.Args[1:])

	err := cmd.Execute()
	if err == nil {
		os.Exit(0)
	}

	var ece *exitCodeError
	if errors.As(err, &ece) {
		if ece.err != nil {
			fmt.Fprintf(os.Stderr, "hupmon: %s\n", formatUserError(ece.err))
		}
		os.Exit(normalizeExitCode(ece.code))
	}

	fmt.Fprintf(os.Stderr, "hupmon: %s\n", formatUserError(err))
	os.Exit(2)
}

// normalizeExitCode applies spec.md §6's exit-status clamp: values above
// 255 or negative collapse to a generic failure.
func normalizeExitCode(code int) int {
	if code < 0 || code > 255 {
		return 1
	}
	return code
}

func runHupmon(cmd *cobra.Command, cfg *config.Config, argv []string) (int, error) {
	logger := cfg.NewLogger()

	stdin, stdout := os.Stdin, os.Stdout

	// spec.md §6 scopes the dual-TTY/same-device precondition to -h/-f;
	// -1 only ever probes through stdin (runOneShot never touches stdout as
	// a TTY, it may be redirected to a file), matching hupmon.c's
	// ACTION_ONE_SHOT_QUERY branch, which checks only isatty(STDIN_FILENO).
	if cfg.Mode == config.OneShot {
		if !term.IsTerminal(int(stdin.Fd())) {
			return 2, ErrNotATTY
		}
		return runOneShot(os.Stdout, int(stdin.Fd()), cfg, logger)
	}

	if !term.IsTerminal(int(stdin.Fd())) || !term.IsTerminal(int(stdout.Fd())) {
		return 2, ErrNotATTY
	}
	same, err := ttyident.SameFile(stdin, stdout)
	if err != nil {
		return 2, fmt.Errorf("%w: %w", ErrDeviceMismatch, err)
	}
	if !same {
		return 2, ErrDeviceMismatch
	}

	ttyFd := int(stdin.Fd())

	if err := setHupmonEnvironment(stdin); err != nil {
		return 1, err
	}

	return mediator.Run(ttyFd, mediator.Config{
		ActivityTimeoutSeconds: cfg.ActivityTimeoutSeconds,
		ProbeDeadlineSeconds:   cfg.ProbeDeadlineSeconds,
		Argv:                   argv,
	}, logger)
}
