// Package spawner allocates a PTY pair and execs the user's command inside
// it (C5 in spec.md), initializing the child's terminal with a copy of the
// outer TTY's attributes and window size so it observes a cooked terminal
// identical to what the user had before supervision began.
package spawner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"github.com/ericpruitt/hupmon/internal/rawmode"
	"github.com/ericpruitt/hupmon/internal/winsize"
	"golang.org/x/sys/unix"
)

// Outcome classifies how a Spawn attempt concluded.
type Outcome int

const (
	// Spawned means the child was forked and the command successfully
	// exec'd.
	Spawned Outcome = iota
	// NotFound means argv[0] could not be located on PATH.
	NotFound
	// ExecFailed means argv[0] was found but could not be executed for
	// any other reason (permissions, ENOEXEC, ...).
	ExecFailed
	// SetupFailed means the failure happened before exec was ever
	// attempted — PTY allocation, or priming the follower side with the
	// captured TTY attributes/window size. spec.md §7 classifies these
	// as Setup failures distinct from Exec failures; hupmon.c's wrap()
	// takes the same generic-failure path on a forkpty() failure rather
	// than the child's own execvp()-failure path.
	SetupFailed
)

// ExitCode is the process exit status this outcome implies when the
// command is reported without ever reaching the Mediator's teardown
// reaping step (spec.md §6).
func (o Outcome) ExitCode() int {
	switch o {
	case NotFound:
		return 127
	case ExecFailed:
		return 126
	case SetupFailed:
		return 1
	default:
		return 0
	}
}

// Child is a spawned process plus the controller side of its PTY.
type Child struct {
	Cmd *exec.Cmd
	Pty *os.File // controller (master) descriptor, owned by the caller
	Pid int
}

// Spawn allocates a PTY pair, applies attrs and ws to the follower side,
// and execs argv[0] with argv as its arguments. On success the returned
// Child owns the controller descriptor; the caller is responsible for
// closing it and reaping the process.
//
// Go's os/exec forks and execs in one runtime-managed step (using a pipe
// to relay exec(2) failures back to the parent synchronously), unlike
// hupmon.c's forkpty()+execvp() where the child prints its own diagnostic
// before _exit. Spawn folds that diagnostic into the returned error
// instead; the caller is expected to print it to the real controlling
// terminal once teardown has restored cooked mode, achieving the same
// user-visible result.
func Spawn(attrs *rawmode.Snapshot, ws *unix.Winsize, argv []string) (*Child, Outcome, error) {
	if len(argv) == 0 {
		return nil, ExecFailed, fmt.Errorf("spawner: argv must not be empty")
	}

	master, slave, err := pty.Open()
	if err != nil {
		return nil, SetupFailed, fmt.Errorf("spawner: allocate PTY: %w", err)
	}

	cleanup := func() {
		_ = master.Close()
		_ = slave.Close()
	}

	slaveFd := int(slave.Fd())
	if attrs != nil {
		t := attrs.Termios()
		if err := unix.IoctlSetTermios(slaveFd, unix.TCSETS, &t); err != nil {
			cleanup()
			return nil, SetupFailed, fmt.Errorf("spawner: apply TTY attributes to child PTY: %w", err)
		}
	}
	if ws != nil {
		if err := winsize.Set(slaveFd, ws); err != nil {
			cleanup()
			return nil, SetupFailed, fmt.Errorf("spawner: apply window size to child PTY: %w", err)
		}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0,
	}

	if err := cmd.Start(); err != nil {
		cleanup()

		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return nil, NotFound, fmt.Errorf("%s: %w", argv[0], exec.ErrNotFound)
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, NotFound, fmt.Errorf("%s: %w", argv[0], err)
		}
		return nil, ExecFailed, fmt.Errorf("%s: %w", argv[0], err)
	}

	// The follower descriptor now belongs to the child; the parent only
	// needs the controller side.
	_ = slave.Close()

	return &Child{Cmd: cmd, Pty: master, Pid: cmd.Process.Pid}, Spawned, nil
}
