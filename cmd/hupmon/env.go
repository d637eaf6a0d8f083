package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ericpruitt/hupmon/internal/ttyident"
)

// setHupmonEnvironment advertises the supervisor's PID and controlling
// TTY path to the child process, mirroring hupmon.c's
// set_hupmon_environment_variables(). Only called in -h/-f modes.
func setHupmonEnvironment(ttyFile *os.File) error {
	if err := os.Setenv("HUPMON_PID", strconv.Itoa(os.Getpid())); err != nil {
		return fmt.Errorf("set HUPMON_PID: %w", err)
	}

	name, err := ttyident.Name(ttyFile)
	if err != nil {
		return fmt.Errorf("resolve controlling TTY path: %w", err)
	}
	if err := os.Setenv("HUPMON_TTY", name); err != nil {
		return fmt.Errorf("set HUPMON_TTY: %w", err)
	}
	return nil
}
