// Package ttyident answers the one device-identity question spec.md's
// preconditions need: do two file descriptors refer to the same
// underlying device? Ported directly from hupmon.c's same_file(), which
// compares (st_dev, st_ino) pairs from fstat(2).
package ttyident

import (
	"fmt"
	"os"
	"syscall"
)

// SameFile reports whether f1 and f2 refer to the same device/inode.
func SameFile(f1, f2 *os.File) (bool, error) {
	var stat1, stat2 syscall.Stat_t
	if err := syscall.Fstat(int(f1.Fd()), &stat1); err != nil {
		return false, fmt.Errorf("ttyident: fstat: %w", err)
	}
	if err := syscall.Fstat(int(f2.Fd()), &stat2); err != nil {
		return false, fmt.Errorf("ttyident: fstat: %w", err)
	}
	return stat1.Dev == stat2.Dev && stat1.Ino == stat2.Ino, nil
}

// Name resolves the filesystem path of the TTY backing fd, mirroring
// hupmon.c's use of ttyname(3) to populate HUPMON_TTY.
func Name(f *os.File) (string, error) {
	name, err := os.Readlink(fmt.Sprintf("/proc/self/fd/%d", f.Fd()))
	if err != nil {
		return "", fmt.Errorf("ttyident: resolve tty path: %w", err)
	}
	return name, nil
}
