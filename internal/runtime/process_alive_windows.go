//go:build windows

package runtime

import (
	"os"
	"syscall"
)

// IsProcessAlive reports whether a process with the given PID exists.
// Windows has no signal 0 probe; a successful lookup plus a zero-signal
// Signal call is the closest approximation.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
