//go:build !windows

package runtime

import "syscall"

// IsProcessAlive reports whether a process with the given PID exists.
// Signal 0 probes without delivering; EPERM still means the process is there.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
