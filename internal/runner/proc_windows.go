//go:build windows

package runner

import "os/exec"

// Windows has no POSIX process groups; signaling degrades to killing the
// direct child only.
func setProcessGroup(cmd *exec.Cmd) {}

func signalTerm(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}

func signalKill(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}
