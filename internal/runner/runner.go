// Package runner executes an external renderer command as a scoped resource:
// the process is started, waited on for at most a caller-supplied timeout,
// and is guaranteed dead by the time Run returns. Run never hangs its caller
// and never leaks a process past the caller's observation of the result.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/tszym/driveframe/internal/model"
)

// termGrace is how long a process gets between SIGTERM and SIGKILL.
const termGrace = 3 * time.Second

// Result reports how one render attempt ended. A non-zero exit code is data,
// not an error: a malformed media file must not stop the playback loop.
type Result struct {
	ExitCode int
	TimedOut bool
	Output   string
}

// Run launches command with args and waits up to timeout for natural exit.
// On timeout, or when ctx is cancelled, it sends SIGTERM and escalates to
// SIGKILL after a short grace period. Either way the process is reaped
// before Run returns.
//
// An error is returned only when the process could not be started at all;
// a missing binary wraps model.ErrRendererMissing so callers can degrade
// per media kind.
func Run(ctx context.Context, command string, args []string, timeout time.Duration) (Result, error) {
	if _, err := exec.LookPath(command); err != nil {
		return Result{}, fmt.Errorf("%w: %s", model.ErrRendererMissing, command)
	}

	var output bytes.Buffer
	cmd := exec.Command(command, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	// Renderers spawn helpers (vlc forks, shell wrappers). Signals go to the
	// whole process group so no orphan keeps the display or our pipes open.
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		waitErr  error
		timedOut bool
	)
	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
		waitErr = terminate(cmd, done)
	case <-ctx.Done():
		waitErr = terminate(cmd, done)
	}

	res := Result{TimedOut: timedOut, Output: output.String()}
	res.ExitCode = exitCode(waitErr)
	return res, nil
}

// terminate asks the process to exit, escalating to SIGKILL after the grace
// period. It always reaps the process before returning.
func terminate(cmd *exec.Cmd, done <-chan error) error {
	signalTerm(cmd)
	select {
	case err := <-done:
		return err
	case <-time.After(termGrace):
		signalKill(cmd)
		return <-done
	}
}

// exitCode extracts the process exit code from a Wait error. A signal death
// (from our own termination or otherwise) reports -1.
func exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
