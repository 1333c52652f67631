//go:build unix

package libcheck

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"
)

func (v *GracefulShutdownValidator) Validate(ctx context.Context) (TestCase, error) {
	workspace := v.Workspace
	if workspace == "" {
		workspace = "."
	}

	cmd := exec.Command(v.BinaryPath)
	cmd.Dir = workspace
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return TestCase{}, fmt.Errorf("failed to spawn process: %v", err)
	}
	pid := cmd.Process.Pid

	// give the process time to start up
	select {
	case <-time.After(time.Duration(v.StartupWaitMs) * time.Millisecond):
	case <-ctx.Done():
		cmd.Process.Kill()
		cmd.Wait()
		return TestCase{}, ctx.Err()
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return TestCase{}, fmt.Errorf("failed to send SIGTERM: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		exitCode := -1
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}
		if err != nil {
			if _, isExit := err.(*exec.ExitError); !isExit {
				return TestCase{}, fmt.Errorf("failed to wait for process: %v", err)
			}
		}
		if exitCode != v.ExpectedExitCode {
			return Failing(v.Name(), fmt.Sprintf("expected exit code %d, got %d", v.ExpectedExitCode, exitCode)), nil
		}
		return Passing(v.Name(), fmt.Sprintf("process exited gracefully with code %d after SIGTERM", exitCode)), nil

	case <-time.After(time.Duration(v.TimeoutMs) * time.Millisecond):
		cmd.Process.Kill()
		<-done
		return Failing(v.Name(), fmt.Sprintf("process did not exit within %dms after SIGTERM", v.TimeoutMs)), nil
	}
}
