package libforge

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/pkg/errors"
	"gopkg.in/inconshreveable/log15.v2"
)

// CommandResult is the captured outcome of one shell command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r *CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandFailure pairs a failed command with its result.
type CommandFailure struct {
	Command string
	Result  CommandResult
}

// RunCommand runs one command through the shell and captures output.
func RunCommand(ctx context.Context, command string) (*CommandResult, error) {
	log15.Debug("running command", "cmd", command)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, errors.Wrap(err, "failed to execute command")
		}
	}

	result := &CommandResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	log15.Debug("command finished", "cmd", command, "exit", result.ExitCode,
		"stdout_bytes", len(result.Stdout), "stderr_bytes", len(result.Stderr))
	return result, nil
}

// RunCommands runs commands sequentially and stops at the first
// failure, returning it. Used for task prologue hooks.
func RunCommands(ctx context.Context, commands []string) *CommandFailure {
	for _, cmd := range commands {
		result, err := RunCommand(ctx, cmd)
		if err != nil {
			return &CommandFailure{
				Command: cmd,
				Result:  CommandResult{ExitCode: -1, Stderr: err.Error()},
			}
		}
		if !result.Success() {
			return &CommandFailure{Command: cmd, Result: *result}
		}
	}
	return nil
}

// RunCommandsBestEffort runs every command regardless of failures and
// returns the ones that failed. Used for task epilogue cleanup.
func RunCommandsBestEffort(ctx context.Context, commands []string) []CommandFailure {
	var failures []CommandFailure
	for _, cmd := range commands {
		result, err := RunCommand(ctx, cmd)
		if err != nil {
			failures = append(failures, CommandFailure{
				Command: cmd,
				Result:  CommandResult{ExitCode: -1, Stderr: err.Error()},
			})
			continue
		}
		if !result.Success() {
			failures = append(failures, CommandFailure{Command: cmd, Result: *result})
		}
	}
	return failures
}
