package libcheck

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CanCompileValidator builds the project in the workspace and checks
// whether compilation succeeds (or fails, when failure is expected).
type CanCompileValidator struct {
	ExpectedSuccess bool
	Workspace       string
	Runtime         string // explicit runtime override, empty for auto-detect
}

func (v *CanCompileValidator) Name() string {
	if v.ExpectedSuccess {
		return "project compiles"
	}
	return "project compiles (expected failure)"
}

func (v *CanCompileValidator) Validate(ctx context.Context) (TestCase, error) {
	workspace := v.Workspace
	if workspace == "" {
		workspace = "."
	}

	command, args, err := detectBuildCommand(v.Runtime, workspace)
	if err != nil {
		return TestCase{}, err
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = workspace
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return TestCase{}, fmt.Errorf("failed to run '%s': %v", command, runErr)
		}
	}
	compiledOK := runErr == nil

	switch {
	case compiledOK && v.ExpectedSuccess:
		return Passing(v.Name(), fmt.Sprintf("%s %s succeeded", command, strings.Join(args, " "))), nil
	case !compiledOK && !v.ExpectedSuccess:
		return Passing(v.Name(), "compilation failed as expected"), nil
	case compiledOK:
		return Failing(v.Name(), "expected compilation to fail, but it succeeded"), nil
	default:
		lines := strings.Split(stderr.String(), "\n")
		if len(lines) > 5 {
			lines = lines[:5]
		}
		return Failing(v.Name(), fmt.Sprintf("compilation failed:\n%s", strings.Join(lines, "\n"))), nil
	}
}

// detectBuildCommand resolves the build invocation from an explicit
// runtime override or by probing project manifests.
func detectBuildCommand(runtime, workspace string) (string, []string, error) {
	if runtime != "" {
		r, err := ParseRuntime(runtime)
		if err != nil {
			return "", nil, err
		}
		return buildCommandFor(r, workspace)
	}

	r, ok := DetectRuntime(workspace)
	if !ok {
		var manifests []string
		for _, rt := range AllRuntimes() {
			manifests = append(manifests, rt.ModuleFile())
		}
		return "", nil, fmt.Errorf("unable to detect project type. expected %s in workspace", strings.Join(manifests, " or "))
	}
	return buildCommandFor(r, workspace)
}

func buildCommandFor(r SupportedRuntime, workspace string) (string, []string, error) {
	// cargo check reports missing sources itself; the Go toolchain needs
	// at least one source file present
	if r == RuntimeGo && !r.HasSourceFiles(workspace) {
		return "", nil, fmt.Errorf("no .%s source files found in project directory", r.Extension())
	}
	command, args := r.BuildCommand()
	return command, args, nil
}
