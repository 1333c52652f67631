package libdocker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/luxforge/forgectl/internal/libcheck"
	"gopkg.in/inconshreveable/log15.v2"
)

// Expectation decides how a container run is judged. Formats:
//
//	exit:0
//	fail_if:stdout contains X
//	fail_if:stderr contains X
//	pass_if:stdout contains X
//	pass_if:stderr contains X
type Expectation struct {
	kind     expectationKind
	exitCode int
	pattern  string
}

type expectationKind int

const (
	expectExitCode expectationKind = iota
	expectFailIfStdout
	expectFailIfStderr
	expectPassIfStdout
	expectPassIfStderr
)

// ParseExpectation parses the expectation DSL.
func ParseExpectation(s string) (Expectation, error) {
	s = strings.TrimSpace(s)

	if rest, ok := strings.CutPrefix(s, "exit:"); ok {
		code, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return Expectation{}, fmt.Errorf("invalid exit code: %s", strings.TrimSpace(rest))
		}
		return Expectation{kind: expectExitCode, exitCode: code}, nil
	}
	if rest, ok := strings.CutPrefix(s, "fail_if:"); ok {
		return parseContains(rest, true)
	}
	if rest, ok := strings.CutPrefix(s, "pass_if:"); ok {
		return parseContains(rest, false)
	}
	return Expectation{}, fmt.Errorf("unknown expectation format: %s", s)
}

func parseContains(s string, failIf bool) (Expectation, error) {
	s = strings.TrimSpace(s)

	if rest, ok := strings.CutPrefix(s, "stdout contains "); ok {
		kind := expectPassIfStdout
		if failIf {
			kind = expectFailIfStdout
		}
		return Expectation{kind: kind, pattern: strings.TrimSpace(rest)}, nil
	}
	if rest, ok := strings.CutPrefix(s, "stderr contains "); ok {
		kind := expectPassIfStderr
		if failIf {
			kind = expectFailIfStderr
		}
		return Expectation{kind: kind, pattern: strings.TrimSpace(rest)}, nil
	}
	return Expectation{}, fmt.Errorf("invalid contains format, expected 'stdout contains X' or 'stderr contains X': %s", s)
}

// Validator runs one registered image against the workspace and
// judges the run by its expectation.
type Validator struct {
	Image       *RegisteredImage
	Expectation Expectation
	TimeoutSecs int64
	Workspace   string
	Logger      log15.Logger
}

// NewValidator checks the image key against the compiled-in registry
// before anything else happens. Unregistered keys are rejected with
// the list of allowed keys.
func NewValidator(imageKey, expectation string, timeoutSecs int64, workspace string) (*Validator, error) {
	img := LookupImage(imageKey)
	if img == nil {
		return nil, fmt.Errorf("docker image '%s' is not registered. allowed images: %s",
			imageKey, strings.Join(ImageKeys(), ", "))
	}
	exp, err := ParseExpectation(expectation)
	if err != nil {
		return nil, fmt.Errorf("invalid expectation: %v", err)
	}
	return &Validator{
		Image:       img,
		Expectation: exp,
		TimeoutSecs: timeoutSecs,
		Workspace:   workspace,
	}, nil
}

func (v *Validator) Name() string {
	return fmt.Sprintf("docker:%s", v.Image.Key)
}

func (v *Validator) Validate(ctx context.Context) (libcheck.TestCase, error) {
	executor, err := NewExecutor(v.Logger)
	if err != nil {
		return libcheck.TestCase{}, err
	}
	workspace := v.Workspace
	if workspace == "" {
		workspace = "."
	}
	result, err := executor.Run(ctx, v.Image, workspace, v.TimeoutSecs)
	if err != nil {
		return libcheck.TestCase{}, err
	}
	return v.judge(result), nil
}

func (v *Validator) judge(result *ExecResult) libcheck.TestCase {
	switch v.Expectation.kind {
	case expectExitCode:
		if result.ExitCode == v.Expectation.exitCode {
			return libcheck.Passing(v.Name(), fmt.Sprintf("exit code %d as expected", v.Expectation.exitCode))
		}
		preview := truncateOutput(result.Stderr, 500)
		return libcheck.Failing(v.Name(), fmt.Sprintf("expected exit code %d, got %d\n%s",
			v.Expectation.exitCode, result.ExitCode, preview))

	case expectFailIfStdout:
		if strings.Contains(result.Stdout, v.Expectation.pattern) {
			return libcheck.Failing(v.Name(), fmt.Sprintf("stdout contains '%s' (failure condition)", v.Expectation.pattern))
		}
		return libcheck.Passing(v.Name(), "validation passed")

	case expectFailIfStderr:
		if strings.Contains(result.Stderr, v.Expectation.pattern) {
			preview := extractContext(result.Stderr, v.Expectation.pattern, 200)
			return libcheck.Failing(v.Name(), fmt.Sprintf("stderr contains '%s':\n%s", v.Expectation.pattern, preview))
		}
		return libcheck.Passing(v.Name(), "validation passed")

	case expectPassIfStdout:
		if strings.Contains(result.Stdout, v.Expectation.pattern) {
			return libcheck.Passing(v.Name(), fmt.Sprintf("stdout contains '%s' as expected", v.Expectation.pattern))
		}
		return libcheck.Failing(v.Name(), fmt.Sprintf("expected stdout to contain '%s'", v.Expectation.pattern))

	case expectPassIfStderr:
		if strings.Contains(result.Stderr, v.Expectation.pattern) {
			return libcheck.Passing(v.Name(), fmt.Sprintf("stderr contains '%s' as expected", v.Expectation.pattern))
		}
		return libcheck.Failing(v.Name(), fmt.Sprintf("expected stderr to contain '%s'", v.Expectation.pattern))
	}
	return libcheck.Failing(v.Name(), "unknown expectation")
}

func truncateOutput(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// extractContext pulls out the text surrounding the first match of
// pattern so failures show the relevant slice of a long log.
func extractContext(s, pattern string, contextChars int) string {
	pos := strings.Index(s, pattern)
	if pos < 0 {
		return truncateOutput(s, contextChars)
	}
	start := pos - contextChars/2
	if start < 0 {
		start = 0
	}
	end := pos + len(pattern) + contextChars/2
	if end > len(s) {
		end = len(s)
	}
	excerpt := s[start:end]
	if start > 0 || end < len(s) {
		return "..." + excerpt + "..."
	}
	return excerpt
}
