package libdocker

import (
	"strings"
	"testing"
)

func TestParseExpectationExitCode(t *testing.T) {
	exp, err := ParseExpectation("exit:0")
	if err != nil {
		t.Fatal(err)
	}
	if exp.kind != expectExitCode || exp.exitCode != 0 {
		t.Errorf("got %+v", exp)
	}

	exp, err = ParseExpectation("exit:1")
	if err != nil {
		t.Fatal(err)
	}
	if exp.exitCode != 1 {
		t.Errorf("got %+v", exp)
	}
}

func TestParseExpectationContains(t *testing.T) {
	tests := []struct {
		input   string
		kind    expectationKind
		pattern string
	}{
		{"fail_if:stderr contains DATA RACE", expectFailIfStderr, "DATA RACE"},
		{"fail_if:stdout contains ERROR", expectFailIfStdout, "ERROR"},
		{"pass_if:stdout contains SUCCESS", expectPassIfStdout, "SUCCESS"},
		{"pass_if:stderr contains warning", expectPassIfStderr, "warning"},
	}
	for _, test := range tests {
		exp, err := ParseExpectation(test.input)
		if err != nil {
			t.Fatalf("ParseExpectation(%q): %v", test.input, err)
		}
		if exp.kind != test.kind || exp.pattern != test.pattern {
			t.Errorf("ParseExpectation(%q) = %+v", test.input, exp)
		}
	}
}

func TestParseExpectationInvalid(t *testing.T) {
	if _, err := ParseExpectation("invalid"); err == nil {
		t.Error("bare string should not parse")
	}
	if _, err := ParseExpectation("exit:abc"); err == nil {
		t.Error("non-numeric exit code should not parse")
	}
	if _, err := ParseExpectation("fail_if:somewhere contains X"); err == nil {
		t.Error("unknown stream should not parse")
	}
}

func TestNewValidatorRejectsUnregisteredImage(t *testing.T) {
	_, err := NewValidator("evil-image", "exit:0", 0, ".")
	if err == nil {
		t.Fatal("unregistered image should be rejected")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(err.Error(), "go1.22") {
		t.Errorf("error should list allowed images, got %v", err)
	}
}

func TestNewValidatorRejectsBadExpectation(t *testing.T) {
	_, err := NewValidator("go1.22", "nonsense", 0, ".")
	if err == nil {
		t.Fatal("bad expectation should be rejected")
	}
	if !strings.Contains(err.Error(), "invalid expectation") {
		t.Errorf("error = %v", err)
	}
}

func TestJudgeExitCode(t *testing.T) {
	v, err := NewValidator("go1.22", "exit:0", 0, ".")
	if err != nil {
		t.Fatal(err)
	}

	tc := v.judge(&ExecResult{ExitCode: 0})
	if !tc.Passed() {
		t.Errorf("exit 0 should pass: %s", tc.Details)
	}

	tc = v.judge(&ExecResult{ExitCode: 2, Stderr: "boom"})
	if tc.Passed() {
		t.Error("exit 2 should fail")
	}
	if !strings.Contains(tc.Details, "expected exit code 0, got 2") {
		t.Errorf("details = %q", tc.Details)
	}
	if !strings.Contains(tc.Details, "boom") {
		t.Errorf("details should include stderr, got %q", tc.Details)
	}
}

func TestJudgeFailIfStderr(t *testing.T) {
	v, err := NewValidator("go1.22-race", "fail_if:stderr contains DATA RACE", 0, ".")
	if err != nil {
		t.Fatal(err)
	}

	tc := v.judge(&ExecResult{ExitCode: 0, Stderr: "all good"})
	if !tc.Passed() {
		t.Errorf("clean stderr should pass: %s", tc.Details)
	}

	tc = v.judge(&ExecResult{ExitCode: 1, Stderr: "WARNING: DATA RACE\ngoroutine 7"})
	if tc.Passed() {
		t.Error("matching stderr should fail")
	}
	if !strings.Contains(tc.Details, "DATA RACE") {
		t.Errorf("details = %q", tc.Details)
	}
}

func TestJudgePassIfStdout(t *testing.T) {
	v, err := NewValidator("go1.22", "pass_if:stdout contains PASS", 0, ".")
	if err != nil {
		t.Fatal(err)
	}

	tc := v.judge(&ExecResult{ExitCode: 0, Stdout: "ok\nPASS\n"})
	if !tc.Passed() {
		t.Errorf("matching stdout should pass: %s", tc.Details)
	}

	tc = v.judge(&ExecResult{ExitCode: 0, Stdout: "FAIL"})
	if tc.Passed() {
		t.Error("missing pattern should fail")
	}
}

func TestTruncateOutput(t *testing.T) {
	if got := truncateOutput("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("x", 600)
	got := truncateOutput(long, 500)
	if len(got) != 503 || !strings.HasSuffix(got, "...") {
		t.Errorf("len = %d", len(got))
	}
}

func TestExtractContext(t *testing.T) {
	log := strings.Repeat("a", 300) + "DATA RACE" + strings.Repeat("b", 300)
	got := extractContext(log, "DATA RACE", 200)
	if !strings.Contains(got, "DATA RACE") {
		t.Errorf("excerpt missing pattern: %q", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("excerpt should be marked as elided: %q", got)
	}
	if len(got) > 230 {
		t.Errorf("excerpt too long: %d", len(got))
	}

	if got := extractContext("no match here", "DATA RACE", 200); got != "no match here" {
		t.Errorf("got %q", got)
	}
}
