package libforge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luxforge/forgectl/internal/libcheck"
	"gopkg.in/inconshreveable/log15.v2"
)

func discardLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

func testRunner(client *Client) *Runner {
	return &Runner{
		Factory: &libcheck.Factory{},
		Client:  client,
		Logger:  discardLogger(),
	}
}

func TestRunValidatorsBadSpecBecomesFailedCase(t *testing.T) {
	r := testRunner(nil)
	results := r.RunValidators(context.Background(), []string{"tcp_listening"})

	if results.Total() != 1 {
		t.Fatalf("total = %d", results.Total())
	}
	tc := results.Cases[0]
	if tc.Passed() {
		t.Error("bad spec should fail")
	}
	if !strings.Contains(tc.Details, "invalid validator 'tcp_listening'") {
		t.Errorf("details = %q", tc.Details)
	}
}

func TestRunValidatorsUnknownValidatorFails(t *testing.T) {
	r := testRunner(nil)
	results := r.RunValidators(context.Background(), []string{"no_such_check:int(1)"})

	if results.AllPassed() {
		t.Error("unknown validator should fail")
	}
	if !strings.Contains(results.Cases[0].Details, "not implemented yet") {
		t.Errorf("details = %q", results.Cases[0].Details)
	}
}

func TestRunValidatorsMixedResults(t *testing.T) {
	r := testRunner(nil)
	// file validator against a file we create on the spot
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("expected content"), 0644); err != nil {
		t.Fatal(err)
	}

	results := r.RunValidators(context.Background(), []string{
		"file_contents_match:string(" + path + "),string(expected content)",
		"no_such_check",
	})
	if results.Passed() != 1 || results.Failed() != 1 {
		t.Errorf("passed=%d failed=%d", results.Passed(), results.Failed())
	}
	if results.AllPassed() {
		t.Error("one failure should fail the run")
	}
}

func TestBuildOutcomeContext(t *testing.T) {
	results := &libcheck.TestResults{}
	results.Add(libcheck.Passing("first check", "all good"))
	results.Add(libcheck.Failing("second check", "something broke"))

	ctx := BuildOutcomeContext(results)
	lines := strings.Split(ctx, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "#1 [PASS] first check:") {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "#2 [FAIL] second check:") {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestBuildOutcomeContextTruncates(t *testing.T) {
	results := &libcheck.TestResults{}
	for i := 0; i < 100; i++ {
		results.Add(libcheck.Failing("check", strings.Repeat("x", 100)))
	}
	ctx := BuildOutcomeContext(results)
	if len(ctx) > maxOutcomeContext+len("...[truncated]") {
		t.Errorf("context too long: %d", len(ctx))
	}
	if !strings.HasSuffix(ctx, "...[truncated]") {
		t.Error("long context should be marked truncated")
	}
}

func TestRunTaskSubmitsOutcome(t *testing.T) {
	var submitted SubmitAttemptRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&submitted)
		json.NewEncoder(w).Encode(SubmitAttemptResponse{
			Data: AttemptData{TaskOutcome: OutcomeFailed},
		})
	}))
	defer server.Close()

	r := testRunner(testClient(server.URL))
	task := &Task{
		ID:         7,
		Slug:       "some-task",
		Validators: []string{"no_such_check"},
	}
	results, err := r.RunTask(context.Background(), "http-server", task, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if results.AllPassed() {
		t.Error("run should have failed")
	}
	if submitted.TaskID != 7 || submitted.TaskOutcome != OutcomeFailed {
		t.Errorf("submitted %+v", submitted)
	}
	if submitted.TaskOutcomeContext == nil || !strings.Contains(*submitted.TaskOutcomeContext, "[FAIL]") {
		t.Error("outcome context missing")
	}
}

func TestRunTaskPrologueFailureStillRunsEpilogue(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "cleanup-ran")

	r := testRunner(nil)
	task := &Task{
		Slug:       "hooked-task",
		Prologue:   []string{"exit 1"},
		Epilogue:   []string{"touch " + marker},
		Validators: []string{"no_such_check"},
	}
	_, err := r.RunTask(context.Background(), "p", task, nil, "")
	if err == nil {
		t.Fatal("prologue failure should surface as an error")
	}
	if _, statErr := os.Stat(marker); statErr != nil {
		t.Error("epilogue should run even when the prologue fails")
	}
}

func TestRunTaskNoValidators(t *testing.T) {
	r := testRunner(nil)
	results, err := r.RunTask(context.Background(), "p", &Task{Slug: "empty"}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if results.Total() != 0 {
		t.Errorf("total = %d", results.Total())
	}
}
