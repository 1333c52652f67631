package libforge

import (
	"context"
	"fmt"
	"strings"

	"github.com/luxforge/forgectl/internal/libcheck"
	"gopkg.in/inconshreveable/log15.v2"
)

// outcome context is capped server-side at 5000 chars, leave headroom
const maxOutcomeContext = 4900

// Runner executes a task's validator specs and reports the outcome to
// the platform.
type Runner struct {
	Factory *libcheck.Factory
	Client  *Client
	Logger  log15.Logger
}

func NewRunner(factory *libcheck.Factory, client *Client) *Runner {
	return &Runner{
		Factory: factory,
		Client:  client,
		Logger:  log15.New("module", "runner"),
	}
}

// RunValidators runs each spec in order. A spec that fails to parse,
// and a validator that errors against the environment, both surface as
// failed test cases so one broken check never aborts the run.
func (r *Runner) RunValidators(ctx context.Context, specs []string) *libcheck.TestResults {
	results := &libcheck.TestResults{}
	for _, spec := range specs {
		r.Logger.Debug("parsing validator", "spec", spec)

		validator, err := r.Factory.Create(spec)
		if err != nil {
			r.Logger.Error("invalid validator", "spec", spec, "err", err)
			results.Add(libcheck.Failing(spec, fmt.Sprintf("invalid validator '%s': %v", spec, err)))
			continue
		}

		testCase, err := validator.Validate(ctx)
		if err != nil {
			testCase = libcheck.Failing(validator.Name(), err.Error())
		}
		if testCase.Passed() {
			r.Logger.Debug("validator passed", "name", testCase.Name)
		} else {
			r.Logger.Debug("validator failed", "name", testCase.Name, "details", testCase.Details)
		}
		results.Add(testCase)
	}
	return results
}

// RunTask runs a task end to end: prologue hooks, validators, result
// submission and epilogue cleanup. The epilogue always runs, even when
// the prologue fails, so task-created resources get torn down.
func (r *Runner) RunTask(ctx context.Context, projectSlug string, task *Task, state *State, token string) (*libcheck.TestResults, error) {
	if task.IsCompleted() {
		r.Logger.Warn("task already completed, running validators anyway", "task", task.Slug)
	}
	defer r.runEpilogue(ctx, task.Epilogue)

	if len(task.Prologue) > 0 {
		r.Logger.Info("running setup commands", "count", len(task.Prologue))
		if failure := RunCommands(ctx, task.Prologue); failure != nil {
			r.Logger.Error("setup command failed", "cmd", failure.Command, "exit", failure.Result.ExitCode)
			if failure.Result.Stderr != "" {
				r.Logger.Error("setup stderr", "output", strings.TrimSpace(failure.Result.Stderr))
			}
			return nil, fmt.Errorf("setup command failed: %s", failure.Command)
		}
	}

	if len(task.Validators) == 0 {
		r.Logger.Info("no validators defined for this task", "task", task.Slug)
		return &libcheck.TestResults{}, nil
	}

	r.Logger.Info("running validators", "task", task.Slug, "count", len(task.Validators))
	results := r.RunValidators(ctx, task.Validators)

	if r.Client != nil {
		r.submit(ctx, projectSlug, task, results, state, token)
	}
	return results, nil
}

func (r *Runner) submit(ctx context.Context, projectSlug string, task *Task, results *libcheck.TestResults, state *State, token string) {
	outcome := OutcomeFailed
	if results.AllPassed() {
		outcome = OutcomePassed
	}
	outcomeContext := BuildOutcomeContext(results)
	req := &SubmitAttemptRequest{
		ProjectSlug:        projectSlug,
		TaskID:             task.ID,
		TaskOutcome:        outcome,
		TaskOutcomeContext: &outcomeContext,
	}
	resp, err := r.Client.SubmitAttempt(ctx, req)
	if err != nil {
		r.Logger.Error("failed to submit results", "err", err)
		return
	}
	if resp.Data.IsReattempt {
		r.Logger.Debug("re-attempt recorded, no additional points")
	} else if resp.Data.TaskOutcome == OutcomePassed {
		r.Logger.Info("points earned", "points", resp.Data.PointsAchieved)
	}

	if state != nil {
		newStatus := StatusChallenged
		if resp.Data.TaskOutcome == OutcomePassed {
			newStatus = StatusChallengeCompleted
		}
		state.UpdateTaskStatus(task.ID, newStatus)
		if err := state.Save(token); err != nil {
			r.Logger.Warn("failed to save state", "err", err)
		}
	}
}

func (r *Runner) runEpilogue(ctx context.Context, commands []string) {
	if len(commands) == 0 {
		return
	}
	r.Logger.Info("running cleanup commands", "count", len(commands))
	for _, failure := range RunCommandsBestEffort(ctx, commands) {
		r.Logger.Warn("cleanup command failed", "cmd", failure.Command, "exit", failure.Result.ExitCode)
		if failure.Result.Stderr != "" {
			r.Logger.Debug("cleanup stderr", "output", strings.TrimSpace(failure.Result.Stderr))
		}
	}
}

// BuildOutcomeContext renders the per-case results as one line each
// for submission, truncated to the platform's limit.
func BuildOutcomeContext(results *libcheck.TestResults) string {
	lines := make([]string, 0, len(results.Cases))
	for i, tc := range results.Cases {
		status := "FAIL"
		if tc.Passed() {
			status = "PASS"
		}
		lines = append(lines, fmt.Sprintf("#%d [%s] %s: %s", i+1, status, tc.Name, tc.Message()))
	}
	out := strings.Join(lines, "\n")
	if len(out) > maxOutcomeContext {
		out = out[:maxOutcomeContext] + "...[truncated]"
	}
	return out
}
