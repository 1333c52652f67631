package libcheck

import "context"

// TestCase is the outcome of a single check. Pass distinguishes a
// condition that held from one that did not; Details carries the
// human-readable message either way.
type TestCase struct {
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`
	Details string `json:"details,omitempty"`
}

// Passing creates a passed test case.
func Passing(name, details string) TestCase {
	return TestCase{Name: name, Pass: true, Details: details}
}

// Failing creates a failed test case.
func Failing(name, details string) TestCase {
	return TestCase{Name: name, Pass: false, Details: details}
}

// Passed reports whether the check held.
func (tc TestCase) Passed() bool { return tc.Pass }

// Message returns the success or failure text, whichever applies.
func (tc TestCase) Message() string { return tc.Details }

// TestResults collects the test cases of one task run, in order.
type TestResults struct {
	Cases []TestCase `json:"cases"`
}

func (r *TestResults) Add(tc TestCase) {
	r.Cases = append(r.Cases, tc)
}

func (r *TestResults) Passed() int {
	n := 0
	for _, tc := range r.Cases {
		if tc.Pass {
			n++
		}
	}
	return n
}

func (r *TestResults) Failed() int {
	return r.Total() - r.Passed()
}

func (r *TestResults) Total() int {
	return len(r.Cases)
}

func (r *TestResults) AllPassed() bool {
	return r.Failed() == 0
}

// Validator is a single runnable check. Validate returns an error only
// for infrastructure failures (cannot connect, cannot spawn, timeout
// waiting on a dependency). A check that ran but did not hold is a
// failed TestCase, not an error.
type Validator interface {
	Name() string
	Validate(ctx context.Context) (TestCase, error)
}
