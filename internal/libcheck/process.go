package libcheck

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultConcurrentTimeoutMs = 5000

// GracefulShutdownValidator starts the project binary, sends SIGTERM
// after a startup delay and checks the process exits on its own with
// the expected code. Platform-specific behavior lives in
// process_unix.go; elsewhere the validator reports itself unsupported.
type GracefulShutdownValidator struct {
	BinaryPath       string
	TimeoutMs        int64
	ExpectedExitCode int
	StartupWaitMs    int64
	Workspace        string
}

func (v *GracefulShutdownValidator) Name() string {
	return fmt.Sprintf("graceful shutdown within %dms", v.TimeoutMs)
}

// ConcurrentAccessValidator fans out several logical clients, each
// running a sequence of requests, and watches for deadlocks via an
// overall timeout.
type ConcurrentAccessValidator struct {
	Port                int
	Path                string
	ConcurrentCount     int
	OperationsPerClient int
	TimeoutMs           int64
}

func (v *ConcurrentAccessValidator) Name() string {
	return fmt.Sprintf("%d concurrent clients x %d operations", v.ConcurrentCount, v.OperationsPerClient)
}

func (v *ConcurrentAccessValidator) Validate(ctx context.Context) (TestCase, error) {
	type opResult struct {
		client int
		op     int
		err    error
	}

	perClient := make(chan []opResult, v.ConcurrentCount)
	for clientID := 0; clientID < v.ConcurrentCount; clientID++ {
		go func(clientID int) {
			results := make([]opResult, 0, v.OperationsPerClient)
			for opID := 0; opID < v.OperationsPerClient; opID++ {
				_, err := httpRequest(ctx, v.Port, "GET", v.Path, nil, nil)
				results = append(results, opResult{client: clientID, op: opID, err: err})
			}
			perClient <- results
		}(clientID)
	}

	collected := make(chan []opResult, 1)
	go func() {
		var all []opResult
		for i := 0; i < v.ConcurrentCount; i++ {
			all = append(all, <-perClient...)
		}
		collected <- all
	}()

	var all []opResult
	select {
	case all = <-collected:
	case <-time.After(time.Duration(v.TimeoutMs) * time.Millisecond):
		return Failing(v.Name(), fmt.Sprintf("concurrent operations timed out after %dms - possible deadlock", v.TimeoutMs)), nil
	case <-ctx.Done():
		return TestCase{}, ctx.Err()
	}

	successes := 0
	var failures []string
	for _, r := range all {
		if r.err == nil {
			successes++
		} else {
			failures = append(failures, fmt.Sprintf("client %d, op %d: %v", r.client, r.op, r.err))
		}
	}
	if len(failures) == 0 {
		return Passing(v.Name(), fmt.Sprintf("all %d/%d concurrent operations completed successfully", successes, len(all))), nil
	}
	summary := failures
	suffix := ""
	if len(failures) > 3 {
		summary = failures[:3]
		suffix = fmt.Sprintf("; ... and %d more failures", len(failures)-3)
	}
	msg := fmt.Sprintf("%d/%d operations failed: %s%s", len(failures), len(all), strings.Join(summary, "; "), suffix)
	return Failing(v.Name(), msg), nil
}
