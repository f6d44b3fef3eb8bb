// Package scenario defines test scenarios and the runner that executes
// them: selection by tag, sequential execution, verdicts, and diagnostic
// capture on failure.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/hello-flask/cluster-tests/pkg/diagnostics"
	"github.com/hello-flask/cluster-tests/pkg/selector"
)

// Scenario is one test case exercising cluster behavior. Tags are fixed at
// definition time.
type Scenario struct {
	Name        string
	Description string
	Tags        selector.TagSet
	Run         func(ctx context.Context, h *Harness) error
}

// Verdict is the outcome class of a scenario.
type Verdict string

const (
	VerdictPassed   Verdict = "passed"
	VerdictFailed   Verdict = "failed"
	VerdictTimedOut Verdict = "timed out"
	VerdictSkipped  Verdict = "skipped"
)

// SkipError marks a scenario as not applicable to the current cluster
// state (e.g. the service is not of the type the scenario exercises).
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip builds a SkipError.
func Skip(format string, args ...interface{}) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// Result holds the outcome of running a single scenario.
type Result struct {
	Scenario   string
	Verdict    Verdict
	Duration   time.Duration
	Err        error
	SkipReason string

	// CleanupErr reports a failed state restoration (service type switch
	// back). Kept separate from Err so cleanup problems never mask the
	// scenario's own verdict.
	CleanupErr error

	// Diagnostics is captured lazily, only for failing verdicts.
	Diagnostics *diagnostics.FailureSnapshot
}

// Failed reports whether the result should fail the run.
func (r *Result) Failed() bool {
	return r.Verdict == VerdictFailed || r.Verdict == VerdictTimedOut || r.CleanupErr != nil
}

// Reporter receives run progress. Implementations must tolerate being
// called sequentially from the runner goroutine only.
type Reporter interface {
	ScenarioStarted(s *Scenario)
	ScenarioFinished(r *Result)
}
