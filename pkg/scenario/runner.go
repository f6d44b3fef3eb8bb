package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hello-flask/cluster-tests/pkg/diagnostics"
	"github.com/hello-flask/cluster-tests/pkg/poller"
	"github.com/hello-flask/cluster-tests/pkg/selector"
)

// Runner executes scenarios sequentially. Cluster reconciliation is the
// bottleneck, not CPU, and sequential execution keeps the shared
// service-type mutation unambiguous.
type Runner struct {
	Harness   *Harness
	Collector diagnostics.Collector
	Reporter  Reporter
}

// NewRunner wires a runner around a harness and a diagnostics collector.
func NewRunner(h *Harness, collector diagnostics.Collector, reporter Reporter) *Runner {
	return &Runner{Harness: h, Collector: collector, Reporter: reporter}
}

// Run evaluates the selection expression per scenario and executes the
// selected ones, returning one result per scenario in declaration order.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario, expr *selector.Expression) []Result {
	results := make([]Result, 0, len(scenarios))
	for i := range scenarios {
		results = append(results, r.runOne(ctx, &scenarios[i], expr))
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, s *Scenario, expr *selector.Expression) Result {
	result := Result{Scenario: s.Name}

	if !selector.ShouldRun(s.Tags, expr) {
		result.Verdict = VerdictSkipped
		return result
	}

	if r.Reporter != nil {
		r.Reporter.ScenarioStarted(s)
	}

	start := time.Now()
	err := s.Run(ctx, r.Harness)
	result.Duration = time.Since(start)
	result.CleanupErr = r.Harness.takeCleanupFailure()

	var skip *SkipError
	switch {
	case err == nil:
		result.Verdict = VerdictPassed
	case errors.As(err, &skip):
		result.Verdict = VerdictSkipped
		result.SkipReason = skip.Reason
	default:
		var te *poller.TimeoutError
		if errors.As(err, &te) {
			result.Verdict = VerdictTimedOut
		} else {
			result.Verdict = VerdictFailed
		}
		// Every fatal error carries the elapsed time and the environment
		// profile, so CI and local failures are distinguishable from the
		// report alone.
		result.Err = fmt.Errorf("%s after %s (%s): %w",
			result.Verdict, result.Duration.Round(time.Millisecond), r.Harness.Profile, err)
		result.Diagnostics = r.capture(ctx)
	}

	if r.Reporter != nil {
		r.Reporter.ScenarioFinished(&result)
	}
	return result
}

// capture gathers the failure snapshot; invoked only on the failure path
// to keep the common success path free of its cost.
func (r *Runner) capture(ctx context.Context) *diagnostics.FailureSnapshot {
	if r.Collector == nil {
		return nil
	}
	cfg := r.Harness.Config
	return r.Collector.Capture(ctx, diagnostics.Scope{
		LabelSelector:  cfg.LabelSelector,
		DeploymentName: cfg.Deployment,
		ServiceName:    cfg.Service,
		IngressName:    cfg.Ingress,
		IncludeLogs:    true,
	})
}
