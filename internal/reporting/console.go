// Package reporting renders scenario progress and the run summary for the
// console.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hello-flask/cluster-tests/pkg/scenario"
)

const timeUnit = 10 * time.Millisecond

func indent(s, prefix string) string {
	lines := strings.SplitAfter(strings.TrimRight(s, "\n")+"\n", "\n")
	var b strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
	return b.String()
}

// Console writes one line per scenario as it starts and finishes, in a
// go-test-like format. Called sequentially by the runner only.
type Console struct {
	Out io.Writer

	// Verbose attaches the diagnostic dump of failing scenarios.
	Verbose bool
}

// NewConsole builds a console reporter writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{Out: out}
}

func (c *Console) ScenarioStarted(s *scenario.Scenario) {
	fmt.Fprintf(c.Out, "=== RUN   %s\n", s.Name)
}

func (c *Console) ScenarioFinished(r *scenario.Result) {
	switch r.Verdict {
	case scenario.VerdictPassed:
		fmt.Fprintf(c.Out, "--- PASS: %s (%s)\n", r.Scenario, r.Duration.Round(timeUnit))
	case scenario.VerdictSkipped:
		if r.SkipReason != "" {
			fmt.Fprintf(c.Out, "--- SKIP: %s (%s)\n", r.Scenario, r.SkipReason)
		} else {
			fmt.Fprintf(c.Out, "--- SKIP: %s\n", r.Scenario)
		}
	default:
		fmt.Fprintf(c.Out, "--- FAIL: %s (%s)\n", r.Scenario, r.Duration.Round(timeUnit))
		if r.Err != nil {
			fmt.Fprintf(c.Out, "    %v\n", r.Err)
		}
	}
	if r.CleanupErr != nil {
		fmt.Fprintf(c.Out, "    cleanup: %v\n", r.CleanupErr)
	}
	if c.Verbose && r.Diagnostics != nil {
		fmt.Fprintf(c.Out, "    diagnostics:\n%s", indent(r.Diagnostics.Dump(), "      "))
	}
}

// Summary prints the aggregate line and reports whether the run passed.
func Summary(out io.Writer, results []scenario.Result) bool {
	var passed, failed, skipped int
	for i := range results {
		switch {
		case results[i].Failed():
			failed++
		case results[i].Verdict == scenario.VerdictSkipped:
			skipped++
		default:
			passed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(out, "FAIL  %d passed, %d failed, %d skipped\n", passed, failed, skipped)
		return false
	}
	fmt.Fprintf(out, "ok    %d passed, %d skipped\n", passed, skipped)
	return true
}
