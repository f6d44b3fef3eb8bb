// Package envprofile detects whether the run executes in CI or locally and
// derives the timeout scaling and network-access strategy from that.
//
// The profile is computed once at program start and passed explicitly into
// every component that needs it; nothing re-reads the environment mid-run,
// so the whole test session sees one consistent view.
package envprofile

import (
	"fmt"
	"os"
	"strconv"
)

// AccessMode selects how Ingress endpoints are reached.
type AccessMode string

const (
	// AccessLocal assumes the ingress hostname resolves (e.g. /etc/hosts)
	// and targets it directly.
	AccessLocal AccessMode = "local"

	// AccessCI targets the cluster entry-point address and simulates the
	// virtual host with a Host header, because CI runners cannot resolve
	// the custom hostname via DNS.
	AccessCI AccessMode = "ci"
)

// Environment variables consulted by Detect.
const (
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvMultiplier    = "TEST_TIMEOUT_MULTIPLIER"
	EnvNodeAddress   = "CLUSTER_NODE_IP"
)

// ciMultiplier is the default scaling in CI. Cluster reconciliation on CI
// runners is measurably slower; 1x timeouts there caused flaky failures.
const ciMultiplier = 2.0

// Profile is the immutable environment view for one test session.
type Profile struct {
	CI                bool
	TimeoutMultiplier float64
	AccessMode        AccessMode

	// NodeAddress is the cluster entry-point address (minikube IP or node
	// IP), captured here so the endpoint resolver stays free of I/O.
	NodeAddress string
}

// Detect computes the profile from environment signals using os.Getenv.
func Detect() Profile {
	return DetectFrom(os.Getenv)
}

// DetectFrom computes the profile using an injected lookup, so tests can
// supply arbitrary environments.
func DetectFrom(lookup func(string) string) Profile {
	ci := lookup(EnvCI) == "true" || lookup(EnvGitHubActions) == "true"

	p := Profile{
		CI:                ci,
		TimeoutMultiplier: 1.0,
		AccessMode:        AccessLocal,
		NodeAddress:       lookup(EnvNodeAddress),
	}
	if ci {
		p.TimeoutMultiplier = ciMultiplier
		p.AccessMode = AccessCI
	}

	if raw := lookup(EnvMultiplier); raw != "" {
		if m, err := strconv.ParseFloat(raw, 64); err == nil && m >= 1.0 {
			p.TimeoutMultiplier = m
		}
	}

	return p
}

func (p Profile) String() string {
	return fmt.Sprintf("ci=%t multiplier=%g access=%s node=%s",
		p.CI, p.TimeoutMultiplier, p.AccessMode, p.NodeAddress)
}
