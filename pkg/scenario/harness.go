package scenario

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/hello-flask/cluster-tests/internal/config"
	"github.com/hello-flask/cluster-tests/pkg/cluster"
	"github.com/hello-flask/cluster-tests/pkg/endpoint"
	"github.com/hello-flask/cluster-tests/pkg/envprofile"
	"github.com/hello-flask/cluster-tests/pkg/poller"
)

// Harness is what a scenario body gets to work with: the resource
// accessor, endpoint resolver, environment profile, and wait-spec
// construction with the session's timeout scaling baked in.
type Harness struct {
	Cluster  *cluster.Client
	Resolver endpoint.Resolver
	Profile  envprofile.Profile
	Config   config.Config

	// HTTPClient performs endpoint probes. Replaceable in tests.
	HTTPClient *http.Client

	// Warnf receives transient-condition warnings (flaky reads seen by the
	// poller). Nil means silent.
	Warnf func(format string, args ...interface{})

	// serviceTypeMu serializes the one mutating operation: no other
	// scenario may run while the service type is temporarily switched.
	serviceTypeMu sync.Mutex

	cleanupMu  sync.Mutex
	cleanupErr error
}

// NewHarness wires a harness for one test session.
func NewHarness(client *cluster.Client, cfg config.Config, profile envprofile.Profile) *Harness {
	if cfg.NodeAddress != "" {
		profile.NodeAddress = cfg.NodeAddress
	}
	return &Harness{
		Cluster: client,
		Resolver: endpoint.Resolver{
			Profile:   profile,
			LocalHost: cfg.IngressHost,
		},
		Profile:    profile,
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: cfg.Timeouts.HTTPRequest.Duration},
	}
}

// WaitSpec builds a poll spec for the given base timeout, applying the
// configured poll interval and the environment's timeout multiplier.
func (h *Harness) WaitSpec(base time.Duration) poller.WaitSpec {
	return poller.WaitSpec{
		Interval:   h.Config.PollInterval.Duration,
		Timeout:    base,
		Multiplier: h.Profile.TimeoutMultiplier,
		Warnf:      h.Warnf,
	}
}

// WithNodePortService switches the service to NodePort, waits for a node
// port to be assigned, runs fn with the fresh service snapshot, and
// restores the original type on every exit path, including fn failure and
// poller timeout. A restore failure is recorded as the scenario's cleanup
// error rather than replacing fn's result.
func (h *Harness) WithNodePortService(ctx context.Context, fn func(svc cluster.Snapshot) error) error {
	h.serviceTypeMu.Lock()
	defer h.serviceTypeMu.Unlock()

	restore, err := h.Cluster.SwitchServiceType(ctx, h.Config.Service, corev1.ServiceTypeNodePort)
	if err != nil {
		return fmt.Errorf("switching service %s to NodePort: %w", h.Config.Service, err)
	}
	defer func() {
		if rerr := restore(ctx); rerr != nil {
			h.recordCleanupFailure(rerr)
		}
	}()

	svc, err := poller.WaitUntil(ctx, h.WaitSpec(h.Config.Timeouts.ServiceReady.Duration),
		func(ctx context.Context) (cluster.Snapshot, error) {
			return h.Cluster.Service(ctx, h.Config.Service)
		},
		func(svc cluster.Snapshot) bool {
			return svc.ServiceType == corev1.ServiceTypeNodePort && svc.NodePort != 0
		},
	)
	if err != nil {
		return fmt.Errorf("waiting for node port on service %s: %w", h.Config.Service, err)
	}

	return fn(svc)
}

// Probe performs an HTTP GET against the target, setting the Host header
// when the target requires virtual-host simulation. The response body is
// returned for content assertions.
func (h *Harness) Probe(ctx context.Context, target endpoint.Target, path string) (int, string, error) {
	if target.RequiresPortForward {
		return 0, "", fmt.Errorf("target %s requires a port-forward and cannot be probed directly", target.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL+path, nil)
	if err != nil {
		return 0, "", err
	}
	if target.HostHeader != "" {
		req.Host = target.HostHeader
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("probing %s: %w", target.URL+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading response from %s: %w", target.URL+path, err)
	}
	return resp.StatusCode, string(body), nil
}

func (h *Harness) recordCleanupFailure(err error) {
	h.cleanupMu.Lock()
	defer h.cleanupMu.Unlock()
	if h.cleanupErr == nil {
		h.cleanupErr = err
	}
}

// takeCleanupFailure returns and clears the recorded cleanup failure; the
// runner calls it after each scenario.
func (h *Harness) takeCleanupFailure() error {
	h.cleanupMu.Lock()
	defer h.cleanupMu.Unlock()
	err := h.cleanupErr
	h.cleanupErr = nil
	return err
}
