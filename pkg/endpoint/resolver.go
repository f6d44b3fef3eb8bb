// Package endpoint computes reachable URLs for the service under test
// across the different exposure modes. Resolution is pure: it only builds a
// target description from snapshots and the environment profile, never
// performing network I/O itself, which keeps it directly testable.
package endpoint

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/hello-flask/cluster-tests/pkg/cluster"
	"github.com/hello-flask/cluster-tests/pkg/envprofile"
)

// Mode is the desired access mode for a resolution.
type Mode string

const (
	ModeNodePort Mode = "nodeport"
	ModeIngress  Mode = "ingress"
)

// Target describes how to reach the service: the URL to probe, an optional
// Host header for virtual-host routing, and whether a port-forward would be
// needed (ClusterIP without ingress).
type Target struct {
	URL                 string
	HostHeader          string
	RequiresPortForward bool
}

// InvalidServiceTypeError reports a precondition violation: resolving a
// NodePort endpoint against a service that is not currently of that type.
// Callers must switch the service type first and restore it afterwards.
type InvalidServiceTypeError struct {
	Service string
	Got     corev1.ServiceType
	Want    corev1.ServiceType
}

func (e *InvalidServiceTypeError) Error() string {
	return fmt.Sprintf("service %s has type %s, want %s", e.Service, e.Got, e.Want)
}

// Resolver computes endpoint targets for one environment profile.
type Resolver struct {
	Profile envprofile.Profile

	// LocalHost is the configured ingress hostname, used when the ingress
	// rule carries no host of its own.
	LocalHost string
}

// Resolve dispatches on the access mode. The service snapshot is consulted
// for NodePort mode, the ingress snapshot for Ingress mode.
func (r Resolver) Resolve(mode Mode, svc, ing cluster.Snapshot) (Target, error) {
	switch mode {
	case ModeNodePort:
		return r.NodePort(svc)
	case ModeIngress:
		return r.Ingress(ing)
	default:
		return Target{}, fmt.Errorf("unknown access mode %q", mode)
	}
}

// NodePort resolves the target for a NodePort service: the cluster node
// address plus the assigned node port.
func (r Resolver) NodePort(svc cluster.Snapshot) (Target, error) {
	if svc.ServiceType != corev1.ServiceTypeNodePort {
		return Target{}, &InvalidServiceTypeError{
			Service: svc.Name,
			Got:     svc.ServiceType,
			Want:    corev1.ServiceTypeNodePort,
		}
	}
	if svc.NodePort == 0 {
		return Target{}, fmt.Errorf("service %s has no node port assigned yet", svc.Name)
	}
	if r.Profile.NodeAddress == "" {
		return Target{}, fmt.Errorf("no cluster node address configured (set %s)", envprofile.EnvNodeAddress)
	}
	return Target{URL: fmt.Sprintf("http://%s:%d", r.Profile.NodeAddress, svc.NodePort)}, nil
}

// Ingress resolves the target for ingress-based access.
//
// Locally the ingress hostname is assumed resolvable (an /etc/hosts entry)
// and targeted directly. In CI the hostname cannot be resolved via DNS, so
// the URL uses the cluster entry-point address and the virtual host is
// simulated with a Host header.
func (r Resolver) Ingress(ing cluster.Snapshot) (Target, error) {
	host := ing.IngressHost
	if host == "" {
		host = r.LocalHost
	}
	if host == "" {
		return Target{}, fmt.Errorf("ingress %s has no host and no local hostname is configured", ing.Name)
	}

	if r.Profile.AccessMode == envprofile.AccessCI && r.Profile.NodeAddress != "" {
		return Target{
			URL:        "http://" + r.Profile.NodeAddress,
			HostHeader: host,
		}, nil
	}
	return Target{URL: "http://" + host}, nil
}

// ClusterIP resolves a target for in-cluster-only access. There is nothing
// routable from outside, so the target is flagged as needing a
// port-forward; educational scenarios use this to demonstrate the
// difference between exposure modes.
func (r Resolver) ClusterIP(svc cluster.Snapshot) (Target, error) {
	if svc.ClusterIP == "" {
		return Target{}, fmt.Errorf("service %s has no cluster IP", svc.Name)
	}
	return Target{
		URL:                 fmt.Sprintf("http://%s:%d", svc.ClusterIP, svc.Port),
		RequiresPortForward: true,
	}, nil
}
