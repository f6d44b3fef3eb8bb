package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/hello-flask/cluster-tests/pkg/cluster"
)

// logTailLines bounds how much log output is pulled per pod on failure.
const logTailLines = 200

// ClusterCollector captures failure snapshots from a live cluster through
// the resource accessor.
type ClusterCollector struct {
	Client *cluster.Client
}

// NewClusterCollector creates a collector over the given accessor.
func NewClusterCollector(client *cluster.Client) *ClusterCollector {
	return &ClusterCollector{Client: client}
}

// Capture gathers the current state of all tracked resources, best-effort.
// Individual fetch failures are recorded as notes and never abort the dump.
func (c *ClusterCollector) Capture(ctx context.Context, scope Scope) *FailureSnapshot {
	snap := &FailureSnapshot{
		CapturedAt: time.Now(),
		PodLogs:    make(map[string]string),
	}

	pods, err := c.Client.Pods(ctx, scope.LabelSelector)
	if err != nil {
		snap.Notes = append(snap.Notes, fmt.Sprintf("listing pods: %v", err))
	} else {
		snap.Pods = pods
	}

	snap.Deployment = c.captureOne(ctx, snap, cluster.KindDeployment, scope.DeploymentName, c.Client.Deployment)
	snap.Service = c.captureOne(ctx, snap, cluster.KindService, scope.ServiceName, c.Client.Service)
	snap.Ingress = c.captureOne(ctx, snap, cluster.KindIngress, scope.IngressName, c.Client.Ingress)

	events, err := c.Client.Events(ctx)
	if err != nil {
		snap.Notes = append(snap.Notes, fmt.Sprintf("listing events: %v", err))
	} else {
		snap.Events = events
	}

	if scope.IncludeLogs {
		for _, pod := range snap.Pods {
			logs, err := c.Client.PodLogs(ctx, pod.Name, logTailLines)
			if err != nil {
				snap.Notes = append(snap.Notes, fmt.Sprintf("logs for pod %s: %v", pod.Name, err))
				continue
			}
			snap.PodLogs[pod.Name] = logs
		}
	}

	return snap
}

func (c *ClusterCollector) captureOne(ctx context.Context, snap *FailureSnapshot, kind cluster.Kind, name string,
	get func(context.Context, string) (cluster.Snapshot, error)) *cluster.Snapshot {

	if name == "" {
		return nil
	}
	s, err := get(ctx, name)
	if err != nil {
		snap.Notes = append(snap.Notes, fmt.Sprintf("%s %s: %v", kind, name, err))
		return nil
	}
	return &s
}
