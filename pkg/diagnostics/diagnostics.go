// Package diagnostics captures a structured snapshot of cluster state when
// a scenario fails, for inclusion in the failure report.
package diagnostics

import (
	"context"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hello-flask/cluster-tests/pkg/cluster"
)

// Scope defines which resources to capture.
type Scope struct {
	// LabelSelector finds the application pods.
	LabelSelector string

	// Names of the singleton resources to snapshot.
	DeploymentName string
	ServiceName    string
	IngressName    string

	// IncludeLogs also captures a log tail per pod.
	IncludeLogs bool
}

// FailureSnapshot aggregates the most recent resource snapshots for all
// tracked kinds. It is captured lazily, only on the failure path, and owned
// by the failing scenario's result.
type FailureSnapshot struct {
	CapturedAt time.Time

	Pods       []cluster.Snapshot
	Deployment *cluster.Snapshot
	Service    *cluster.Snapshot
	Ingress    *cluster.Snapshot

	Events  []string
	PodLogs map[string]string

	// Notes records partial capture failures. A failed individual fetch
	// during diagnostics is noted here rather than aborting the dump:
	// partial diagnostics beat none during an already-failing run.
	Notes []string
}

// Collector gathers a failure snapshot from the cluster.
type Collector interface {
	Capture(ctx context.Context, scope Scope) *FailureSnapshot
}

// Dump renders the snapshot as a nested key/value document for attachment
// to a failing verdict.
func (s *FailureSnapshot) Dump() string {
	doc := map[string]interface{}{
		"captured_at": s.CapturedAt.Format(time.RFC3339),
	}

	pods := make([]map[string]interface{}, 0, len(s.Pods))
	for _, pod := range s.Pods {
		pods = append(pods, map[string]interface{}{
			"name":     pod.Name,
			"phase":    string(pod.Phase),
			"ready":    pod.Ready,
			"restarts": pod.RestartCount,
		})
	}
	doc["pods"] = pods

	if s.Deployment != nil {
		doc["deployment"] = map[string]interface{}{
			"name":           s.Deployment.Name,
			"ready_replicas": s.Deployment.ReadyReplicas,
			"desired":        s.Deployment.DesiredReplicas,
		}
	}
	if s.Service != nil {
		doc["service"] = map[string]interface{}{
			"name":      s.Service.Name,
			"type":      string(s.Service.ServiceType),
			"port":      s.Service.Port,
			"node_port": s.Service.NodePort,
		}
	}
	if s.Ingress != nil {
		doc["ingress"] = map[string]interface{}{
			"name":    s.Ingress.Name,
			"host":    s.Ingress.IngressHost,
			"address": s.Ingress.IngressAddress,
			"backend": s.Ingress.BackendService,
		}
	}
	if len(s.Events) > 0 {
		doc["events"] = s.Events
	}
	if len(s.Notes) > 0 {
		doc["notes"] = s.Notes
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "failed to render diagnostics: " + err.Error()
	}
	return string(out)
}
