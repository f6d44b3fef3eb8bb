// Package scenarios defines the built-in scenario set for the hello-flask
// deployment: workload health, configuration wiring, and the three exposure
// modes (NodePort, Ingress, ClusterIP).
package scenarios

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/hello-flask/cluster-tests/pkg/cluster"
	"github.com/hello-flask/cluster-tests/pkg/poller"
	"github.com/hello-flask/cluster-tests/pkg/scenario"
	"github.com/hello-flask/cluster-tests/pkg/selector"
)

// All returns the built-in scenarios in execution order. Untagged scenarios
// run everywhere; tagged ones are opted in or out through the selection
// expression.
func All() []scenario.Scenario {
	return []scenario.Scenario{
		{
			Name:        "deployment-ready",
			Description: "deployment reaches its desired replica count and carries HTTP probes",
			Tags:        selector.MustTagSet(),
			Run:         deploymentReady,
		},
		{
			Name:        "pods-running",
			Description: "every desired pod is Running with all containers ready",
			Tags:        selector.MustTagSet(),
			Run:         podsRunning,
		},
		{
			Name:        "configmap-wired",
			Description: "the deployment references config maps that actually exist",
			Tags:        selector.MustTagSet(),
			Run:         configMapWired,
		},
		{
			Name:        "secret-wired",
			Description: "the deployment references secrets that actually exist",
			Tags:        selector.MustTagSet(),
			Run:         secretWired,
		},
		{
			Name:        "service-nodeport-reachable",
			Description: "the service answers over a temporarily assigned node port",
			Tags:        selector.MustTagSet(selector.TagNodePort),
			Run:         nodePortReachable,
		},
		{
			Name:        "nodeport-range",
			Description: "the assigned node port falls inside the default 30000-32767 range",
			Tags:        selector.MustTagSet(selector.TagNodePort),
			Run:         nodePortRange,
		},
		{
			Name:        "ingress-reachable",
			Description: "the application answers through the ingress virtual host",
			Tags:        selector.MustTagSet(selector.TagIngress),
			Run:         ingressReachable,
		},
		{
			Name:        "ingress-routes-to-service",
			Description: "the ingress backend points at the service under test",
			Tags:        selector.MustTagSet(selector.TagIngress),
			Run:         ingressRoutesToService,
		},
		{
			Name:        "health-endpoint",
			Description: "the liveness endpoint answers 200 through the ingress",
			Tags:        selector.MustTagSet(selector.TagEducational),
			Run:         healthEndpoint,
		},
		{
			Name:        "crash-recovery",
			Description: "deleting a pod triggers replacement back to full readiness",
			Tags:        selector.MustTagSet(selector.TagManual, selector.TagSlow),
			Run:         crashRecovery,
		},
	}
}

// trackedDeployment reads the deployment under test, converting absence into
// a skip: the suite is pointed at a cluster the app was never deployed to.
func trackedDeployment(ctx context.Context, h *scenario.Harness) (cluster.Snapshot, error) {
	dep, err := h.Cluster.Deployment(ctx, h.Config.Deployment)
	if cluster.IsNotFound(err) {
		return cluster.Snapshot{}, scenario.Skip("deployment %s not found in namespace %s",
			h.Config.Deployment, h.Cluster.Namespace())
	}
	return dep, err
}

func deploymentReady(ctx context.Context, h *scenario.Harness) error {
	if _, err := trackedDeployment(ctx, h); err != nil {
		return err
	}

	dep, err := poller.WaitUntil(ctx, h.WaitSpec(h.Config.Timeouts.DeploymentReady.Duration),
		func(ctx context.Context) (cluster.Snapshot, error) {
			return h.Cluster.Deployment(ctx, h.Config.Deployment)
		},
		func(d cluster.Snapshot) bool {
			return d.DesiredReplicas > 0 && d.ReadyReplicas == d.DesiredReplicas
		},
	)
	if err != nil {
		return fmt.Errorf("waiting for deployment %s: %w", h.Config.Deployment, err)
	}

	if dep.ReadinessProbePath == "" {
		return fmt.Errorf("deployment %s has no HTTP readiness probe", dep.Name)
	}
	if dep.LivenessProbePath == "" {
		return fmt.Errorf("deployment %s has no HTTP liveness probe", dep.Name)
	}
	return nil
}

func podsRunning(ctx context.Context, h *scenario.Harness) error {
	dep, err := trackedDeployment(ctx, h)
	if err != nil {
		return err
	}
	desired := int(dep.DesiredReplicas)
	if desired < 1 {
		desired = 1
	}

	pods, err := poller.WaitUntil(ctx, h.WaitSpec(h.Config.Timeouts.PodReady.Duration),
		func(ctx context.Context) ([]cluster.Snapshot, error) {
			return h.Cluster.RunningPods(ctx, h.Config.LabelSelector)
		},
		func(pods []cluster.Snapshot) bool { return len(pods) >= desired },
	)
	if err != nil {
		return fmt.Errorf("waiting for %d running pods matching %s: %w",
			desired, h.Config.LabelSelector, err)
	}

	for _, pod := range pods {
		if pod.RestartCount > 0 {
			return fmt.Errorf("pod %s has restarted %d times", pod.Name, pod.RestartCount)
		}
	}
	return nil
}

func configMapWired(ctx context.Context, h *scenario.Harness) error {
	dep, err := trackedDeployment(ctx, h)
	if err != nil {
		return err
	}
	if len(dep.ConfigMapRefs) == 0 {
		return fmt.Errorf("deployment %s references no config map", dep.Name)
	}
	for _, name := range dep.ConfigMapRefs {
		if _, err := h.Cluster.ConfigMap(ctx, name); err != nil {
			return fmt.Errorf("deployment %s references config map %s: %w", dep.Name, name, err)
		}
	}
	return nil
}

func secretWired(ctx context.Context, h *scenario.Harness) error {
	dep, err := trackedDeployment(ctx, h)
	if err != nil {
		return err
	}
	if len(dep.SecretRefs) == 0 {
		return fmt.Errorf("deployment %s references no secret", dep.Name)
	}
	for _, name := range dep.SecretRefs {
		if _, err := h.Cluster.Secret(ctx, name); err != nil {
			return fmt.Errorf("deployment %s references secret %s: %w", dep.Name, name, err)
		}
	}
	return nil
}

func nodePortReachable(ctx context.Context, h *scenario.Harness) error {
	return h.WithNodePortService(ctx, func(svc cluster.Snapshot) error {
		target, err := h.Resolver.NodePort(svc)
		if err != nil {
			return err
		}
		status, body, err := h.Probe(ctx, target, "/")
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("GET %s/ returned %d, want %d", target.URL, status, http.StatusOK)
		}
		if !strings.Contains(body, "Hello") {
			return fmt.Errorf("GET %s/ returned unexpected body %s", target.URL, snippet(body))
		}
		return nil
	})
}

func nodePortRange(ctx context.Context, h *scenario.Harness) error {
	return h.WithNodePortService(ctx, func(svc cluster.Snapshot) error {
		if svc.NodePort < 30000 || svc.NodePort > 32767 {
			return fmt.Errorf("node port %d is outside the default range 30000-32767", svc.NodePort)
		}
		return nil
	})
}

// trackedIngress reads the ingress under test, skipping when none is
// deployed (plain NodePort setups have no ingress controller at all).
func trackedIngress(ctx context.Context, h *scenario.Harness) (cluster.Snapshot, error) {
	if h.Config.Ingress == "" {
		return cluster.Snapshot{}, scenario.Skip("no ingress configured")
	}
	ing, err := h.Cluster.Ingress(ctx, h.Config.Ingress)
	if cluster.IsNotFound(err) {
		return cluster.Snapshot{}, scenario.Skip("ingress %s not found in namespace %s",
			h.Config.Ingress, h.Cluster.Namespace())
	}
	return ing, err
}

func ingressReachable(ctx context.Context, h *scenario.Harness) error {
	if _, err := trackedIngress(ctx, h); err != nil {
		return err
	}

	// Ingress routing is exercised against the plain ClusterIP service; a
	// leftover NodePort type means a previous restore failed.
	svc, err := h.Cluster.Service(ctx, h.Config.Service)
	if err != nil {
		return err
	}
	if svc.ServiceType != corev1.ServiceTypeClusterIP {
		return fmt.Errorf("service %s has type %s, want %s behind the ingress",
			svc.Name, svc.ServiceType, corev1.ServiceTypeClusterIP)
	}

	ing, err := poller.WaitUntil(ctx, h.WaitSpec(h.Config.Timeouts.IngressReady.Duration),
		func(ctx context.Context) (cluster.Snapshot, error) {
			return h.Cluster.Ingress(ctx, h.Config.Ingress)
		},
		func(ing cluster.Snapshot) bool { return ing.IngressHost != "" },
	)
	if err != nil {
		return fmt.Errorf("waiting for ingress %s rule: %w", h.Config.Ingress, err)
	}

	target, err := h.Resolver.Ingress(ing)
	if err != nil {
		return err
	}
	status, body, err := h.Probe(ctx, target, "/")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GET %s/ returned %d, want %d", target.URL, status, http.StatusOK)
	}
	if !strings.Contains(body, "Hello") {
		return fmt.Errorf("GET %s/ returned unexpected body %s", target.URL, snippet(body))
	}
	return nil
}

func ingressRoutesToService(ctx context.Context, h *scenario.Harness) error {
	ing, err := trackedIngress(ctx, h)
	if err != nil {
		return err
	}
	if ing.BackendService != h.Config.Service {
		return fmt.Errorf("ingress %s routes to service %q, want %q",
			ing.Name, ing.BackendService, h.Config.Service)
	}
	if _, err := h.Cluster.Service(ctx, h.Config.Service); err != nil {
		return fmt.Errorf("ingress backend service: %w", err)
	}
	return nil
}

func healthEndpoint(ctx context.Context, h *scenario.Harness) error {
	ing, err := trackedIngress(ctx, h)
	if err != nil {
		return err
	}

	path := "/health"
	if dep, err := trackedDeployment(ctx, h); err == nil && dep.LivenessProbePath != "" {
		path = dep.LivenessProbePath
	}

	target, err := h.Resolver.Ingress(ing)
	if err != nil {
		return err
	}
	status, _, err := h.Probe(ctx, target, path)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GET %s%s returned %d, want %d", target.URL, path, status, http.StatusOK)
	}
	return nil
}

func crashRecovery(ctx context.Context, h *scenario.Harness) error {
	running, err := h.Cluster.RunningPods(ctx, h.Config.LabelSelector)
	if err != nil {
		return err
	}
	if len(running) == 0 {
		return scenario.Skip("no running pods matching %s", h.Config.LabelSelector)
	}

	victim := running[0].Name
	if err := h.Cluster.DeletePod(ctx, victim); err != nil {
		return fmt.Errorf("deleting pod %s: %w", victim, err)
	}

	_, err = poller.WaitUntil(ctx, h.WaitSpec(h.Config.Timeouts.PodReady.Duration),
		func(ctx context.Context) ([]cluster.Snapshot, error) {
			return h.Cluster.RunningPods(ctx, h.Config.LabelSelector)
		},
		func(pods []cluster.Snapshot) bool {
			if len(pods) < len(running) {
				return false
			}
			for _, pod := range pods {
				if pod.Name == victim {
					return false
				}
			}
			return true
		},
	)
	if err != nil {
		return fmt.Errorf("waiting for replacement of pod %s: %w", victim, err)
	}
	return nil
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 80 {
		body = body[:80] + "..."
	}
	return fmt.Sprintf("%q", body)
}
