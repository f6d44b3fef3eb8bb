// Package cluster provides thin, typed read access to the resources the
// test suite tracks (pods, deployment, service, ingress) plus the single
// mutating operation the suite performs: a temporary service type switch.
//
// Reads are single queries with no retries; waiting belongs to the poller
// so failure attribution stays unambiguous.
package cluster

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/u2takey/go-utils/filesystem/homedir"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// Client reads tracked resources within one working namespace.
type Client struct {
	clientset kubernetes.Interface
	namespace string
}

// New connects to the cluster via the given kubeconfig. An empty path falls
// back to ~/.kube/config; an empty namespace falls back to "default".
func New(kubeconfigPath, namespace string) (*Client, error) {
	if kubeconfigPath == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfigPath = filepath.Join(home, ".kube", "config")
		}
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("building kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return NewWithClientset(clientset, namespace), nil
}

// NewWithClientset wraps an injected clientset (for fakes in tests).
func NewWithClientset(clientset kubernetes.Interface, namespace string) *Client {
	if namespace == "" {
		namespace = "default"
	}
	return &Client{clientset: clientset, namespace: namespace}
}

// Namespace returns the working namespace.
func (c *Client) Namespace() string { return c.namespace }

func (c *Client) wrapGetError(err error, kind Kind, name string) error {
	if apierrors.IsNotFound(err) {
		return &NotFoundError{Kind: kind, Name: name, Namespace: c.namespace}
	}
	return &QueryError{Kind: kind, Name: name, Namespace: c.namespace, Err: err}
}

// Pods lists pods matching the label selector. An empty result is not an
// error; list failures are query errors.
func (c *Client) Pods(ctx context.Context, labelSelector string) ([]Snapshot, error) {
	list, err := c.clientset.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, &QueryError{Kind: KindPod, Name: labelSelector, Namespace: c.namespace, Err: err}
	}

	snapshots := make([]Snapshot, 0, len(list.Items))
	for i := range list.Items {
		snapshots = append(snapshots, podSnapshot(&list.Items[i]))
	}
	return snapshots, nil
}

// Pod reads a single pod by name.
func (c *Client) Pod(ctx context.Context, name string) (Snapshot, error) {
	pod, err := c.clientset.CoreV1().Pods(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return Snapshot{}, c.wrapGetError(err, KindPod, name)
	}
	return podSnapshot(pod), nil
}

// RunningPods returns the subset of matching pods that are Running with all
// containers ready.
func (c *Client) RunningPods(ctx context.Context, labelSelector string) ([]Snapshot, error) {
	pods, err := c.Pods(ctx, labelSelector)
	if err != nil {
		return nil, err
	}
	running := pods[:0:0]
	for _, pod := range pods {
		if pod.Phase == corev1.PodRunning && pod.Ready {
			running = append(running, pod)
		}
	}
	return running, nil
}

// ReadyPodCount counts matching pods that are Running and ready.
func (c *Client) ReadyPodCount(ctx context.Context, labelSelector string) (int, error) {
	running, err := c.RunningPods(ctx, labelSelector)
	if err != nil {
		return 0, err
	}
	return len(running), nil
}

// Deployment reads a deployment by name.
func (c *Client) Deployment(ctx context.Context, name string) (Snapshot, error) {
	dep, err := c.clientset.AppsV1().Deployments(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return Snapshot{}, c.wrapGetError(err, KindDeployment, name)
	}
	return deploymentSnapshot(dep), nil
}

// Service reads a service by name.
func (c *Client) Service(ctx context.Context, name string) (Snapshot, error) {
	svc, err := c.clientset.CoreV1().Services(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return Snapshot{}, c.wrapGetError(err, KindService, name)
	}
	return serviceSnapshot(svc), nil
}

// Ingress reads an ingress by name.
func (c *Client) Ingress(ctx context.Context, name string) (Snapshot, error) {
	ing, err := c.clientset.NetworkingV1().Ingresses(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return Snapshot{}, c.wrapGetError(err, KindIngress, name)
	}
	return ingressSnapshot(ing), nil
}

// ConfigMap reads a config map by name.
func (c *Client) ConfigMap(ctx context.Context, name string) (Snapshot, error) {
	cm, err := c.clientset.CoreV1().ConfigMaps(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return Snapshot{}, c.wrapGetError(err, KindConfigMap, name)
	}
	return configMapSnapshot(cm), nil
}

// Secret reads a secret by name.
func (c *Client) Secret(ctx context.Context, name string) (Snapshot, error) {
	sec, err := c.clientset.CoreV1().Secrets(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return Snapshot{}, c.wrapGetError(err, KindSecret, name)
	}
	return secretSnapshot(sec), nil
}

// PodLogs fetches the last tail lines of a pod's logs.
func (c *Client) PodLogs(ctx context.Context, name string, tail int64) (string, error) {
	req := c.clientset.CoreV1().Pods(c.namespace).GetLogs(name, &corev1.PodLogOptions{
		TailLines: &tail,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", c.wrapGetError(err, KindPod, name)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return "", &QueryError{Kind: KindPod, Name: name, Namespace: c.namespace, Err: err}
	}
	return string(data), nil
}

// DeletePod deletes a pod without waiting for it to disappear. Used by the
// manual crash-recovery scenario to exercise ReplicaSet self-healing.
func (c *Client) DeletePod(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Pods(c.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil {
		return c.wrapGetError(err, KindPod, name)
	}
	return nil
}

// Events lists events in the working namespace, formatted for diagnostics.
func (c *Client) Events(ctx context.Context) ([]string, error) {
	events, err := c.clientset.CoreV1().Events(c.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, &QueryError{Kind: "Event", Namespace: c.namespace, Err: err}
	}

	lines := make([]string, 0, len(events.Items))
	for _, ev := range events.Items {
		lines = append(lines, fmt.Sprintf("%s %s/%s: %s (%s)",
			ev.LastTimestamp.Format("15:04:05"),
			ev.InvolvedObject.Kind,
			ev.InvolvedObject.Name,
			ev.Message,
			ev.Reason,
		))
	}
	return lines, nil
}
