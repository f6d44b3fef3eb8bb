package diagnostics_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/hello-flask/cluster-tests/internal/testutil"
	"github.com/hello-flask/cluster-tests/pkg/cluster"
	"github.com/hello-flask/cluster-tests/pkg/diagnostics"
)

var scope = diagnostics.Scope{
	LabelSelector:  "app=hello-flask",
	DeploymentName: "hello-flask",
	ServiceName:    "hello-flask",
	IngressName:    "hello-flask-ingress",
}

func TestCapture_FullSnapshot(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		testutil.Pod("hello-flask-a", "default", testutil.PodOpts{Phase: corev1.PodRunning, Ready: true}),
		testutil.Pod("hello-flask-b", "default", testutil.PodOpts{Phase: corev1.PodPending}),
		testutil.Deployment("hello-flask", "default", 2, 1),
		testutil.Service("hello-flask", "default", corev1.ServiceTypeClusterIP, 0),
		testutil.Ingress("hello-flask-ingress", "default", "hello-flask.local", "hello-flask", ""),
	)
	collector := diagnostics.NewClusterCollector(cluster.NewWithClientset(clientset, "default"))

	snap := collector.Capture(context.Background(), scope)

	require.NotNil(t, snap)
	assert.Len(t, snap.Pods, 2)
	require.NotNil(t, snap.Deployment)
	assert.Equal(t, int32(1), snap.Deployment.ReadyReplicas)
	require.NotNil(t, snap.Service)
	require.NotNil(t, snap.Ingress)
	assert.Empty(t, snap.Notes)
	assert.False(t, snap.CapturedAt.IsZero())
}

func TestCapture_PartialFailureBecomesNote(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		testutil.Pod("hello-flask-a", "default", testutil.PodOpts{Phase: corev1.PodRunning, Ready: true}),
		testutil.Service("hello-flask", "default", corev1.ServiceTypeClusterIP, 0),
	)
	clientset.PrependReactor("get", "deployments",
		func(k8stesting.Action) (bool, runtime.Object, error) {
			return true, nil, errors.New("apiserver unavailable")
		})
	collector := diagnostics.NewClusterCollector(cluster.NewWithClientset(clientset, "default"))

	snap := collector.Capture(context.Background(), scope)

	require.NotNil(t, snap, "partial failure must not abort the dump")
	assert.Len(t, snap.Pods, 1)
	assert.Nil(t, snap.Deployment)
	require.NotEmpty(t, snap.Notes)
	assert.Contains(t, snap.Notes[0], "apiserver unavailable")

	// Missing ingress is a note too, not an error.
	var ingressNote bool
	for _, note := range snap.Notes {
		if strings.Contains(note, "Ingress") && strings.Contains(note, "not found") {
			ingressNote = true
		}
	}
	assert.True(t, ingressNote, "absent ingress should be noted: %v", snap.Notes)
}

func TestDump_NestedKeyValue(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		testutil.Pod("hello-flask-a", "default", testutil.PodOpts{Phase: corev1.PodRunning, Ready: true, RestartCount: 2}),
		testutil.Deployment("hello-flask", "default", 3, 3),
		testutil.Service("hello-flask", "default", corev1.ServiceTypeNodePort, 30080),
		testutil.Ingress("hello-flask-ingress", "default", "hello-flask.local", "hello-flask", "192.168.49.2"),
	)
	collector := diagnostics.NewClusterCollector(cluster.NewWithClientset(clientset, "default"))

	dump := collector.Capture(context.Background(), scope).Dump()

	assert.Contains(t, dump, "hello-flask-a")
	assert.Contains(t, dump, "phase: Running")
	assert.Contains(t, dump, "node_port: 30080")
	assert.Contains(t, dump, "host: hello-flask.local")
}
