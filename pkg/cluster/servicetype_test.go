package cluster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/hello-flask/cluster-tests/internal/testutil"
	"github.com/hello-flask/cluster-tests/pkg/cluster"
)

func TestSwitchServiceType_PatchAndRestore(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		testutil.Service("hello-flask", "default", corev1.ServiceTypeClusterIP, 0))
	client := cluster.NewWithClientset(clientset, "default")
	ctx := context.Background()

	restore, err := client.SwitchServiceType(ctx, "hello-flask", corev1.ServiceTypeNodePort)
	require.NoError(t, err)

	svc, err := client.Service(ctx, "hello-flask")
	require.NoError(t, err)
	assert.Equal(t, corev1.ServiceTypeNodePort, svc.ServiceType)

	require.NoError(t, restore(ctx))

	svc, err = client.Service(ctx, "hello-flask")
	require.NoError(t, err)
	assert.Equal(t, corev1.ServiceTypeClusterIP, svc.ServiceType)
}

func TestSwitchServiceType_MissingService(t *testing.T) {
	client := cluster.NewWithClientset(fake.NewSimpleClientset(), "default")

	_, err := client.SwitchServiceType(context.Background(), "missing", corev1.ServiceTypeNodePort)
	assert.True(t, cluster.IsNotFound(err))
}

func TestSwitchServiceType_RestoreRetriesOnce(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		testutil.Service("hello-flask", "default", corev1.ServiceTypeClusterIP, 0))
	client := cluster.NewWithClientset(clientset, "default")
	ctx := context.Background()

	restore, err := client.SwitchServiceType(ctx, "hello-flask", corev1.ServiceTypeNodePort)
	require.NoError(t, err)

	// Fail the next patch once; the retry should succeed.
	failures := 1
	clientset.PrependReactor("patch", "services",
		func(k8stesting.Action) (bool, runtime.Object, error) {
			if failures > 0 {
				failures--
				return true, nil, errors.New("transient apiserver hiccup")
			}
			return false, nil, nil
		})

	require.NoError(t, restore(ctx))

	svc, err := client.Service(ctx, "hello-flask")
	require.NoError(t, err)
	assert.Equal(t, corev1.ServiceTypeClusterIP, svc.ServiceType)
}

func TestSwitchServiceType_RestoreFailureIsCleanupError(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		testutil.Service("hello-flask", "default", corev1.ServiceTypeClusterIP, 0))
	client := cluster.NewWithClientset(clientset, "default")
	ctx := context.Background()

	restore, err := client.SwitchServiceType(ctx, "hello-flask", corev1.ServiceTypeNodePort)
	require.NoError(t, err)

	clientset.PrependReactor("patch", "services",
		func(k8stesting.Action) (bool, runtime.Object, error) {
			return true, nil, errors.New("cluster unreachable")
		})

	err = restore(ctx)
	require.Error(t, err)
	var ce *cluster.CleanupError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Op, "hello-flask")
}

func TestSwitchServiceType_NoopRestoreWhenAlreadyTarget(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		testutil.Service("hello-flask", "default", corev1.ServiceTypeNodePort, 30080))
	client := cluster.NewWithClientset(clientset, "default")
	ctx := context.Background()

	restore, err := client.SwitchServiceType(ctx, "hello-flask", corev1.ServiceTypeNodePort)
	require.NoError(t, err)

	patched := false
	clientset.PrependReactor("patch", "services",
		func(k8stesting.Action) (bool, runtime.Object, error) {
			patched = true
			return false, nil, nil
		})

	require.NoError(t, restore(ctx))
	assert.False(t, patched, "restore must not patch when the type never changed")
}
