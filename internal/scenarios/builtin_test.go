package scenarios

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/hello-flask/cluster-tests/internal/config"
	"github.com/hello-flask/cluster-tests/internal/testutil"
	"github.com/hello-flask/cluster-tests/pkg/cluster"
	"github.com/hello-flask/cluster-tests/pkg/envprofile"
	"github.com/hello-flask/cluster-tests/pkg/poller"
	"github.com/hello-flask/cluster-tests/pkg/scenario"
	"github.com/hello-flask/cluster-tests/pkg/selector"
)

func localProfile() envprofile.Profile {
	return envprofile.Profile{TimeoutMultiplier: 1, AccessMode: envprofile.AccessLocal}
}

func newHarness(t *testing.T, profile envprofile.Profile, objects ...runtime.Object) (*scenario.Harness, *fake.Clientset) {
	t.Helper()
	clientset := fake.NewSimpleClientset(objects...)
	client := cluster.NewWithClientset(clientset, "default")
	cfg := config.Default()
	cfg.PollInterval = config.Duration{Duration: 10 * time.Millisecond}
	return scenario.NewHarness(client, cfg, profile), clientset
}

// appServer runs a stand-in for the hello-flask app and reports the Host
// header of the last request it saw.
func appServer(t *testing.T) (*httptest.Server, string, int32, *string) {
	t.Helper()
	var lastHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastHost = r.Host
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status": "healthy"}`))
		default:
			w.Write([]byte("Hello, World!"))
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return srv, host, int32(port), &lastHost
}

func TestAll_NamesAndTags(t *testing.T) {
	all := All()
	require.Len(t, all, 10)

	seen := map[string]bool{}
	for _, s := range all {
		assert.False(t, seen[s.Name], "duplicate scenario name %s", s.Name)
		seen[s.Name] = true
		assert.NotEmpty(t, s.Description)
		require.NotNil(t, s.Run)
	}

	// The destructive scenario must stay out of the default selection.
	crash := all[len(all)-1]
	require.Equal(t, "crash-recovery", crash.Name)
	assert.False(t, selector.ShouldRun(crash.Tags, selector.Default()))
}

func TestDeploymentReady(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Deployment("hello-flask", "default", 2, 2))

	require.NoError(t, deploymentReady(context.Background(), h))
}

func TestDeploymentReady_SkipsWhenAbsent(t *testing.T) {
	h, _ := newHarness(t, localProfile())

	err := deploymentReady(context.Background(), h)
	var skip *scenario.SkipError
	require.ErrorAs(t, err, &skip)
	assert.Contains(t, skip.Reason, "hello-flask")
}

func TestDeploymentReady_TimesOutBelowDesired(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Deployment("hello-flask", "default", 2, 1))
	h.Config.Timeouts.DeploymentReady = config.Duration{Duration: 50 * time.Millisecond}

	err := deploymentReady(context.Background(), h)
	var te *poller.TimeoutError
	require.ErrorAs(t, err, &te)
}

func TestPodsRunning(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Deployment("hello-flask", "default", 2, 2),
		testutil.Pod("hello-flask-a", "default", testutil.PodOpts{Phase: corev1.PodRunning, Ready: true}),
		testutil.Pod("hello-flask-b", "default", testutil.PodOpts{Phase: corev1.PodRunning, Ready: true}),
	)

	require.NoError(t, podsRunning(context.Background(), h))
}

func TestPodsRunning_FailsOnRestarts(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Deployment("hello-flask", "default", 1, 1),
		testutil.Pod("hello-flask-a", "default",
			testutil.PodOpts{Phase: corev1.PodRunning, Ready: true, RestartCount: 3}),
	)

	err := podsRunning(context.Background(), h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restarted 3 times")
}

func TestConfigMapWired(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Deployment("hello-flask", "default", 1, 1),
		testutil.ConfigMap("hello-flask-config", "default", map[string]string{"GREETING": "Hello"}),
	)

	require.NoError(t, configMapWired(context.Background(), h))
}

func TestConfigMapWired_DanglingReference(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Deployment("hello-flask", "default", 1, 1))

	err := configMapWired(context.Background(), h)
	var notFound *cluster.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "hello-flask-config", notFound.Name)
}

func TestSecretWired(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Deployment("hello-flask", "default", 1, 1),
		testutil.Secret("hello-flask-secret", "default", map[string][]byte{"secret": []byte("s3cr3t")}),
	)

	require.NoError(t, secretWired(context.Background(), h))
}

func TestNodePortReachable(t *testing.T) {
	_, host, port, _ := appServer(t)

	profile := localProfile()
	profile.NodeAddress = host
	h, _ := newHarness(t, profile,
		testutil.Service("hello-flask", "default", corev1.ServiceTypeNodePort, port))

	require.NoError(t, nodePortReachable(context.Background(), h))

	// The service was already NodePort, so restoration must be a no-op.
	svc, err := h.Cluster.Service(context.Background(), "hello-flask")
	require.NoError(t, err)
	assert.Equal(t, corev1.ServiceTypeNodePort, svc.ServiceType)
}

func TestNodePortRange(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Service("hello-flask", "default", corev1.ServiceTypeNodePort, 30080))
	require.NoError(t, nodePortRange(context.Background(), h))
}

func TestNodePortRange_OutsideRange(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Service("hello-flask", "default", corev1.ServiceTypeNodePort, 20000))

	err := nodePortRange(context.Background(), h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the default range")
}

func TestIngressReachable_SimulatesVirtualHost(t *testing.T) {
	_, host, port, lastHost := appServer(t)

	profile := envprofile.Profile{
		CI:                true,
		TimeoutMultiplier: 1,
		AccessMode:        envprofile.AccessCI,
		NodeAddress:       net.JoinHostPort(host, strconv.Itoa(int(port))),
	}
	h, _ := newHarness(t, profile,
		testutil.Ingress("hello-flask-ingress", "default", "hello-flask.local", "hello-flask", ""),
		testutil.Service("hello-flask", "default", corev1.ServiceTypeClusterIP, 0),
	)

	require.NoError(t, ingressReachable(context.Background(), h))
	assert.Equal(t, "hello-flask.local", *lastHost,
		"the request must carry the ingress host for virtual-host routing")
}

func TestIngressReachable_SkipsWhenAbsent(t *testing.T) {
	h, _ := newHarness(t, localProfile())

	err := ingressReachable(context.Background(), h)
	var skip *scenario.SkipError
	require.ErrorAs(t, err, &skip)
}

func TestIngressRoutesToService(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Ingress("hello-flask-ingress", "default", "hello-flask.local", "hello-flask", ""),
		testutil.Service("hello-flask", "default", corev1.ServiceTypeClusterIP, 0),
	)

	require.NoError(t, ingressRoutesToService(context.Background(), h))
}

func TestIngressRoutesToService_WrongBackend(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Ingress("hello-flask-ingress", "default", "hello-flask.local", "other-app", ""))

	err := ingressRoutesToService(context.Background(), h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `routes to service "other-app"`)
}

func TestHealthEndpoint(t *testing.T) {
	_, host, port, _ := appServer(t)

	profile := envprofile.Profile{
		CI:                true,
		TimeoutMultiplier: 1,
		AccessMode:        envprofile.AccessCI,
		NodeAddress:       net.JoinHostPort(host, strconv.Itoa(int(port))),
	}
	h, _ := newHarness(t, profile,
		testutil.Deployment("hello-flask", "default", 1, 1),
		testutil.Ingress("hello-flask-ingress", "default", "hello-flask.local", "hello-flask", ""),
	)

	require.NoError(t, healthEndpoint(context.Background(), h))
}

func TestCrashRecovery(t *testing.T) {
	h, clientset := newHarness(t, localProfile(),
		testutil.Pod("hello-flask-a", "default", testutil.PodOpts{Phase: corev1.PodRunning, Ready: true}),
		testutil.Pod("hello-flask-b", "default", testutil.PodOpts{Phase: corev1.PodRunning, Ready: true}),
	)
	ctx := context.Background()

	// The fake clientset has no ReplicaSet controller; stand in for it by
	// creating the replacement pod shortly after the delete.
	go func() {
		time.Sleep(30 * time.Millisecond)
		replacement := testutil.Pod("hello-flask-c", "default",
			testutil.PodOpts{Phase: corev1.PodRunning, Ready: true})
		clientset.CoreV1().Pods("default").Create(ctx, replacement, metav1.CreateOptions{})
	}()

	require.NoError(t, crashRecovery(ctx, h))

	_, err := h.Cluster.Pod(ctx, "hello-flask-a")
	assert.True(t, cluster.IsNotFound(err), "the victim pod must be gone")
}

func TestCrashRecovery_SkipsWithoutPods(t *testing.T) {
	h, _ := newHarness(t, localProfile())

	err := crashRecovery(context.Background(), h)
	var skip *scenario.SkipError
	require.ErrorAs(t, err, &skip)
}

func TestAll_UntaggedPassAgainstHealthyCluster(t *testing.T) {
	h, _ := newHarness(t, localProfile(),
		testutil.Deployment("hello-flask", "default", 1, 1),
		testutil.Pod("hello-flask-a", "default", testutil.PodOpts{Phase: corev1.PodRunning, Ready: true}),
		testutil.Service("hello-flask", "default", corev1.ServiceTypeClusterIP, 0),
		testutil.ConfigMap("hello-flask-config", "default", map[string]string{"GREETING": "Hello"}),
		testutil.Secret("hello-flask-secret", "default", map[string][]byte{"secret": []byte("s3cr3t")}),
	)

	runner := scenario.NewRunner(h, nil, nil)
	expr, err := selector.Parse("not manual and not ingress and not educational and not nodeport")
	require.NoError(t, err)

	results := runner.Run(context.Background(), All(), expr)
	require.Len(t, results, len(All()))
	for _, res := range results {
		assert.False(t, res.Failed(), "%s: %v", res.Scenario, res.Err)
	}
}
