// Package testutil provides fake-clientset fixtures shared by the package
// tests. Objects mirror the hello-flask manifests the suite runs against.
package testutil

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

func intstrPort(port int32) intstr.IntOrString { return intstr.FromInt32(port) }

// AppLabels is the label set shared by all hello-flask resources.
var AppLabels = map[string]string{"app": "hello-flask"}

// PodOpts tweaks a pod fixture.
type PodOpts struct {
	Phase        corev1.PodPhase
	Ready        bool
	RestartCount int32
	Labels       map[string]string
}

// Pod builds a pod fixture. The zero PodOpts yields a pending, not-ready
// pod with the hello-flask labels.
func Pod(name, namespace string, opts PodOpts) *corev1.Pod {
	if opts.Phase == "" {
		opts.Phase = corev1.PodPending
	}
	if opts.Labels == nil {
		opts.Labels = AppLabels
	}
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: opts.Labels},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: "hello-flask", Image: "hello-flask:latest"}},
		},
		Status: corev1.PodStatus{
			Phase: opts.Phase,
			ContainerStatuses: []corev1.ContainerStatus{{
				Name:         "hello-flask",
				Ready:        opts.Ready,
				RestartCount: opts.RestartCount,
			}},
			Conditions: []corev1.PodCondition{{
				Type:   corev1.PodReady,
				Status: readyStatus(opts.Ready),
			}},
		},
	}
}

func readyStatus(ready bool) corev1.ConditionStatus {
	if ready {
		return corev1.ConditionTrue
	}
	return corev1.ConditionFalse
}

// Deployment builds a deployment fixture with HTTP readiness and liveness
// probes and env wiring to the app's config map and secret.
func Deployment(name, namespace string, desired, ready int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: AppLabels},
		Spec: appsv1.DeploymentSpec{
			Replicas: &desired,
			Selector: &metav1.LabelSelector{MatchLabels: AppLabels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: AppLabels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  "hello-flask",
						Image: "hello-flask:latest",
						ReadinessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{Path: "/ready", Port: intstrPort(5000)},
							},
							InitialDelaySeconds: 5,
							PeriodSeconds:       5,
							TimeoutSeconds:      2,
							FailureThreshold:    3,
						},
						LivenessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{Path: "/health", Port: intstrPort(5000)},
							},
						},
						EnvFrom: []corev1.EnvFromSource{{
							ConfigMapRef: &corev1.ConfigMapEnvSource{
								LocalObjectReference: corev1.LocalObjectReference{Name: name + "-config"},
							},
						}},
						Env: []corev1.EnvVar{{
							Name: "APP_SECRET",
							ValueFrom: &corev1.EnvVarSource{
								SecretKeyRef: &corev1.SecretKeySelector{
									LocalObjectReference: corev1.LocalObjectReference{Name: name + "-secret"},
									Key:                  "secret",
								},
							},
						}},
					}},
				},
			},
		},
		Status: appsv1.DeploymentStatus{ReadyReplicas: ready, Replicas: desired},
	}
}

// Service builds a service fixture of the given type. NodePort is only set
// when the type is NodePort.
func Service(name, namespace string, svcType corev1.ServiceType, nodePort int32) *corev1.Service {
	port := corev1.ServicePort{Port: 80}
	if svcType == corev1.ServiceTypeNodePort {
		port.NodePort = nodePort
	}
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: AppLabels},
		Spec: corev1.ServiceSpec{
			Type:      svcType,
			Selector:  AppLabels,
			Ports:     []corev1.ServicePort{port},
			ClusterIP: "10.96.0.10",
		},
	}
}

// Ingress builds an ingress fixture routing host traffic to the backend
// service, with an optional assigned load balancer address.
func Ingress(name, namespace, host, backendService, address string) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: AppLabels},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: backendService,
									Port: networkingv1.ServiceBackendPort{Number: 80},
								},
							},
						}},
					},
				},
			}},
		},
	}
	if address != "" {
		ing.Status.LoadBalancer.Ingress = []networkingv1.IngressLoadBalancerIngress{{IP: address}}
	}
	return ing
}

// ConfigMap builds a config map fixture.
func ConfigMap(name, namespace string, data map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: AppLabels},
		Data:       data,
	}
}

// Secret builds a secret fixture.
func Secret(name, namespace string, data map[string][]byte) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: AppLabels},
		Data:       data,
	}
}
