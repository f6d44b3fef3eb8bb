package cluster

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// Kind identifies one of the tracked resource kinds.
type Kind string

const (
	KindPod        Kind = "Pod"
	KindDeployment Kind = "Deployment"
	KindService    Kind = "Service"
	KindIngress    Kind = "Ingress"
	KindConfigMap  Kind = "ConfigMap"
	KindSecret     Kind = "Secret"
)

// Snapshot is an immutable point-in-time read of one cluster resource.
// Only the fields relevant to the snapshot's kind are populated; Raw holds
// the full object for diagnostic dumps.
type Snapshot struct {
	Kind      Kind
	Name      string
	Namespace string

	// Pod fields.
	Phase        corev1.PodPhase
	Ready        bool
	RestartCount int32

	// Deployment fields.
	DesiredReplicas    int32
	ReadyReplicas      int32
	ReadinessProbePath string
	LivenessProbePath  string
	ConfigMapRefs      []string
	SecretRefs         []string

	// Service fields.
	ServiceType corev1.ServiceType
	Port        int32
	NodePort    int32
	ClusterIP   string

	// Ingress fields.
	IngressHost    string
	IngressAddress string
	BackendService string

	// Raw is the full object as read, for diagnostics. Never mutated.
	Raw runtime.Object
}

func podSnapshot(pod *corev1.Pod) Snapshot {
	s := Snapshot{
		Kind:      KindPod,
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     pod.Status.Phase,
		Raw:       pod,
	}

	// A pod counts as ready only when every container reports ready, the
	// same rule the original readiness checks used.
	s.Ready = len(pod.Status.ContainerStatuses) > 0
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			s.Ready = false
		}
		if cs.RestartCount > s.RestartCount {
			s.RestartCount = cs.RestartCount
		}
	}
	return s
}

func deploymentSnapshot(dep *appsv1.Deployment) Snapshot {
	s := Snapshot{
		Kind:          KindDeployment,
		Name:          dep.Name,
		Namespace:     dep.Namespace,
		ReadyReplicas: dep.Status.ReadyReplicas,
		Raw:           dep,
	}
	if dep.Spec.Replicas != nil {
		s.DesiredReplicas = *dep.Spec.Replicas
	}

	for _, container := range dep.Spec.Template.Spec.Containers {
		if p := container.ReadinessProbe; p != nil && p.HTTPGet != nil && s.ReadinessProbePath == "" {
			s.ReadinessProbePath = p.HTTPGet.Path
		}
		if p := container.LivenessProbe; p != nil && p.HTTPGet != nil && s.LivenessProbePath == "" {
			s.LivenessProbePath = p.HTTPGet.Path
		}
		for _, envFrom := range container.EnvFrom {
			if envFrom.ConfigMapRef != nil {
				s.ConfigMapRefs = append(s.ConfigMapRefs, envFrom.ConfigMapRef.Name)
			}
			if envFrom.SecretRef != nil {
				s.SecretRefs = append(s.SecretRefs, envFrom.SecretRef.Name)
			}
		}
		for _, env := range container.Env {
			if env.ValueFrom == nil {
				continue
			}
			if ref := env.ValueFrom.ConfigMapKeyRef; ref != nil {
				s.ConfigMapRefs = append(s.ConfigMapRefs, ref.Name)
			}
			if ref := env.ValueFrom.SecretKeyRef; ref != nil {
				s.SecretRefs = append(s.SecretRefs, ref.Name)
			}
		}
	}
	return s
}

func serviceSnapshot(svc *corev1.Service) Snapshot {
	s := Snapshot{
		Kind:        KindService,
		Name:        svc.Name,
		Namespace:   svc.Namespace,
		ServiceType: svc.Spec.Type,
		ClusterIP:   svc.Spec.ClusterIP,
		Raw:         svc,
	}
	if len(svc.Spec.Ports) > 0 {
		s.Port = svc.Spec.Ports[0].Port
		s.NodePort = svc.Spec.Ports[0].NodePort
	}
	return s
}

func ingressSnapshot(ing *networkingv1.Ingress) Snapshot {
	s := Snapshot{
		Kind:      KindIngress,
		Name:      ing.Name,
		Namespace: ing.Namespace,
		Raw:       ing,
	}
	if len(ing.Spec.Rules) > 0 {
		rule := ing.Spec.Rules[0]
		s.IngressHost = rule.Host
		if rule.HTTP != nil && len(rule.HTTP.Paths) > 0 {
			s.BackendService = rule.HTTP.Paths[0].Backend.Service.Name
		}
	}
	for _, lb := range ing.Status.LoadBalancer.Ingress {
		if lb.IP != "" {
			s.IngressAddress = lb.IP
			break
		}
		if lb.Hostname != "" {
			s.IngressAddress = lb.Hostname
			break
		}
	}
	return s
}

func configMapSnapshot(cm *corev1.ConfigMap) Snapshot {
	return Snapshot{Kind: KindConfigMap, Name: cm.Name, Namespace: cm.Namespace, Raw: cm}
}

func secretSnapshot(sec *corev1.Secret) Snapshot {
	return Snapshot{Kind: KindSecret, Name: sec.Name, Namespace: sec.Namespace, Raw: sec}
}
