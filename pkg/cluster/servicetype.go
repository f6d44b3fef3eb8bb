package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// SwitchServiceType patches a service's spec.type and returns a restore
// function that switches it back to what it was. This is the only mutation
// the suite performs against the cluster; callers must invoke restore on
// every exit path, including assertion failure and poller timeout.
//
// Restore is attempted twice before giving up; a final failure comes back
// as a CleanupError so it is never mistaken for the scenario's own failure.
func (c *Client) SwitchServiceType(ctx context.Context, name string, target corev1.ServiceType) (restore func(context.Context) error, err error) {
	svc, err := c.clientset.CoreV1().Services(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, c.wrapGetError(err, KindService, name)
	}
	original := svc.Spec.Type

	if err := c.patchServiceType(ctx, name, target); err != nil {
		return nil, err
	}

	restore = func(ctx context.Context) error {
		if original == target {
			return nil
		}
		err := c.patchServiceType(ctx, name, original)
		if err != nil {
			// One retry: restoration failures leave the cluster in the
			// wrong state for every later scenario, so a transient blip
			// is worth a second attempt.
			err = c.patchServiceType(ctx, name, original)
		}
		if err != nil {
			return &CleanupError{
				Op:  fmt.Sprintf("restoring service %s to type %s", name, original),
				Err: err,
			}
		}
		return nil
	}
	return restore, nil
}

func (c *Client) patchServiceType(ctx context.Context, name string, t corev1.ServiceType) error {
	patch := []byte(fmt.Sprintf(`{"spec":{"type":%q}}`, t))
	_, err := c.clientset.CoreV1().Services(c.namespace).Patch(
		ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return &QueryError{Kind: KindService, Name: name, Namespace: c.namespace, Err: err}
	}
	return nil
}
