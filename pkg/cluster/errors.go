package cluster

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a resource is absent. This is an expected
// condition: callers decide whether to skip, poll, or fail.
type NotFoundError struct {
	Kind      Kind
	Name      string
	Namespace string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s/%s not found", e.Kind, e.Namespace, e.Name)
}

// QueryError reports an infrastructure-level failure of the read itself
// (cluster unreachable, malformed response). It is never retried silently
// and surfaces as fatal to the calling scenario.
type QueryError struct {
	Kind      Kind
	Name      string
	Namespace string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("querying %s %s/%s: %v", e.Kind, e.Namespace, e.Name, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// CleanupError reports that restoring cluster state after a scenario failed.
// It is kept distinct from the scenario's own failure so cleanup problems
// never mask the original verdict.
type CleanupError struct {
	Op  string
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup failed (%s): %v", e.Op, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
