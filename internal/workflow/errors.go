package workflow

import "fmt"

// InvalidTransitionError reports a transition the state tables do not allow.
// The store is never written when this is returned.
type InvalidTransitionError struct {
	Entity    string
	Current   string
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s", e.Entity, e.Current, e.Attempted)
}

// ConflictError reports a failed optimistic-concurrency precondition: the
// record's status no longer matched what the caller observed. The caller
// decides whether to retry.
type ConflictError struct {
	Entity   string
	Expected string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: status changed concurrently (expected %s)", e.Entity, e.Expected)
}
