package devops

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the remote resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrRetryExhausted indicates the call kept failing after all
	// configured retries.
	ErrRetryExhausted = errors.New("retries exhausted")
)

// RemoteError carries the resource and HTTP status of a failed remote call.
type RemoteError struct {
	Resource string
	Status   int
	Body     string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("devops: %s returned status %d: %s", e.Resource, e.Status, e.Body)
}
