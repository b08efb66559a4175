package herald

import "fmt"

// ConnectivityError indicates that the store could not be reached when the
// messenger started.
//
// The messenger does not fail in response; it goes dormant for the life of
// the process, leaving the application's caches functional but unsynchronized
// with the rest of the farm.
type ConnectivityError struct {
	// Cause is the error that caused the connectivity probe to fail.
	Cause error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("unable to reach the instruction store: %s", e.Cause)
}

// Unwrap returns the error that caused the connectivity probe to fail.
func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}
