package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrSyncInProgress is returned when a sync operation is requested
	// while another one is still running. Concurrent reconciliation
	// against moving state is unsafe, so requests are rejected, not queued.
	ErrSyncInProgress = errors.New("sync: operation already in progress")

	// ErrNotConfigured means required settings (credentials, repository,
	// branch) are missing. Checked before any network call.
	ErrNotConfigured = errors.New("sync: not configured")
)

// FailedError surfaces an aborted operation together with the partial
// result of the portion that completed.
type FailedError struct {
	Partial *Result
	Err     error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("sync failed: %v (pushed=%d pulled=%d conflicts=%d)",
		e.Err, e.Partial.Pushed, e.Partial.Pulled, len(e.Partial.Conflicts))
}

func (e *FailedError) Unwrap() error {
	return e.Err
}
