package session

import (
	"fmt"

	"github.com/gosuda/parley/internal/domain"
)

// RecordResult reports the outcome of a RecordTurn call. EventID is
// always set: by the time a result exists the turn is durably in the
// event log. MetadataSynced is false when the derived metadata record
// could not be brought up to date (partial success).
type RecordResult struct {
	EventID        domain.EventID
	MetadataSynced bool
}

// MetadataSyncError is the partial-success outcome of RecordTurn: the
// turn is in the event log under EventID, but the metadata update
// failed. Metadata is allowed to be transiently stale; callers retry
// the sync out of band and must not treat the turn as lost.
type MetadataSyncError struct {
	EventID domain.EventID
	Err     error
}

func (e *MetadataSyncError) Error() string {
	return fmt.Sprintf("session: turn logged as %s but metadata sync failed: %v", e.EventID, e.Err)
}

func (e *MetadataSyncError) Unwrap() error { return e.Err }

// DeletionResult reports which legs of a session deletion succeeded.
// When exactly one leg fails the session is left in a recorded
// inconsistent state; callers surface a retry for the remaining leg.
type DeletionResult struct {
	LogDeleted      bool
	MetadataDeleted bool
	LogErr          error
	MetadataErr     error
}

// Partial reports whether exactly one of the two deletes succeeded.
func (r *DeletionResult) Partial() bool {
	return r.LogDeleted != r.MetadataDeleted
}
