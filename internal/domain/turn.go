package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known enumeration values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// EventID is the identifier the event log assigns to an appended turn.
// It is opaque to everything above the log client; its ordering is the
// authoritative ordering of turns within a session.
type EventID string

// Turn is one user or assistant message within a session. Turns are
// immutable once appended to the event log.
type Turn struct {
	Role         Role
	Content      string
	Timestamp    time.Time
	ToolsInvoked []string
}

// EventLog is the append-only conversation store, scoped by
// (actorKey, sessionID). It is the source of truth for conversation
// content; session metadata is a derived index over it.
type EventLog interface {
	// AppendTurn appends one immutable turn and returns the log-assigned
	// event ID. Backend outages surface as ErrLogUnavailable.
	AppendTurn(ctx context.Context, actorKey string, sessionID uuid.UUID, turn *Turn) (EventID, error)

	// ListTurns returns up to limit turns oldest-first, resuming after the
	// opaque cursor ("" starts from the beginning). The returned cursor
	// resumes the next page; it is "" when the stream is exhausted.
	// Re-querying with the same cursor yields the same page absent
	// concurrent writes. A session with no events yields an empty page.
	ListTurns(ctx context.Context, actorKey string, sessionID uuid.UUID, limit int, cursor string) ([]*Turn, string, error)

	// DeleteSession removes all turns for the session. Idempotent:
	// deleting an already-deleted session succeeds.
	DeleteSession(ctx context.Context, actorKey string, sessionID uuid.UUID) error
}
