package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the metadata record for one conversation thread belonging to
// one actor. It exists so session browsing never has to scan the event
// log; its counters may transiently lag the log under concurrent writers.
type Session struct {
	ID           uuid.UUID
	ActorKey     string
	Title        string
	TurnCount    int
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// SessionRepository is the keyed store of session metadata records,
// scoped by actor. Backend outages surface as ErrMetadataUnavailable.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, actorKey string, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	// ListByActor returns the actor's sessions in no particular order;
	// callers sort for display.
	ListByActor(ctx context.Context, actorKey string) ([]*Session, error)
	// Delete is idempotent; deleting a missing record succeeds.
	Delete(ctx context.Context, actorKey string, id uuid.UUID) error
}
