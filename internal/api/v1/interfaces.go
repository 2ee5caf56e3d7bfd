package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/session"
)

// SessionManager abstracts the orchestration core for handler testing.
// *session.Manager satisfies this interface.
type SessionManager interface {
	CreateSession(ctx context.Context, rawIdentity string) (*domain.Session, error)
	RecordTurn(ctx context.Context, actorKey string, sessionID uuid.UUID, turn *domain.Turn) (*session.RecordResult, error)
	ListSessions(ctx context.Context, rawIdentity string) ([]*domain.Session, error)
	LoadHistory(ctx context.Context, actorKey string, sessionID uuid.UUID, limit int) ([]*domain.Turn, error)
	DeleteSession(ctx context.Context, actorKey string, sessionID uuid.UUID) (*session.DeletionResult, error)
	BuildContext(ctx context.Context, actorKey string, sessionID uuid.UUID, windowSize int) (*session.ConversationContext, error)
}
