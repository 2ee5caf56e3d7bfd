package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/server/middleware"
	"github.com/gosuda/parley/internal/session"
)

// ---------------------------------------------------------------------------
// Context helpers — inject identity into context for DoCtx
// ---------------------------------------------------------------------------

func actorCtx(rawIdentity, actorKey string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyIdentity, rawIdentity)
	ctx = context.WithValue(ctx, middleware.ContextKeyActorKey, actorKey)
	return ctx
}

// ---------------------------------------------------------------------------
// Mock SessionManager
// ---------------------------------------------------------------------------

type mockManager struct {
	createSessionFunc func(ctx context.Context, rawIdentity string) (*domain.Session, error)
	recordTurnFunc    func(ctx context.Context, actorKey string, sessionID uuid.UUID, turn *domain.Turn) (*session.RecordResult, error)
	listSessionsFunc  func(ctx context.Context, rawIdentity string) ([]*domain.Session, error)
	loadHistoryFunc   func(ctx context.Context, actorKey string, sessionID uuid.UUID, limit int) ([]*domain.Turn, error)
	deleteSessionFunc func(ctx context.Context, actorKey string, sessionID uuid.UUID) (*session.DeletionResult, error)
	buildContextFunc  func(ctx context.Context, actorKey string, sessionID uuid.UUID, windowSize int) (*session.ConversationContext, error)
}

func (m *mockManager) CreateSession(ctx context.Context, rawIdentity string) (*domain.Session, error) {
	return m.createSessionFunc(ctx, rawIdentity)
}

func (m *mockManager) RecordTurn(ctx context.Context, actorKey string, sessionID uuid.UUID, turn *domain.Turn) (*session.RecordResult, error) {
	return m.recordTurnFunc(ctx, actorKey, sessionID, turn)
}

func (m *mockManager) ListSessions(ctx context.Context, rawIdentity string) ([]*domain.Session, error) {
	return m.listSessionsFunc(ctx, rawIdentity)
}

func (m *mockManager) LoadHistory(ctx context.Context, actorKey string, sessionID uuid.UUID, limit int) ([]*domain.Turn, error) {
	return m.loadHistoryFunc(ctx, actorKey, sessionID, limit)
}

func (m *mockManager) DeleteSession(ctx context.Context, actorKey string, sessionID uuid.UUID) (*session.DeletionResult, error) {
	return m.deleteSessionFunc(ctx, actorKey, sessionID)
}

func (m *mockManager) BuildContext(ctx context.Context, actorKey string, sessionID uuid.UUID, windowSize int) (*session.ConversationContext, error) {
	return m.buildContextFunc(ctx, actorKey, sessionID, windowSize)
}
