package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/server/middleware"
	"github.com/gosuda/parley/internal/session"
)

type CreateSessionOutput struct {
	Body *domain.Session
}

type ListSessionsOutput struct {
	Body []*domain.Session
}

type RecordTurnInput struct {
	SessionID uuid.UUID `path:"sessionID" doc:"Session ID"`
	Body      struct {
		Role         string   `json:"role" enum:"user,assistant" doc:"Turn author"`
		Content      string   `json:"content" minLength:"1" doc:"Turn text"`
		ToolsInvoked []string `json:"tools_invoked,omitempty" doc:"External tools called during this turn"`
	}
}

type RecordTurnOutput struct {
	Status int
	Body   struct {
		EventID        string `json:"event_id" doc:"Log-assigned event ID"`
		MetadataSynced bool   `json:"metadata_synced" doc:"False when the turn is logged but session metadata is stale"`
	}
}

type LoadHistoryInput struct {
	SessionID uuid.UUID `path:"sessionID" doc:"Session ID"`
	Limit     int       `query:"limit" default:"50" minimum:"0" maximum:"1000" doc:"Maximum turns returned"`
}

type LoadHistoryOutput struct {
	Body []*domain.Turn
}

type DeleteSessionInput struct {
	SessionID uuid.UUID `path:"sessionID" doc:"Session ID"`
}

type DeleteSessionOutput struct {
	Body struct {
		LogDeleted      bool `json:"log_deleted"`
		MetadataDeleted bool `json:"metadata_deleted"`
		Partial         bool `json:"partial" doc:"True when exactly one backing record was removed; retry the delete to finish"`
	}
}

type BuildContextInput struct {
	SessionID uuid.UUID `path:"sessionID" doc:"Session ID"`
	Window    int       `query:"window" default:"10" minimum:"0" maximum:"100" doc:"Number of recent turns in the context window"`
}

type BuildContextOutput struct {
	Body *session.ConversationContext
}

func RegisterSessionRoutes(api huma.API, manager SessionManager) {
	huma.Register(api, huma.Operation{
		OperationID: "create-session",
		Method:      http.MethodPost,
		Path:        "/sessions",
		Summary:     "Start a new conversation session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, _ *struct{}) (*CreateSessionOutput, error) {
		rawIdentity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing identity context")
		}

		s, err := manager.CreateSession(ctx, rawIdentity)
		if err != nil {
			return nil, mapManagerError(err, "failed to create session")
		}

		return &CreateSessionOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/sessions",
		Summary:     "List the caller's sessions, most recently active first",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, _ *struct{}) (*ListSessionsOutput, error) {
		rawIdentity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing identity context")
		}

		sessions, err := manager.ListSessions(ctx, rawIdentity)
		if err != nil {
			return nil, mapManagerError(err, "failed to list sessions")
		}

		return &ListSessionsOutput{Body: sessions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-turn",
		Method:      http.MethodPost,
		Path:        "/sessions/{sessionID}/turns",
		Summary:     "Append a turn to a session",
		Description: "Appends to the event log, then updates session metadata. " +
			"A 202 response means the turn is durably logged but metadata is " +
			"transiently stale; the sync is retried out of band.",
		Tags: []string{"Turns"},
	}, func(ctx context.Context, input *RecordTurnInput) (*RecordTurnOutput, error) {
		actorKey, ok := middleware.ActorKeyFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing identity context")
		}

		turn := &domain.Turn{
			Role:         domain.Role(input.Body.Role),
			Content:      input.Body.Content,
			ToolsInvoked: input.Body.ToolsInvoked,
		}

		res, err := manager.RecordTurn(ctx, actorKey, input.SessionID, turn)

		var syncErr *session.MetadataSyncError
		switch {
		case err == nil:
			out := &RecordTurnOutput{Status: http.StatusOK}
			out.Body.EventID = string(res.EventID)
			out.Body.MetadataSynced = true
			return out, nil
		case errors.As(err, &syncErr):
			out := &RecordTurnOutput{Status: http.StatusAccepted}
			out.Body.EventID = string(syncErr.EventID)
			out.Body.MetadataSynced = false
			return out, nil
		default:
			return nil, mapManagerError(err, "failed to record turn")
		}
	})

	huma.Register(api, huma.Operation{
		OperationID: "load-history",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionID}/history",
		Summary:     "Load a session's turns in log order",
		Tags:        []string{"Turns"},
	}, func(ctx context.Context, input *LoadHistoryInput) (*LoadHistoryOutput, error) {
		actorKey, ok := middleware.ActorKeyFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing identity context")
		}

		turns, err := manager.LoadHistory(ctx, actorKey, input.SessionID, input.Limit)
		if err != nil {
			return nil, mapManagerError(err, "failed to load history")
		}

		return &LoadHistoryOutput{Body: turns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-session",
		Method:      http.MethodDelete,
		Path:        "/sessions/{sessionID}",
		Summary:     "Delete a session from both backing stores",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *DeleteSessionInput) (*DeleteSessionOutput, error) {
		actorKey, ok := middleware.ActorKeyFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing identity context")
		}

		res, err := manager.DeleteSession(ctx, actorKey, input.SessionID)
		if err != nil {
			return nil, mapManagerError(err, "failed to delete session")
		}

		out := &DeleteSessionOutput{}
		out.Body.LogDeleted = res.LogDeleted
		out.Body.MetadataDeleted = res.MetadataDeleted
		out.Body.Partial = res.Partial()
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "build-context",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionID}/context",
		Summary:     "Build the conversation context window for the agent layer",
		Tags:        []string{"Context"},
	}, func(ctx context.Context, input *BuildContextInput) (*BuildContextOutput, error) {
		actorKey, ok := middleware.ActorKeyFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing identity context")
		}

		cc, err := manager.BuildContext(ctx, actorKey, input.SessionID, input.Window)
		if err != nil {
			return nil, mapManagerError(err, "failed to build context")
		}

		return &BuildContextOutput{Body: cc}, nil
	})
}

// mapManagerError translates the manager's error taxonomy to HTTP. An
// unavailable backend is 503 so callers know to retry; it is never
// flattened into an empty 200.
func mapManagerError(err error, detail string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, domain.ErrLogUnavailable),
		errors.Is(err, domain.ErrMetadataUnavailable):
		return huma.Error503ServiceUnavailable(detail, err)
	default:
		return huma.Error500InternalServerError(detail, err)
	}
}
