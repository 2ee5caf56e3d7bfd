// Package session is the orchestration core: it owns the mapping from
// (actorKey, sessionID) to the pair of backing records — the turn
// stream in the event log and the metadata record in the session store
// — and is the only component that writes to either.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/identity"
	"github.com/gosuda/parley/internal/store/redispubsub"
)

// historyPageSize is how many turns each event-log page fetches while
// walking a session's stream.
const historyPageSize = 100

// titleLimit caps session titles derived from the first user turn.
const titleLimit = 80

// TurnPublisher fans freshly appended turns out to live subscribers.
// Publishing is best-effort and never affects a RecordTurn result.
type TurnPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Manager reconciles the event log and the metadata store into one view
// of an actor's sessions. It holds no per-session locks: single-record
// atomicity comes from the backing stores, and event-log ordering is
// authoritative when concurrent writers interleave.
type Manager struct {
	log         domain.EventLog
	sessions    domain.SessionRepository
	feed        TurnPublisher // nil disables the live feed
	callTimeout time.Duration // zero disables the per-call bound
}

// NewManager wires the manager to its two backing stores and the
// optional live feed. callTimeout bounds each backend call so an outage
// surfaces as an error instead of a hang.
func NewManager(eventLog domain.EventLog, sessions domain.SessionRepository, feed TurnPublisher, callTimeout time.Duration) *Manager {
	return &Manager{
		log:         eventLog,
		sessions:    sessions,
		feed:        feed,
		callTimeout: callTimeout,
	}
}

// bound derives a deadline-bounded context for one backend call.
func (m *Manager) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.callTimeout)
}

// CreateSession normalizes the identity, generates a session ID, and
// writes the initial metadata record. The event log is not touched: an
// empty session has no turns. A deleted session ID is never recreated;
// new threads always get a fresh ID here.
func (m *Manager) CreateSession(ctx context.Context, rawIdentity string) (*domain.Session, error) {
	actorKey := identity.Normalize(rawIdentity)
	if actorKey == identity.SentinelKey {
		log.Warn().Str("raw_identity", rawIdentity).Msg("session: identity normalized to sentinel key")
	}

	now := time.Now().UTC()
	s := &domain.Session{
		ID:           uuid.New(),
		ActorKey:     actorKey,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	cctx, cancel := m.bound(ctx)
	defer cancel()
	if err := m.sessions.Create(cctx, s); err != nil {
		return nil, fmt.Errorf("session.Manager.CreateSession: %w", err)
	}

	return s, nil
}

// RecordTurn is a two-phase best-effort dual write. Phase one appends
// the turn to the event log; on failure nothing is mutated and the call
// fails whole. Phase two updates the derived metadata record; on
// failure the call returns a *MetadataSyncError carrying the appended
// event ID — the turn is durable, metadata is transiently stale, and
// the caller retries the sync out of band. There is no synchronous
// auto-retry; that would block the response path.
func (m *Manager) RecordTurn(ctx context.Context, actorKey string, sessionID uuid.UUID, turn *domain.Turn) (*RecordResult, error) {
	if !turn.Role.Valid() {
		return nil, fmt.Errorf("session.Manager.RecordTurn: invalid role %q", turn.Role)
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	actx, cancel := m.bound(ctx)
	defer cancel()
	eventID, err := m.log.AppendTurn(actx, actorKey, sessionID, turn)
	if err != nil {
		return nil, fmt.Errorf("session.Manager.RecordTurn: %w", err)
	}

	m.publishTurn(ctx, actorKey, sessionID, eventID, turn)

	if err := m.syncMetadata(ctx, actorKey, sessionID, turn); err != nil {
		log.Warn().
			Str("actor_key", actorKey).
			Str("session_id", sessionID.String()).
			Str("event_id", string(eventID)).
			Err(err).
			Msg("session: turn logged but metadata sync failed")
		return &RecordResult{EventID: eventID}, &MetadataSyncError{EventID: eventID, Err: err}
	}

	return &RecordResult{EventID: eventID, MetadataSynced: true}, nil
}

// ListSessions returns the actor's sessions most-recently-active first.
// It reads metadata only; cheap listing is the reason metadata exists.
func (m *Manager) ListSessions(ctx context.Context, rawIdentity string) ([]*domain.Session, error) {
	actorKey := identity.Normalize(rawIdentity)
	if actorKey == identity.SentinelKey {
		log.Warn().Str("raw_identity", rawIdentity).Msg("session: identity normalized to sentinel key")
	}

	cctx, cancel := m.bound(ctx)
	defer cancel()
	sessions, err := m.sessions.ListByActor(cctx, actorKey)
	if err != nil {
		return nil, fmt.Errorf("session.Manager.ListSessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActiveAt.After(sessions[j].LastActiveAt)
	})

	return sessions, nil
}

// LoadHistory returns the session's most recent limit turns in log
// order (oldest first within the window). A session the log knows
// nothing about is a valid empty session, not an error; backend outages
// still surface so an outage is never mistaken for an empty history.
func (m *Manager) LoadHistory(ctx context.Context, actorKey string, sessionID uuid.UUID, limit int) ([]*domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	var window []*domain.Turn
	cursor := ""
	for {
		cctx, cancel := m.bound(ctx)
		page, next, err := m.log.ListTurns(cctx, actorKey, sessionID, historyPageSize, cursor)
		cancel()
		if err != nil {
			if errors.Is(err, domain.ErrInvalidSession) {
				return nil, nil
			}
			return nil, fmt.Errorf("session.Manager.LoadHistory: %w", err)
		}

		window = append(window, page...)
		if len(window) > limit {
			window = window[len(window)-limit:]
		}

		if next == "" {
			return window, nil
		}
		cursor = next
	}
}

// DeleteSession removes both backing records, event log first. Both
// legs are always attempted so a caller retrying a partial deletion can
// finish the remaining leg. The result enumerates per-leg outcomes;
// only a double failure is a whole-operation error. Deleting a session
// that does not exist succeeds.
func (m *Manager) DeleteSession(ctx context.Context, actorKey string, sessionID uuid.UUID) (*DeletionResult, error) {
	res := &DeletionResult{}

	cctx, cancel := m.bound(ctx)
	defer cancel()
	if err := m.log.DeleteSession(cctx, actorKey, sessionID); err != nil {
		res.LogErr = err
	} else {
		res.LogDeleted = true
	}

	mctx, mcancel := m.bound(ctx)
	defer mcancel()
	if err := m.sessions.Delete(mctx, actorKey, sessionID); err != nil {
		res.MetadataErr = err
	} else {
		res.MetadataDeleted = true
	}

	if !res.LogDeleted && !res.MetadataDeleted {
		return res, fmt.Errorf("session.Manager.DeleteSession: log: %v; metadata: %w", res.LogErr, res.MetadataErr)
	}

	if res.Partial() {
		log.Warn().
			Str("actor_key", actorKey).
			Str("session_id", sessionID.String()).
			Bool("log_deleted", res.LogDeleted).
			Bool("metadata_deleted", res.MetadataDeleted).
			Msg("session: partial deletion, one backing record remains")
	}

	return res, nil
}

// BuildContext loads the most recent windowSize turns and derives the
// summary, topics, and follow-up suggestions. Pure composition over
// LoadHistory and the extractor; nothing is mutated or cached.
func (m *Manager) BuildContext(ctx context.Context, actorKey string, sessionID uuid.UUID, windowSize int) (*ConversationContext, error) {
	turns, err := m.LoadHistory(ctx, actorKey, sessionID, windowSize)
	if err != nil {
		return nil, fmt.Errorf("session.Manager.BuildContext: %w", err)
	}

	cc := &ConversationContext{
		Turns:   turns,
		Summary: Summarize(turns),
		Topics:  InferTopics(turns),
	}

	var last *domain.Turn
	if len(turns) > 0 {
		last = turns[len(turns)-1]
	}
	cc.FollowUps = SuggestFollowUps(cc.Topics, last)

	return cc, nil
}

// syncMetadata brings the derived metadata record up to date after a
// successful append: bump activity, count the turn, and set the title
// from the first user turn if still unset.
func (m *Manager) syncMetadata(ctx context.Context, actorKey string, sessionID uuid.UUID, turn *domain.Turn) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	s, err := m.sessions.GetByID(ctx, actorKey, sessionID)
	if err != nil {
		return err
	}

	s.TurnCount++
	if s.LastActiveAt.Before(turn.Timestamp) {
		s.LastActiveAt = turn.Timestamp
	}
	if s.Title == "" && turn.Role == domain.RoleUser {
		s.Title = deriveTitle(turn.Content)
	}

	return m.sessions.Update(ctx, s)
}

type feedEvent struct {
	EventID      string    `json:"event_id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	ToolsInvoked []string  `json:"tools_invoked,omitempty"`
}

func (m *Manager) publishTurn(ctx context.Context, actorKey string, sessionID uuid.UUID, eventID domain.EventID, turn *domain.Turn) {
	if m.feed == nil {
		return
	}

	payload, err := json.Marshal(feedEvent{
		EventID:      string(eventID),
		Role:         string(turn.Role),
		Content:      turn.Content,
		Timestamp:    turn.Timestamp,
		ToolsInvoked: turn.ToolsInvoked,
	})
	if err != nil {
		log.Warn().Err(err).Msg("session: encoding feed event")
		return
	}

	if err := m.feed.Publish(ctx, redispubsub.TurnChannel(actorKey, sessionID), payload); err != nil {
		log.Debug().Err(err).Str("session_id", sessionID.String()).Msg("session: feed publish failed")
	}
}

func deriveTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	return truncateRunes(title, titleLimit)
}
