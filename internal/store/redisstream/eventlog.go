// Package redisstream implements the conversation event log on Redis
// Streams. Stream entry IDs ("<ms>-<seq>") provide the authoritative
// turn ordering: wall-clock milliseconds tie-broken by a server-assigned
// sequence number.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gosuda/parley/internal/domain"
)

const (
	fieldRole    = "role"
	fieldContent = "content"
	fieldTime    = "ts"
	fieldTools   = "tools"
)

// Log is the event log client. One stream per (actorKey, sessionID).
type Log struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Log, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstream.New: ping: %w", err)
	}

	return &Log{client: client}, nil
}

// NewFromClient wraps an existing client so the pub/sub layer and the
// event log can share one connection pool.
func NewFromClient(client *redis.Client) *Log {
	return &Log{client: client}
}

// Client exposes the underlying Redis client for layers that share the
// connection pool, such as the pub/sub feed.
func (l *Log) Client() *redis.Client {
	return l.client
}

func (l *Log) Close() error {
	if err := l.client.Close(); err != nil {
		return fmt.Errorf("redisstream.Log.Close: %w", err)
	}
	return nil
}

// StreamKey returns the Redis stream key for a session's turns.
func StreamKey(actorKey string, sessionID uuid.UUID) string {
	return "turns:" + actorKey + ":" + sessionID.String()
}

func (l *Log) AppendTurn(ctx context.Context, actorKey string, sessionID uuid.UUID, turn *domain.Turn) (domain.EventID, error) {
	values, err := encodeTurn(turn)
	if err != nil {
		return "", fmt.Errorf("redisstream.Log.AppendTurn: %w", err)
	}

	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(actorKey, sessionID),
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("redisstream.Log.AppendTurn: %v: %w", err, domain.ErrLogUnavailable)
	}

	return domain.EventID(id), nil
}

func (l *Log) ListTurns(ctx context.Context, actorKey string, sessionID uuid.UUID, limit int, cursor string) ([]*domain.Turn, string, error) {
	if limit <= 0 {
		return nil, "", nil
	}

	start := "-"
	if cursor != "" {
		// Exclusive range: resume strictly after the last-returned entry.
		start = "(" + cursor
	}

	entries, err := l.client.XRangeN(ctx, StreamKey(actorKey, sessionID), start, "+", int64(limit)).Result()
	if err != nil {
		return nil, "", fmt.Errorf("redisstream.Log.ListTurns: %v: %w", err, domain.ErrLogUnavailable)
	}

	turns := make([]*domain.Turn, 0, len(entries))
	for _, entry := range entries {
		turn, decodeErr := decodeTurn(entry.Values)
		if decodeErr != nil {
			return nil, "", fmt.Errorf("redisstream.Log.ListTurns: entry %s: %w", entry.ID, decodeErr)
		}
		turns = append(turns, turn)
	}

	// A short page means the stream is exhausted; no cursor to resume.
	next := ""
	if len(entries) == limit {
		next = entries[len(entries)-1].ID
	}

	return turns, next, nil
}

func (l *Log) DeleteSession(ctx context.Context, actorKey string, sessionID uuid.UUID) error {
	// DEL of a missing key is a no-op, which gives idempotent deletion.
	if err := l.client.Del(ctx, StreamKey(actorKey, sessionID)).Err(); err != nil {
		return fmt.Errorf("redisstream.Log.DeleteSession: %v: %w", err, domain.ErrLogUnavailable)
	}
	return nil
}

func encodeTurn(turn *domain.Turn) (map[string]any, error) {
	if !turn.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", turn.Role)
	}

	values := map[string]any{
		fieldRole:    string(turn.Role),
		fieldContent: turn.Content,
		fieldTime:    turn.Timestamp.UTC().Format(time.RFC3339Nano),
	}

	if len(turn.ToolsInvoked) > 0 {
		tools, err := json.Marshal(turn.ToolsInvoked)
		if err != nil {
			return nil, fmt.Errorf("encoding tools: %w", err)
		}
		values[fieldTools] = string(tools)
	}

	return values, nil
}

func decodeTurn(values map[string]any) (*domain.Turn, error) {
	role, _ := values[fieldRole].(string)
	content, _ := values[fieldContent].(string)
	tsRaw, _ := values[fieldTime].(string)

	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", tsRaw, err)
	}

	turn := &domain.Turn{
		Role:      domain.Role(role),
		Content:   content,
		Timestamp: ts,
	}
	if !turn.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	if toolsRaw, ok := values[fieldTools].(string); ok && toolsRaw != "" {
		if err := json.Unmarshal([]byte(toolsRaw), &turn.ToolsInvoked); err != nil {
			return nil, fmt.Errorf("decoding tools: %w", err)
		}
	}

	return turn, nil
}
