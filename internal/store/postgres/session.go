package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/parley/internal/domain"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, actor_key, title, turn_count, created_at, last_active_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.ActorKey, s.Title, s.TurnCount, s.CreatedAt, s.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %v: %w", err, domain.ErrMetadataUnavailable)
	}

	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, actorKey string, id uuid.UUID) (*domain.Session, error) {
	var s domain.Session

	err := r.pool.QueryRow(ctx,
		`SELECT id, actor_key, title, turn_count, created_at, last_active_at
		 FROM sessions WHERE actor_key = $1 AND id = $2`,
		actorKey, id,
	).Scan(&s.ID, &s.ActorKey, &s.Title, &s.TurnCount, &s.CreatedAt, &s.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.GetByID: %v: %w", err, domain.ErrMetadataUnavailable)
	}

	return &s, nil
}

func (r *SessionRepo) Update(ctx context.Context, s *domain.Session) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET title = $1, turn_count = $2, last_active_at = $3
		 WHERE actor_key = $4 AND id = $5`,
		s.Title, s.TurnCount, s.LastActiveAt, s.ActorKey, s.ID,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Update: %v: %w", err, domain.ErrMetadataUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sessionRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *SessionRepo) ListByActor(ctx context.Context, actorKey string) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_key, title, turn_count, created_at, last_active_at
		 FROM sessions WHERE actor_key = $1`,
		actorKey,
	)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ListByActor: %v: %w", err, domain.ErrMetadataUnavailable)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var s domain.Session

		err = rows.Scan(&s.ID, &s.ActorKey, &s.Title, &s.TurnCount, &s.CreatedAt, &s.LastActiveAt)
		if err != nil {
			return nil, fmt.Errorf("sessionRepo.ListByActor: scan: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sessionRepo.ListByActor: rows: %v: %w", err, domain.ErrMetadataUnavailable)
	}

	return sessions, nil
}

func (r *SessionRepo) Delete(ctx context.Context, actorKey string, id uuid.UUID) error {
	// Zero rows affected means the record is already gone; deletion is
	// idempotent so that is a success.
	_, err := r.pool.Exec(ctx,
		`DELETE FROM sessions WHERE actor_key = $1 AND id = $2`,
		actorKey, id,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Delete: %v: %w", err, domain.ErrMetadataUnavailable)
	}

	return nil
}
