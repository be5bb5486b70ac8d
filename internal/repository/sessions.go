package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-prospector/internal/entity"
)

// SessionsRepository describes persistence operations for discovery sessions.
type SessionsRepository interface {
	Open(ctx context.Context, session *entity.CampaignSession) error
	Close(ctx context.Context, session *entity.CampaignSession) error
	ListRecent(ctx context.Context, limit int) ([]entity.CampaignSession, error)
}

// PGXSessionsRepository implements SessionsRepository using pgx.
type PGXSessionsRepository struct {
	pool pgxPool
}

// NewPGXSessionsRepository wires a pgx backed repository.
func NewPGXSessionsRepository(pool *pgxpool.Pool) *PGXSessionsRepository {
	return &PGXSessionsRepository{pool: pool}
}

// Open inserts a running session and assigns its ID.
func (r *PGXSessionsRepository) Open(ctx context.Context, session *entity.CampaignSession) error {
	if session == nil {
		return fmt.Errorf("campaign session payload is nil")
	}
	prepareSession(session)

	var id int64
	if err := r.pool.QueryRow(ctx, rebind(openSessionSQL), openSessionArgs(session)...).Scan(&id); err != nil {
		return storeErr("open campaign session", err)
	}
	session.ID = id
	return nil
}

// Close writes the final counters and status of a session.
func (r *PGXSessionsRepository) Close(ctx context.Context, session *entity.CampaignSession) error {
	if session == nil {
		return fmt.Errorf("campaign session payload is nil")
	}
	tag, err := r.pool.Exec(ctx, rebind(closeSessionSQL), closeSessionArgs(session)...)
	if err != nil {
		return storeErr("close campaign session", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListRecent returns the most recently started sessions first.
func (r *PGXSessionsRepository) ListRecent(ctx context.Context, limit int) ([]entity.CampaignSession, error) {
	rows, err := r.pool.Query(ctx, rebind(recentSessionsSQL), normalizeLimit(limit))
	if err != nil {
		return nil, storeErr("list campaign sessions", err)
	}
	defer rows.Close()

	sessions := make([]entity.CampaignSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, storeErr("list campaign sessions", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list campaign sessions", err)
	}
	return sessions, nil
}

const recentSessionsSQL = `SELECT ` + sessionColumns + ` FROM campaign_sessions ORDER BY started_at DESC, id DESC LIMIT ?`

func prepareSession(session *entity.CampaignSession) {
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}
	if session.Status == "" {
		session.Status = entity.SessionRunning
	}
}

func openSessionArgs(s *entity.CampaignSession) []any {
	return []any{
		s.RunID.String(),
		s.SearchTerm,
		s.TotalFound,
		s.SuccessfulScrapes,
		s.StartedAt,
		string(s.Status),
	}
}

func closeSessionArgs(s *entity.CampaignSession) []any {
	return []any{
		s.TotalFound,
		s.SuccessfulScrapes,
		timeOrNil(s.CompletedAt),
		string(s.Status),
		s.ID,
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 5
	}
	if limit > 100 {
		return 100
	}
	return limit
}
