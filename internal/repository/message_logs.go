package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
)

// MessageLogsRepository describes persistence operations for outreach attempts.
type MessageLogsRepository interface {
	// Insert appends an attempt. A second delivered row for one business fails with ErrAlreadySent.
	Insert(ctx context.Context, log *entity.MessageLog) error
	HasSent(ctx context.Context, businessID int64) (bool, error)
	Count(ctx context.Context, filter dto.MessageLogFilter) (int, error)
	List(ctx context.Context, filter dto.MessageLogFilter) ([]entity.MessageLog, error)
	SentPerDay(ctx context.Context) ([]dto.DailyCount, error)
}

// PGXMessageLogsRepository implements MessageLogsRepository using pgx.
type PGXMessageLogsRepository struct {
	pool pgxPool
}

// NewPGXMessageLogsRepository wires a pgx backed repository.
func NewPGXMessageLogsRepository(pool *pgxpool.Pool) *PGXMessageLogsRepository {
	return &PGXMessageLogsRepository{pool: pool}
}

// Insert persists one attempt and assigns its ID.
func (r *PGXMessageLogsRepository) Insert(ctx context.Context, log *entity.MessageLog) error {
	if log == nil {
		return fmt.Errorf("message log payload is nil")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var id int64
	if err := r.pool.QueryRow(ctx, rebind(insertMessageLogSQL), insertMessageLogArgs(log)...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySent
		}
		return storeErr("insert message log", err)
	}
	log.ID = id
	return nil
}

// HasSent reports whether a delivered message exists for the business.
func (r *PGXMessageLogsRepository) HasSent(ctx context.Context, businessID int64) (bool, error) {
	var sent bool
	if err := r.pool.QueryRow(ctx, rebind(hasSentSQL), businessID).Scan(&sent); err != nil {
		return false, storeErr("check message sent", err)
	}
	return sent, nil
}

// Count returns the number of attempts matching the filter.
func (r *PGXMessageLogsRepository) Count(ctx context.Context, filter dto.MessageLogFilter) (int, error) {
	query, args := messageLogQuery("COUNT(*)", filter)
	var total int
	if err := r.pool.QueryRow(ctx, rebind(query), args...).Scan(&total); err != nil {
		return 0, storeErr("count message logs", err)
	}
	return total, nil
}

// List returns attempts matching the filter, oldest first.
func (r *PGXMessageLogsRepository) List(ctx context.Context, filter dto.MessageLogFilter) ([]entity.MessageLog, error) {
	query, args := messageLogQuery(messageLogColumns, filter)
	rows, err := r.pool.Query(ctx, rebind(query+" ORDER BY id ASC"), args...)
	if err != nil {
		return nil, storeErr("list message logs", err)
	}
	defer rows.Close()

	logs := make([]entity.MessageLog, 0)
	for rows.Next() {
		log, err := scanMessageLog(rows)
		if err != nil {
			return nil, storeErr("list message logs", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list message logs", err)
	}
	return logs, nil
}

// SentPerDay counts delivered messages grouped by day.
func (r *PGXMessageLogsRepository) SentPerDay(ctx context.Context) ([]dto.DailyCount, error) {
	rows, err := r.pool.Query(ctx, sentPerDaySQL)
	if err != nil {
		return nil, storeErr("count messages per day", err)
	}
	defer rows.Close()

	counts := make([]dto.DailyCount, 0)
	for rows.Next() {
		var item dto.DailyCount
		if err := rows.Scan(&item.Day, &item.Count); err != nil {
			return nil, storeErr("count messages per day", err)
		}
		counts = append(counts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("count messages per day", err)
	}
	return counts, nil
}

func insertMessageLogArgs(m *entity.MessageLog) []any {
	return []any{
		m.RunID.String(),
		m.BusinessID,
		m.BusinessName,
		m.Phone,
		m.Sent,
		timeOrNil(m.SentAt),
		stringOrNil(m.ErrorMessage),
		m.CreatedAt,
	}
}
