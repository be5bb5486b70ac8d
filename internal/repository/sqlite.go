package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
)

// The SQLite handle holds a single connection, so every result set is drained
// and closed before the next statement is issued.

// SQLiteBusinessesRepository implements BusinessesRepository over database/sql.
type SQLiteBusinessesRepository struct {
	db *sql.DB
}

// InsertIfAbsent inserts the business and reports false when it already existed.
func (r *SQLiteBusinessesRepository) InsertIfAbsent(ctx context.Context, business *entity.Business) (bool, error) {
	if business == nil {
		return false, fmt.Errorf("business payload is nil")
	}
	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := r.db.QueryRowContext(ctx, insertBusinessSQL, insertBusinessArgs(business)...).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, storeErr("insert business", err)
	}
	business.ID = id
	return true, nil
}

// Exists reports whether a business with the given identity is stored.
func (r *SQLiteBusinessesRepository) Exists(ctx context.Context, name, phone string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, existsBusinessSQL, name, phone).Scan(&exists); err != nil {
		return false, storeErr("check business exists", err)
	}
	return exists, nil
}

// List returns businesses matching the filter in discovery order.
func (r *SQLiteBusinessesRepository) List(ctx context.Context, filter dto.BusinessFilter) ([]entity.Business, error) {
	query, args := businessQuery(businessColumns, filter, true)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list businesses", err)
	}
	defer rows.Close()

	businesses := make([]entity.Business, 0)
	for rows.Next() {
		business, err := scanBusiness(rows)
		if err != nil {
			return nil, storeErr("list businesses", err)
		}
		businesses = append(businesses, business)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list businesses", err)
	}
	return businesses, nil
}

// Count returns the number of businesses matching the filter, ignoring pagination.
func (r *SQLiteBusinessesRepository) Count(ctx context.Context, filter dto.BusinessFilter) (int, error) {
	query, args := businessQuery("COUNT(*)", filter, false)
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, storeErr("count businesses", err)
	}
	return total, nil
}

// Categories returns the distinct non-empty categories in alphabetical order.
func (r *SQLiteBusinessesRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, categoriesSQL)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, storeErr("list categories", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list categories", err)
	}
	return categories, nil
}

// CountByCategory groups businesses by category, largest group first.
func (r *SQLiteBusinessesRepository) CountByCategory(ctx context.Context) ([]dto.CategoryCount, error) {
	rows, err := r.db.QueryContext(ctx, countByCategorySQL)
	if err != nil {
		return nil, storeErr("count businesses by category", err)
	}
	defer rows.Close()

	counts := make([]dto.CategoryCount, 0)
	for rows.Next() {
		var item dto.CategoryCount
		if err := rows.Scan(&item.Category, &item.Count); err != nil {
			return nil, storeErr("count businesses by category", err)
		}
		counts = append(counts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("count businesses by category", err)
	}
	return counts, nil
}

// SQLiteMessageLogsRepository implements MessageLogsRepository over database/sql.
type SQLiteMessageLogsRepository struct {
	db *sql.DB
}

// Insert persists one attempt and assigns its ID.
func (r *SQLiteMessageLogsRepository) Insert(ctx context.Context, log *entity.MessageLog) error {
	if log == nil {
		return fmt.Errorf("message log payload is nil")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, insertMessageLogSQL, insertMessageLogArgs(log)...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySent
		}
		return storeErr("insert message log", err)
	}
	log.ID = id
	return nil
}

// HasSent reports whether a delivered message exists for the business.
func (r *SQLiteMessageLogsRepository) HasSent(ctx context.Context, businessID int64) (bool, error) {
	var sent bool
	if err := r.db.QueryRowContext(ctx, hasSentSQL, businessID).Scan(&sent); err != nil {
		return false, storeErr("check message sent", err)
	}
	return sent, nil
}

// Count returns the number of attempts matching the filter.
func (r *SQLiteMessageLogsRepository) Count(ctx context.Context, filter dto.MessageLogFilter) (int, error) {
	query, args := messageLogQuery("COUNT(*)", filter)
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, storeErr("count message logs", err)
	}
	return total, nil
}

// List returns attempts matching the filter, oldest first.
func (r *SQLiteMessageLogsRepository) List(ctx context.Context, filter dto.MessageLogFilter) ([]entity.MessageLog, error) {
	query, args := messageLogQuery(messageLogColumns, filter)
	rows, err := r.db.QueryContext(ctx, query+" ORDER BY id ASC", args...)
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
func (r *SQLiteMessageLogsRepository) SentPerDay(ctx context.Context) ([]dto.DailyCount, error) {
	rows, err := r.db.QueryContext(ctx, sentPerDaySQL)
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

// SQLiteSessionsRepository implements SessionsRepository over database/sql.
type SQLiteSessionsRepository struct {
	db *sql.DB
}

// Open inserts a running session and assigns its ID.
func (r *SQLiteSessionsRepository) Open(ctx context.Context, session *entity.CampaignSession) error {
	if session == nil {
		return fmt.Errorf("campaign session payload is nil")
	}
	prepareSession(session)

	var id int64
	if err := r.db.QueryRowContext(ctx, openSessionSQL, openSessionArgs(session)...).Scan(&id); err != nil {
		return storeErr("open campaign session", err)
	}
	session.ID = id
	return nil
}

// Close writes the final counters and status of a session.
func (r *SQLiteSessionsRepository) Close(ctx context.Context, session *entity.CampaignSession) error {
	if session == nil {
		return fmt.Errorf("campaign session payload is nil")
	}
	res, err := r.db.ExecContext(ctx, closeSessionSQL, closeSessionArgs(session)...)
	if err != nil {
		return storeErr("close campaign session", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("close campaign session", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListRecent returns the most recently started sessions first.
func (r *SQLiteSessionsRepository) ListRecent(ctx context.Context, limit int) ([]entity.CampaignSession, error) {
	rows, err := r.db.QueryContext(ctx, recentSessionsSQL, normalizeLimit(limit))
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
