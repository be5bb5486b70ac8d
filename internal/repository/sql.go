package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
)

// Queries are written with ? placeholders; pgx repositories rebind them to $n.

const businessColumns = `b.id, b.name, b.phone, b.address, b.category, b.rating, b.reviews_count, b.website, b.search_term, b.created_at`

const insertBusinessSQL = `
        INSERT INTO businesses (name, phone, address, category, rating, reviews_count, website, search_term, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (name, phone) DO NOTHING
        RETURNING id`

const existsBusinessSQL = `SELECT EXISTS (SELECT 1 FROM businesses WHERE name = ? AND phone = ?)`

const categoriesSQL = `SELECT DISTINCT category FROM businesses WHERE category <> '' ORDER BY category`

const countByCategorySQL = `
        SELECT category, COUNT(*) FROM businesses
        GROUP BY category
        ORDER BY COUNT(*) DESC, category ASC`

const insertMessageLogSQL = `
        INSERT INTO message_logs (run_id, business_id, business_name, phone, sent, sent_at, error_message, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`

const hasSentSQL = `SELECT EXISTS (SELECT 1 FROM message_logs WHERE business_id = ? AND sent)`

const messageLogColumns = `id, run_id, business_id, business_name, phone, sent, sent_at, error_message, created_at`

const sentPerDaySQL = `
        SELECT CAST(DATE(sent_at) AS TEXT) AS day, COUNT(*) FROM message_logs
        WHERE sent AND sent_at IS NOT NULL
        GROUP BY CAST(DATE(sent_at) AS TEXT)
        ORDER BY day ASC`

const openSessionSQL = `
        INSERT INTO campaign_sessions (run_id, search_term, total_found, successful_scrapes, started_at, status)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id`

const closeSessionSQL = `
        UPDATE campaign_sessions
        SET total_found = ?, successful_scrapes = ?, completed_at = ?, status = ?
        WHERE id = ?`

const sessionColumns = `id, run_id, search_term, total_found, successful_scrapes, started_at, completed_at, status`

func rebind(query string) string {
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// businessQuery renders the WHERE clause and pagination for a business filter.
func businessQuery(selectList string, filter dto.BusinessFilter, paginate bool) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if filter.WithPhone {
		clauses = append(clauses, "b.phone <> ''")
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		clauses = append(clauses, "LOWER(b.category) LIKE ?")
		args = append(args, "%"+strings.ToLower(category)+"%")
	}
	if filter.ExcludeSent {
		clauses = append(clauses, "NOT EXISTS (SELECT 1 FROM message_logs m WHERE m.business_id = b.id AND m.sent)")
	}

	query := strings.Builder{}
	query.WriteString("SELECT ")
	query.WriteString(selectList)
	query.WriteString(" FROM businesses b")
	if len(clauses) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(clauses, " AND "))
	}
	if !paginate {
		return query.String(), args
	}

	query.WriteString(" ORDER BY b.id ASC")
	switch {
	case filter.Limit > 0:
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	case filter.Page > 0 || filter.PerPage > 0:
		page, perPage := normalizePage(filter.Page, filter.PerPage)
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, perPage, (page-1)*perPage)
	}
	return query.String(), args
}

func normalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func messageLogQuery(selectList string, filter dto.MessageLogFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Sent != nil {
		clauses = append(clauses, "sent = ?")
		args = append(args, *filter.Sent)
	}
	if filter.BusinessID != nil {
		clauses = append(clauses, "business_id = ?")
		args = append(args, *filter.BusinessID)
	}

	query := "SELECT " + selectList + " FROM message_logs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (entity.Business, error) {
	var b entity.Business
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Phone,
		&b.Address,
		&b.Category,
		&b.Rating,
		&b.ReviewCount,
		&b.Website,
		&b.SearchTerm,
		&b.CreatedAt,
	)
	if err != nil {
		return entity.Business{}, fmt.Errorf("scan business: %w", err)
	}
	return b, nil
}

func scanMessageLog(row rowScanner) (entity.MessageLog, error) {
	var (
		m            entity.MessageLog
		runID        string
		sentAt       sql.NullTime
		errorMessage sql.NullString
	)
	err := row.Scan(
		&m.ID,
		&runID,
		&m.BusinessID,
		&m.BusinessName,
		&m.Phone,
		&m.Sent,
		&sentAt,
		&errorMessage,
		&m.CreatedAt,
	)
	if err != nil {
		return entity.MessageLog{}, fmt.Errorf("scan message log: %w", err)
	}
	parsed, err := uuid.Parse(runID)
	if err != nil {
		return entity.MessageLog{}, fmt.Errorf("parse message log run_id: %w", err)
	}
	m.RunID = parsed
	if sentAt.Valid {
		ts := sentAt.Time
		m.SentAt = &ts
	}
	m.ErrorMessage = nullStringToPtr(errorMessage)
	return m, nil
}

func scanSession(row rowScanner) (entity.CampaignSession, error) {
	var (
		s           entity.CampaignSession
		runID       string
		completedAt sql.NullTime
		status      string
	)
	err := row.Scan(
		&s.ID,
		&runID,
		&s.SearchTerm,
		&s.TotalFound,
		&s.SuccessfulScrapes,
		&s.StartedAt,
		&completedAt,
		&status,
	)
	if err != nil {
		return entity.CampaignSession{}, fmt.Errorf("scan campaign session: %w", err)
	}
	parsed, err := uuid.Parse(runID)
	if err != nil {
		return entity.CampaignSession{}, fmt.Errorf("parse campaign session run_id: %w", err)
	}
	s.RunID = parsed
	s.Status = entity.SessionStatus(status)
	if completedAt.Valid {
		ts := completedAt.Time
		s.CompletedAt = &ts
	}
	return s, nil
}

func nullStringToPtr(value sql.NullString) *string {
	if value.Valid {
		val := value.String
		return &val
	}
	return nil
}

func timeOrNil(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

func stringOrNil(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
