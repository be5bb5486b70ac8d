package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
)

// BusinessesRepository describes persistence operations for discovered businesses.
type BusinessesRepository interface {
	// InsertIfAbsent stores the business unless (name, phone) is already present.
	// On insert it assigns ID and CreatedAt.
	InsertIfAbsent(ctx context.Context, business *entity.Business) (bool, error)
	Exists(ctx context.Context, name, phone string) (bool, error)
	List(ctx context.Context, filter dto.BusinessFilter) ([]entity.Business, error)
	Count(ctx context.Context, filter dto.BusinessFilter) (int, error)
	Categories(ctx context.Context) ([]string, error)
	CountByCategory(ctx context.Context) ([]dto.CategoryCount, error)
}

// PGXBusinessesRepository implements BusinessesRepository using pgx.
type PGXBusinessesRepository struct {
	pool pgxPool
}

// NewPGXBusinessesRepository wires a pgx backed repository.
func NewPGXBusinessesRepository(pool *pgxpool.Pool) *PGXBusinessesRepository {
	return &PGXBusinessesRepository{pool: pool}
}

// InsertIfAbsent inserts the business and reports false when it already existed.
func (r *PGXBusinessesRepository) InsertIfAbsent(ctx context.Context, business *entity.Business) (bool, error) {
	if business == nil {
		return false, fmt.Errorf("business payload is nil")
	}
	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := r.pool.QueryRow(ctx, rebind(insertBusinessSQL), insertBusinessArgs(business)...).Scan(&id)
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
func (r *PGXBusinessesRepository) Exists(ctx context.Context, name, phone string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, rebind(existsBusinessSQL), name, phone).Scan(&exists); err != nil {
		return false, storeErr("check business exists", err)
	}
	return exists, nil
}

// List returns businesses matching the filter in discovery order.
func (r *PGXBusinessesRepository) List(ctx context.Context, filter dto.BusinessFilter) ([]entity.Business, error) {
	query, args := businessQuery(businessColumns, filter, true)
	rows, err := r.pool.Query(ctx, rebind(query), args...)
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
func (r *PGXBusinessesRepository) Count(ctx context.Context, filter dto.BusinessFilter) (int, error) {
	query, args := businessQuery("COUNT(*)", filter, false)
	var total int
	if err := r.pool.QueryRow(ctx, rebind(query), args...).Scan(&total); err != nil {
		return 0, storeErr("count businesses", err)
	}
	return total, nil
}

// Categories returns the distinct non-empty categories in alphabetical order.
func (r *PGXBusinessesRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, categoriesSQL)
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
func (r *PGXBusinessesRepository) CountByCategory(ctx context.Context) ([]dto.CategoryCount, error) {
	rows, err := r.pool.Query(ctx, countByCategorySQL)
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

func insertBusinessArgs(b *entity.Business) []any {
	return []any{
		b.Name,
		b.Phone,
		b.Address,
		b.Category,
		b.Rating,
		b.ReviewCount,
		b.Website,
		b.SearchTerm,
		b.CreatedAt,
	}
}
