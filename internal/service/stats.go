package service

import (
	"context"
	"fmt"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/repository"
)

const recentSessionsLimit = 5

// StatsService serves the dashboard counters and reports.
type StatsService struct {
	store repository.Store
}

// NewStatsService constructs a StatsService.
func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store}
}

// Stats returns totals, the five most recent sessions and the known categories.
func (s *StatsService) Stats(ctx context.Context) (dto.StatsResponse, error) {
	var (
		out dto.StatsResponse
		err error
	)
	if out.TotalBusinesses, err = s.store.Businesses.Count(ctx, dto.BusinessFilter{}); err != nil {
		return dto.StatsResponse{}, fmt.Errorf("count businesses: %w", err)
	}
	if out.BusinessesWithPhone, err = s.store.Businesses.Count(ctx, dto.BusinessFilter{WithPhone: true}); err != nil {
		return dto.StatsResponse{}, fmt.Errorf("count businesses with phone: %w", err)
	}
	sent := true
	if out.MessagesSent, err = s.store.MessageLogs.Count(ctx, dto.MessageLogFilter{Sent: &sent}); err != nil {
		return dto.StatsResponse{}, fmt.Errorf("count sent messages: %w", err)
	}
	if out.RecentSessions, err = s.store.Sessions.ListRecent(ctx, recentSessionsLimit); err != nil {
		return dto.StatsResponse{}, fmt.Errorf("list recent sessions: %w", err)
	}
	if out.Categories, err = s.store.Businesses.Categories(ctx); err != nil {
		return dto.StatsResponse{}, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// Reports groups businesses by category and delivered messages by day.
func (s *StatsService) Reports(ctx context.Context) (dto.ReportsResponse, error) {
	byCategory, err := s.store.Businesses.CountByCategory(ctx)
	if err != nil {
		return dto.ReportsResponse{}, fmt.Errorf("count businesses by category: %w", err)
	}
	byDay, err := s.store.MessageLogs.SentPerDay(ctx)
	if err != nil {
		return dto.ReportsResponse{}, fmt.Errorf("count messages per day: %w", err)
	}
	return dto.ReportsResponse{BusinessesByCategory: byCategory, MessagesByDay: byDay}, nil
}

// ListBusinesses returns one page of businesses, optionally narrowed by category.
func (s *StatsService) ListBusinesses(ctx context.Context, category string, page, perPage int) (dto.BusinessPage, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	filter := dto.BusinessFilter{Category: category, Page: page, PerPage: perPage}

	total, err := s.store.Businesses.Count(ctx, filter)
	if err != nil {
		return dto.BusinessPage{}, fmt.Errorf("count businesses: %w", err)
	}
	businesses, err := s.store.Businesses.List(ctx, filter)
	if err != nil {
		return dto.BusinessPage{}, fmt.Errorf("list businesses: %w", err)
	}
	return dto.BusinessPage{
		Businesses: businesses,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		Pages:      (total + perPage - 1) / perPage,
	}, nil
}
