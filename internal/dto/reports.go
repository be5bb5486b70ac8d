package dto

import "github.com/octobees/leads-prospector/internal/entity"

// CategoryCount is the number of businesses stored under one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// DailyCount is the number of delivered messages on one calendar day (YYYY-MM-DD).
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// StatsResponse is the payload of GET /stats.
type StatsResponse struct {
	TotalBusinesses     int                      `json:"total_businesses"`
	BusinessesWithPhone int                      `json:"businesses_with_phone"`
	MessagesSent        int                      `json:"messages_sent"`
	RecentSessions      []entity.CampaignSession `json:"recent_sessions"`
	Categories          []string                 `json:"categories"`
}

// ReportsResponse is the payload of GET /reports.
type ReportsResponse struct {
	BusinessesByCategory []CategoryCount `json:"businesses_by_category"`
	MessagesByDay        []DailyCount    `json:"messages_by_day"`
}
