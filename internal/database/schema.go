package database

import (
	"context"
	"fmt"
)

type execFunc func(ctx context.Context, query string) error

// postgresSchema is applied statement by statement; every statement is idempotent.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS businesses (
		id            BIGSERIAL PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		phone         VARCHAR(50) NOT NULL DEFAULT '',
		address       TEXT NOT NULL DEFAULT '',
		category      VARCHAR(100) NOT NULL DEFAULT '',
		rating        DOUBLE PRECISION NOT NULL DEFAULT 0,
		reviews_count INTEGER NOT NULL DEFAULT 0,
		website       VARCHAR(255) NOT NULL DEFAULT '',
		search_term   VARCHAR(100) NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT businesses_name_phone_key UNIQUE (name, phone)
	)`,
	`CREATE TABLE IF NOT EXISTS message_logs (
		id            BIGSERIAL PRIMARY KEY,
		run_id        UUID NOT NULL,
		business_id   BIGINT NOT NULL,
		business_name VARCHAR(255) NOT NULL DEFAULT '',
		phone         VARCHAR(50) NOT NULL DEFAULT '',
		sent          BOOLEAN NOT NULL DEFAULT FALSE,
		sent_at       TIMESTAMPTZ,
		error_message TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS message_logs_sent_once ON message_logs (business_id) WHERE sent`,
	`CREATE INDEX IF NOT EXISTS message_logs_business_idx ON message_logs (business_id)`,
	`CREATE TABLE IF NOT EXISTS campaign_sessions (
		id                 BIGSERIAL PRIMARY KEY,
		run_id             UUID NOT NULL,
		search_term        VARCHAR(100) NOT NULL,
		total_found        INTEGER NOT NULL DEFAULT 0,
		successful_scrapes INTEGER NOT NULL DEFAULT 0,
		started_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at       TIMESTAMPTZ,
		status             VARCHAR(50) NOT NULL DEFAULT 'running'
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS businesses (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		phone         TEXT NOT NULL DEFAULT '',
		address       TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		rating        REAL NOT NULL DEFAULT 0,
		reviews_count INTEGER NOT NULL DEFAULT 0,
		website       TEXT NOT NULL DEFAULT '',
		search_term   TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL,
		UNIQUE (name, phone)
	)`,
	`CREATE TABLE IF NOT EXISTS message_logs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL,
		business_id   INTEGER NOT NULL,
		business_name TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		sent          BOOLEAN NOT NULL DEFAULT 0,
		sent_at       TIMESTAMP,
		error_message TEXT,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS message_logs_sent_once ON message_logs (business_id) WHERE sent`,
	`CREATE INDEX IF NOT EXISTS message_logs_business_idx ON message_logs (business_id)`,
	`CREATE TABLE IF NOT EXISTS campaign_sessions (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id             TEXT NOT NULL,
		search_term        TEXT NOT NULL,
		total_found        INTEGER NOT NULL DEFAULT 0,
		successful_scrapes INTEGER NOT NULL DEFAULT 0,
		started_at         TIMESTAMP NOT NULL,
		completed_at       TIMESTAMP,
		status             TEXT NOT NULL DEFAULT 'running'
	)`,
}

func migrate(ctx context.Context, exec execFunc, statements []string) error {
	for i, stmt := range statements {
		if err := exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
