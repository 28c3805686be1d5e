package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// {{serial}} is an auto-incrementing primary key; seq orders rows by insertion
var schema = []string{
	`CREATE TABLE IF NOT EXISTS financial_records (
		seq               {{serial}},
		id                TEXT NOT NULL UNIQUE,
		ledger            TEXT NOT NULL,
		counterparty_name TEXT NOT NULL,
		issue_date        TEXT NOT NULL,
		due_date          TEXT NOT NULL,
		amount            TEXT NOT NULL,
		status            TEXT NOT NULL,
		source_system     TEXT NOT NULL,
		disputed          INTEGER NOT NULL DEFAULT 0,
		method            TEXT NOT NULL DEFAULT '',
		risk_score        TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS automation_rules (
		seq       {{serial}},
		id        TEXT NOT NULL UNIQUE,
		field     TEXT NOT NULL,
		operator  TEXT NOT NULL,
		threshold TEXT NOT NULL,
		action    TEXT NOT NULL,
		enabled   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reminder_attempts (
		seq               {{serial}},
		natural_key       TEXT NOT NULL UNIQUE,
		id                TEXT NOT NULL,
		record_id         TEXT NOT NULL,
		channel           TEXT NOT NULL,
		due_date          TEXT NOT NULL,
		scheduled_date    TEXT,
		status            TEXT NOT NULL,
		attempt_count     INTEGER NOT NULL,
		last_attempt_date TEXT,
		created_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminder_attempts_stream ON reminder_attempts (record_id, channel, seq)`,
	`CREATE TABLE IF NOT EXISTS escalations (
		record_id    TEXT PRIMARY KEY,
		escalated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dispatches (
		natural_key   TEXT PRIMARY KEY,
		dispatched_at TEXT NOT NULL
	)`,
}

// Migrate creates the tables used by the repositories if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	for _, statement := range schema {
		statement = strings.ReplaceAll(statement, "{{serial}}", serial)
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
