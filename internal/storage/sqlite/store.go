// Package sqlite implements every repository interface of the pipeline
// core on a single local SQLite database. All multi-row mutations are
// wrapped in one transaction per logical operation so foreground reads
// never observe a half-applied change.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// dateLayout is the persisted form of all calendar-date columns.
const dateLayout = "2006-01-02"

// timestampLayout matches SQLite's CURRENT_TIMESTAMP output.
const timestampLayout = "2006-01-02 15:04:05"

// Store wraps the SQLite handle
type Store struct {
	db *sql.DB
}

// Open opens the database file and enables foreign keys.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	company TEXT NOT NULL,
	role_title TEXT NOT NULL,
	job_family TEXT CHECK (job_family IN ('A','B','C','D','E')),
	tier INTEGER CHECK (tier BETWEEN 1 AND 3),
	stage TEXT NOT NULL DEFAULT 'Prospect' CHECK (stage IN (
		'Prospect','Warm Lead','Applied','Recruiter Screen',
		'HM Interview','Loop','Offer Pending','Closed')),
	source TEXT CHECK (source IN ('LinkedIn','Referral','Job Board','Outbound','Other')),
	salary_range TEXT,
	jd_url TEXT,
	jd_raw TEXT,
	jd_keywords TEXT,
	fit_score INTEGER CHECK (fit_score BETWEEN 1 AND 10),
	ai_fit_summary TEXT,
	next_action TEXT,
	next_action_date TEXT,
	date_added TEXT DEFAULT (date('now')),
	date_applied TEXT,
	date_closed TEXT,
	close_reason TEXT CHECK (close_reason IN (
		'Rejected','Withdrawn','Ghosted','Offer Accepted','Offer Declined')),
	notes TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	CHECK ((stage = 'Closed') = (close_reason IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	opportunity_id INTEGER REFERENCES opportunities(id),
	full_name TEXT NOT NULL,
	title TEXT,
	company TEXT,
	linkedin_url TEXT,
	email TEXT,
	contact_type TEXT CHECK (contact_type IN (
		'Hiring Manager','Peer','Recruiter','Alumni','Referral Source','Other')),
	outreach_day0 TEXT,
	outreach_day3 TEXT,
	outreach_day7 TEXT,
	response_status TEXT NOT NULL DEFAULT 'Pending' CHECK (response_status IN (
		'Pending','Responded','No Response','Meeting Scheduled')),
	call_completed INTEGER NOT NULL DEFAULT 0,
	referral_asked INTEGER NOT NULL DEFAULT 0,
	referral_given INTEGER NOT NULL DEFAULT 0,
	notes TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	CHECK (outreach_day3 IS NULL OR outreach_day0 IS NOT NULL),
	CHECK (outreach_day7 IS NULL OR outreach_day3 IS NOT NULL)
);

CREATE TABLE IF NOT EXISTS activity_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	opportunity_id INTEGER REFERENCES opportunities(id),
	contact_id INTEGER REFERENCES contacts(id),
	activity_type TEXT NOT NULL CHECK (activity_type IN (
		'Note Added','Stage Change','Outreach Sent','Follow-Up Sent',
		'Response Received','AI Action')),
	description TEXT,
	metadata TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scheduler_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	last_run_date TEXT
);
INSERT OR IGNORE INTO scheduler_state (id, last_run_date) VALUES (1, NULL);

CREATE INDEX IF NOT EXISTS idx_opportunities_stage ON opportunities(stage);
CREATE INDEX IF NOT EXISTS idx_opportunities_jd_url ON opportunities(jd_url);
CREATE INDEX IF NOT EXISTS idx_contacts_opportunity ON contacts(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_activity_opportunity ON activity_log(opportunity_id);

CREATE VIEW IF NOT EXISTS v_today_queue AS
SELECT id, company, role_title, stage, tier, next_action, next_action_date
FROM opportunities
WHERE stage != 'Closed'
  AND next_action_date IS NOT NULL
  AND next_action_date <= date('now')
ORDER BY tier, next_action_date;

CREATE VIEW IF NOT EXISTS v_warm_leads AS
SELECT id, company, role_title, tier, next_action, next_action_date
FROM opportunities
WHERE stage = 'Warm Lead'
ORDER BY tier;

CREATE VIEW IF NOT EXISTS v_waiting_on AS
SELECT id, opportunity_id, full_name, contact_type, outreach_day0, outreach_day3, outreach_day7
FROM contacts
WHERE response_status = 'Pending'
  AND outreach_day0 IS NOT NULL
  AND julianday(date('now')) - julianday(outreach_day0) >= 2;

CREATE VIEW IF NOT EXISTS v_pipeline_summary AS
SELECT stage, COUNT(*) AS count
FROM opportunities
GROUP BY stage;
`

// Migrate creates the schema, including the derived read-only views
// consumed by the display layer.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on any error so a
// logical operation is applied all-or-nothing.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	committed = true
	return nil
}

// dateString formats an optional calendar date for storage.
func dateString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// parseDate reads an optional calendar-date column.
func parseDate(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, v.String)
	if err != nil {
		return nil
	}
	return &t
}

// parseTimestamp reads a CURRENT_TIMESTAMP column, tolerating both
// SQLite's default format and RFC 3339.
func parseTimestamp(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timestampLayout, v.String); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, v.String); err == nil {
		return t
	}
	return time.Time{}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
