package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// LastRunDate returns the scheduler watermark as an ISO calendar date,
// or "" when the daily sequence has never run.
func (s *Store) LastRunDate(ctx context.Context) (string, error) {
	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT last_run_date FROM scheduler_state WHERE id = 1`).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("sqlite: read scheduler state: %w", err)
	}
	return last.String, nil
}

// SetLastRunDate persists the scheduler watermark. Written at the
// moment a daily run starts, before any job executes.
func (s *Store) SetLastRunDate(ctx context.Context, day string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduler_state SET last_run_date = ? WHERE id = 1`, day)
	if err != nil {
		return fmt.Errorf("sqlite: write scheduler state: %w", err)
	}
	return nil
}
