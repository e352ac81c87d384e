package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mwhitford/jobops/internal/domain"
)

// AppendActivity writes one immutable ledger entry. There is no
// update or delete counterpart anywhere in this package.
func (s *Store) AppendActivity(ctx context.Context, entry domain.ActivityEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertActivity(ctx, tx, entry)
	})
}

// ListActivity returns recent ledger entries, optionally scoped to one
// opportunity. Read-only; used only for display.
func (s *Store) ListActivity(ctx context.Context, opportunityID *int64, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, opportunity_id, contact_id, activity_type, description, metadata, created_at
		FROM activity_log`
	args := []any{}
	if opportunityID != nil {
		query += ` WHERE opportunity_id = ?`
		args = append(args, *opportunityID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list activity: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []domain.ActivityEntry
	for rows.Next() {
		var (
			e        domain.ActivityEntry
			oppID    sql.NullInt64
			cID      sql.NullInt64
			aType    string
			desc     sql.NullString
			metadata sql.NullString
			created  sql.NullString
		)
		if err := rows.Scan(&e.ID, &oppID, &cID, &aType, &desc, &metadata, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan activity: %w", err)
		}
		if oppID.Valid {
			v := oppID.Int64
			e.OpportunityID = &v
		}
		if cID.Valid {
			v := cID.Int64
			e.ContactID = &v
		}
		e.Type = domain.ActivityType(aType)
		e.Description = desc.String
		if metadata.Valid && metadata.String != "" {
			_ = json.Unmarshal([]byte(metadata.String), &e.Metadata)
		}
		e.CreatedAt = parseTimestamp(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// insertActivity appends a ledger row inside an existing transaction
// so the entry commits or rolls back with the mutation it describes.
func insertActivity(ctx context.Context, tx *sql.Tx, entry domain.ActivityEntry) error {
	var metadata any
	if len(entry.Metadata) > 0 {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: marshal activity metadata: %w", err)
		}
		metadata = string(b)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO activity_log (opportunity_id, contact_id, activity_type, description, metadata)
		VALUES (?,?,?,?,?)`,
		nullInt64(entry.OpportunityID),
		nullInt64(entry.ContactID),
		string(entry.Type),
		nullString(entry.Description),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("sqlite: append activity: %w", err)
	}
	return nil
}
