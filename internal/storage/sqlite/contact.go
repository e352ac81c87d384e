package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mwhitford/jobops/internal/domain"
)

const contactColumns = `id, opportunity_id, full_name, title, company, linkedin_url, email,
	contact_type, outreach_day0, outreach_day3, outreach_day7, response_status,
	call_completed, referral_asked, referral_given, notes, created_at, updated_at`

// GetContact loads one contact by id.
func (s *Store) GetContact(ctx context.Context, id int64) (domain.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)

	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contact{}, &domain.NotFoundError{Entity: "contact", ID: id}
	}
	if err != nil {
		return domain.Contact{}, fmt.Errorf("sqlite: get contact %d: %w", id, err)
	}
	return c, nil
}

// CreateContact inserts a contact and its ledger entry in one
// transaction, returning the new id.
func (s *Store) CreateContact(ctx context.Context, c domain.Contact, entry domain.ActivityEntry) (int64, error) {
	var id int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		status := c.ResponseStatus
		if status == "" {
			status = domain.ResponsePending
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO contacts
				(opportunity_id, full_name, title, company, linkedin_url, email,
				 contact_type, response_status, notes)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			nullInt64(c.OpportunityID),
			c.FullName,
			nullString(c.Title),
			nullString(c.Company),
			nullString(c.LinkedInURL),
			nullString(c.Email),
			nullString(string(c.ContactType)),
			string(status),
			nullString(c.Notes),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert contact: %w", err)
		}

		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: contact id: %w", err)
		}

		entry.ContactID = &id
		return insertActivity(ctx, tx, entry)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListCadenceCandidates returns contacts that might owe a follow-up:
// day0 sent, still chaseable, and at least one later step unsent.
// Elapsed-day logic lives in the outreach service, which owns the clock.
func (s *Store) ListCadenceCandidates(ctx context.Context) ([]domain.Contact, error) {
	return s.queryContacts(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE outreach_day0 IS NOT NULL
		  AND response_status IN ('Pending','No Response')
		  AND (outreach_day3 IS NULL OR outreach_day7 IS NULL)
		ORDER BY outreach_day0`)
}

// ListPendingOutreach returns contacts with outreach sent and response
// status still Pending, for the stale-waiting-on read.
func (s *Store) ListPendingOutreach(ctx context.Context) ([]domain.Contact, error) {
	return s.queryContacts(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE outreach_day0 IS NOT NULL
		  AND response_status = 'Pending'
		ORDER BY outreach_day0`)
}

// ApplyCadenceMark persists updated cadence dates together with the
// ledger entry recording the send, in one transaction.
func (s *Store) ApplyCadenceMark(ctx context.Context, c domain.Contact, entry domain.ActivityEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE contacts
			SET outreach_day0 = ?, outreach_day3 = ?, outreach_day7 = ?,
			    response_status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			dateString(c.OutreachDay0),
			dateString(c.OutreachDay3),
			dateString(c.OutreachDay7),
			string(c.ResponseStatus),
			c.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: update cadence: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &domain.NotFoundError{Entity: "contact", ID: c.ID}
		}

		return insertActivity(ctx, tx, entry)
	})
}

// UpdateResponseStatus persists a response-status change; entry may be
// nil when the change carries no ledger event.
func (s *Store) UpdateResponseStatus(ctx context.Context, c domain.Contact, entry *domain.ActivityEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE contacts
			SET response_status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			string(c.ResponseStatus), c.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: update response status: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &domain.NotFoundError{Entity: "contact", ID: c.ID}
		}

		if entry == nil {
			return nil
		}
		return insertActivity(ctx, tx, *entry)
	})
}

func (s *Store) queryContacts(ctx context.Context, query string, args ...any) ([]domain.Contact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query contacts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanContact(row rowScanner) (domain.Contact, error) {
	var (
		c           domain.Contact
		oppID       sql.NullInt64
		title       sql.NullString
		company     sql.NullString
		linkedin    sql.NullString
		email       sql.NullString
		contactType sql.NullString
		day0        sql.NullString
		day3        sql.NullString
		day7        sql.NullString
		status      string
		notes       sql.NullString
		createdAt   sql.NullString
		updatedAt   sql.NullString
	)

	err := row.Scan(&c.ID, &oppID, &c.FullName, &title, &company, &linkedin,
		&email, &contactType, &day0, &day3, &day7, &status,
		&c.CallCompleted, &c.ReferralAsked, &c.ReferralGiven,
		&notes, &createdAt, &updatedAt)
	if err != nil {
		return domain.Contact{}, err
	}

	if oppID.Valid {
		v := oppID.Int64
		c.OpportunityID = &v
	}
	c.Title = title.String
	c.Company = company.String
	c.LinkedInURL = linkedin.String
	c.Email = email.String
	if contactType.Valid {
		c.ContactType = domain.ContactType(contactType.String)
	}
	c.OutreachDay0 = parseDate(day0)
	c.OutreachDay3 = parseDate(day3)
	c.OutreachDay7 = parseDate(day7)
	c.ResponseStatus = domain.ResponseStatus(status)
	c.Notes = notes.String
	c.CreatedAt = parseTimestamp(createdAt)
	c.UpdatedAt = parseTimestamp(updatedAt)

	return c, nil
}
