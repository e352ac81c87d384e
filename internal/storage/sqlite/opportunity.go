package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mwhitford/jobops/internal/domain"
)

const opportunityColumns = `id, company, role_title, job_family, tier, stage, source,
	salary_range, jd_url, jd_raw, jd_keywords, fit_score, ai_fit_summary,
	next_action, next_action_date, date_added, date_applied, date_closed,
	close_reason, notes, created_at, updated_at`

// GetOpportunity loads one opportunity by id.
func (s *Store) GetOpportunity(ctx context.Context, id int64) (domain.Opportunity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE id = ?`, id)

	opp, err := scanOpportunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Opportunity{}, &domain.NotFoundError{Entity: "opportunity", ID: id}
	}
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("sqlite: get opportunity %d: %w", id, err)
	}
	return opp, nil
}

// CreateOpportunity inserts a new opportunity and its ledger entry in
// one transaction, returning the new id.
func (s *Store) CreateOpportunity(ctx context.Context, opp domain.Opportunity, entry domain.ActivityEntry) (int64, error) {
	var id int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		keywords, err := marshalKeywords(opp.JDKeywords)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO opportunities
				(company, role_title, job_family, tier, stage, source, salary_range,
				 jd_url, jd_raw, jd_keywords, fit_score, ai_fit_summary,
				 next_action, next_action_date, date_added, notes)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			opp.Company,
			opp.RoleTitle,
			jobFamilyValue(opp.JobFamily),
			intValue(opp.Tier),
			string(opp.Stage),
			nullString(string(opp.Source)),
			nullString(opp.SalaryRange),
			nullString(opp.JDURL),
			nullString(opp.JDRaw),
			keywords,
			intValue(opp.FitScore),
			nullString(opp.AIFitSummary),
			nullString(opp.NextAction),
			dateString(opp.NextActionDate),
			dateString(opp.DateAdded),
			nullString(opp.Notes),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert opportunity: %w", err)
		}

		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: opportunity id: %w", err)
		}

		entry.OpportunityID = &id
		return insertActivity(ctx, tx, entry)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ApplyTransition persists a stage change plus its ledger entry as one
// atomic unit: stage fields, recomputed next action, and the log row
// all land together or not at all.
func (s *Store) ApplyTransition(ctx context.Context, opp domain.Opportunity, entry domain.ActivityEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE opportunities
			SET stage = ?, close_reason = ?, date_closed = ?, date_applied = ?,
			    next_action = ?, next_action_date = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			string(opp.Stage),
			closeReasonValue(opp.CloseReason),
			dateString(opp.DateClosed),
			dateString(opp.DateApplied),
			nullString(opp.NextAction),
			dateString(opp.NextActionDate),
			opp.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: update stage: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &domain.NotFoundError{Entity: "opportunity", ID: opp.ID}
		}

		return insertActivity(ctx, tx, entry)
	})
}

// PostingURLExists reports whether any opportunity was already
// ingested from this exact posting URL. Matching is deliberately
// exact-string; URLs differing only by query parameters are distinct.
func (s *Store) PostingURLExists(ctx context.Context, url string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM opportunities WHERE jd_url = ? LIMIT 1`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: url lookup: %w", err)
	}
	return true, nil
}

// ListStaleOpportunities returns open opportunities not touched since
// cutoff.
func (s *Store) ListStaleOpportunities(ctx context.Context, cutoff time.Time) ([]domain.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+opportunityColumns+`
		 FROM opportunities
		 WHERE stage != 'Closed' AND updated_at < ?
		 ORDER BY updated_at`,
		cutoff.UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list stale opportunities: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []domain.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan stale opportunity: %w", err)
		}
		out = append(out, opp)
	}
	return out, rows.Err()
}

// TodayQueue reads the v_today_queue view.
func (s *Store) TodayQueue(ctx context.Context) ([]domain.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company, role_title, stage, tier, next_action, next_action_date FROM v_today_queue`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: today queue: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []domain.QueueItem
	for rows.Next() {
		var (
			item       domain.QueueItem
			stage      string
			tier       sql.NullInt64
			nextAction sql.NullString
			nextDate   sql.NullString
		)
		if err := rows.Scan(&item.OpportunityID, &item.Company, &item.RoleTitle,
			&stage, &tier, &nextAction, &nextDate); err != nil {
			return nil, fmt.Errorf("sqlite: scan queue item: %w", err)
		}
		item.Stage = domain.Stage(stage)
		if tier.Valid {
			t := int(tier.Int64)
			item.Tier = &t
		}
		item.NextAction = nextAction.String
		item.NextActionDate = parseDate(nextDate)
		out = append(out, item)
	}
	return out, rows.Err()
}

// PipelineSummary reads the v_pipeline_summary view.
func (s *Store) PipelineSummary(ctx context.Context) ([]domain.StageCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, count FROM v_pipeline_summary`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: pipeline summary: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []domain.StageCount
	for rows.Next() {
		var (
			stage string
			count int
		)
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scan summary row: %w", err)
		}
		out = append(out, domain.StageCount{Stage: domain.Stage(stage), Count: count})
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row rowScanner) (domain.Opportunity, error) {
	var (
		opp          domain.Opportunity
		jobFamily    sql.NullString
		tier         sql.NullInt64
		stage        string
		source       sql.NullString
		salaryRange  sql.NullString
		jdURL        sql.NullString
		jdRaw        sql.NullString
		jdKeywords   sql.NullString
		fitScore     sql.NullInt64
		aiFitSummary sql.NullString
		nextAction   sql.NullString
		nextDate     sql.NullString
		dateAdded    sql.NullString
		dateApplied  sql.NullString
		dateClosed   sql.NullString
		closeReason  sql.NullString
		notes        sql.NullString
		createdAt    sql.NullString
		updatedAt    sql.NullString
	)

	err := row.Scan(&opp.ID, &opp.Company, &opp.RoleTitle, &jobFamily, &tier,
		&stage, &source, &salaryRange, &jdURL, &jdRaw, &jdKeywords, &fitScore,
		&aiFitSummary, &nextAction, &nextDate, &dateAdded, &dateApplied,
		&dateClosed, &closeReason, &notes, &createdAt, &updatedAt)
	if err != nil {
		return domain.Opportunity{}, err
	}

	opp.Stage = domain.Stage(stage)
	if jobFamily.Valid {
		f := domain.JobFamily(jobFamily.String)
		opp.JobFamily = &f
	}
	if tier.Valid {
		t := int(tier.Int64)
		opp.Tier = &t
	}
	if source.Valid {
		opp.Source = domain.Source(source.String)
	}
	opp.SalaryRange = salaryRange.String
	opp.JDURL = jdURL.String
	opp.JDRaw = jdRaw.String
	if jdKeywords.Valid && jdKeywords.String != "" {
		// Tolerate hand-edited rows; an unreadable list is just empty.
		_ = json.Unmarshal([]byte(jdKeywords.String), &opp.JDKeywords)
	}
	if fitScore.Valid {
		f := int(fitScore.Int64)
		opp.FitScore = &f
	}
	opp.AIFitSummary = aiFitSummary.String
	opp.NextAction = nextAction.String
	opp.NextActionDate = parseDate(nextDate)
	opp.DateAdded = parseDate(dateAdded)
	opp.DateApplied = parseDate(dateApplied)
	opp.DateClosed = parseDate(dateClosed)
	if closeReason.Valid {
		r := domain.CloseReason(closeReason.String)
		opp.CloseReason = &r
	}
	opp.Notes = notes.String
	opp.CreatedAt = parseTimestamp(createdAt)
	opp.UpdatedAt = parseTimestamp(updatedAt)

	return opp, nil
}

func marshalKeywords(keywords []string) (any, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(keywords)
	if err != nil {
		return nil, fmt.Errorf("sqlite: marshal keywords: %w", err)
	}
	return string(b), nil
}

func jobFamilyValue(f *domain.JobFamily) any {
	if f == nil {
		return nil
	}
	return string(*f)
}

func closeReasonValue(r *domain.CloseReason) any {
	if r == nil {
		return nil
	}
	return string(*r)
}

func intValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
