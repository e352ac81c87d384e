package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhitford/jobops/internal/domain"
)

const (
	day3Threshold  = 3
	day7Threshold  = 7
	staleThreshold = 2
)

// FollowUp is one due cadence step for one contact.
type FollowUp struct {
	Contact domain.Contact
	Step    domain.CadenceStep
	Reason  string
}

// Service tracks the Day 0 / Day 3 / Day 7 outreach cadence. Both
// follow-up thresholds are anchored to day0, not to the previous step,
// so a late day3 send does not push day7 out.
type Service struct {
	repo  Repository
	clock func() time.Time
}

// Option configures Service
type Option func(*Service)

// WithClock sets a custom clock
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService builds the follow-up tracker.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("outreach.Service: repository is required")
	}

	s := &Service{
		repo:  repo,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DueFollowUps computes which contacts owe a follow-up today. A
// contact that has Responded or has a meeting scheduled is never
// chased, no matter how many days have passed.
func (s *Service) DueFollowUps(ctx context.Context) ([]FollowUp, error) {
	candidates, err := s.repo.ListCadenceCandidates(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var due []FollowUp
	for _, c := range candidates {
		if !c.ResponseStatus.Chaseable() || c.OutreachDay0 == nil {
			continue
		}

		elapsed := domain.DaysBetween(*c.OutreachDay0, now)

		switch {
		case c.OutreachDay3 == nil && elapsed >= day3Threshold:
			due = append(due, FollowUp{
				Contact: c,
				Step:    domain.StepDay3,
				Reason:  fmt.Sprintf("Day 3 follow-up due (outreach sent %d days ago)", elapsed),
			})
		case c.OutreachDay3 != nil && c.OutreachDay7 == nil && elapsed >= day7Threshold:
			due = append(due, FollowUp{
				Contact: c,
				Step:    domain.StepDay7,
				Reason:  fmt.Sprintf("Day 7 follow-up due (outreach sent %d days ago)", elapsed),
			})
		}
	}
	return due, nil
}

// MarkSent records that a cadence step went out today and appends the
// matching ledger entry. Marking the same step twice on the same day
// is a no-op, not an error. The cadence is strictly sequential: day3
// cannot be marked before day0, nor day7 before day3.
func (s *Service) MarkSent(ctx context.Context, contactID int64, step domain.CadenceStep) (domain.Contact, error) {
	c, err := s.repo.GetContact(ctx, contactID)
	if err != nil {
		return domain.Contact{}, err
	}

	today := domain.CivilDate(s.clock())

	var (
		entryType   domain.ActivityType
		description string
	)

	switch step {
	case domain.StepDay0:
		if sameDay(c.OutreachDay0, today) {
			return c, nil
		}
		c.OutreachDay0 = &today
		if !c.ResponseStatus.Chaseable() {
			// A fresh day0 restarts the clock on a contact being re-engaged.
			c.ResponseStatus = domain.ResponsePending
		}
		entryType = domain.ActivityOutreachSent
		description = fmt.Sprintf("Day 0 outreach sent to %s", c.FullName)

	case domain.StepDay3:
		if c.OutreachDay0 == nil {
			return domain.Contact{}, domain.NewValidationError(
				"cannot mark day3 for contact %d: day0 outreach has not been sent", contactID)
		}
		if sameDay(c.OutreachDay3, today) {
			return c, nil
		}
		c.OutreachDay3 = &today
		entryType = domain.ActivityFollowUpSent
		description = fmt.Sprintf("Day 3 follow-up sent to %s", c.FullName)

	case domain.StepDay7:
		if c.OutreachDay3 == nil {
			return domain.Contact{}, domain.NewValidationError(
				"cannot mark day7 for contact %d: day3 follow-up has not been sent", contactID)
		}
		if sameDay(c.OutreachDay7, today) {
			return c, nil
		}
		c.OutreachDay7 = &today
		entryType = domain.ActivityFollowUpSent
		description = fmt.Sprintf("Day 7 follow-up sent to %s", c.FullName)

	default:
		return domain.Contact{}, domain.NewValidationError("unknown cadence step %q", step)
	}

	entry := domain.ActivityEntry{
		OpportunityID: c.OpportunityID,
		ContactID:     &c.ID,
		Type:          entryType,
		Description:   description,
		Metadata:      map[string]any{"step": step.String()},
	}

	if err := s.repo.ApplyCadenceMark(ctx, c, entry); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

// StaleWaitingOn surfaces contacts whose outreach is still unanswered
// at least two days after day0. Read-only; the daily stale check
// reports these.
func (s *Service) StaleWaitingOn(ctx context.Context) ([]domain.Contact, error) {
	pending, err := s.repo.ListPendingOutreach(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var stale []domain.Contact
	for _, c := range pending {
		if c.OutreachDay0 == nil {
			continue
		}
		if domain.DaysBetween(*c.OutreachDay0, now) >= staleThreshold {
			stale = append(stale, c)
		}
	}
	return stale, nil
}

// SetResponseStatus records how a contact answered. A move to
// Responded writes a "Response Received" ledger entry; other status
// changes are silent.
func (s *Service) SetResponseStatus(ctx context.Context, contactID int64, status domain.ResponseStatus) (domain.Contact, error) {
	switch status {
	case domain.ResponsePending, domain.ResponseResponded, domain.ResponseNone, domain.ResponseMeetingScheduled:
	default:
		return domain.Contact{}, domain.NewValidationError("unknown response status %q", status)
	}

	c, err := s.repo.GetContact(ctx, contactID)
	if err != nil {
		return domain.Contact{}, err
	}

	c.ResponseStatus = status

	var entry *domain.ActivityEntry
	if status == domain.ResponseResponded || status == domain.ResponseMeetingScheduled {
		entry = &domain.ActivityEntry{
			OpportunityID: c.OpportunityID,
			ContactID:     &c.ID,
			Type:          domain.ActivityResponseReceived,
			Description:   fmt.Sprintf("%s responded", c.FullName),
		}
	}

	if err := s.repo.UpdateResponseStatus(ctx, c, entry); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func sameDay(existing *time.Time, today time.Time) bool {
	return existing != nil && domain.CivilDate(*existing).Equal(today)
}
