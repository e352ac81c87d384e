package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhitford/jobops/internal/domain"
)

// actionPolicy derives the next action from the stage just entered.
type actionPolicy struct {
	text    string
	daysOut int
}

// One policy per non-terminal stage. Closed has no entry: closing an
// opportunity clears the next-action fields entirely.
var nextActionPolicy = map[domain.Stage]actionPolicy{
	domain.StageProspect:        {"Research company and find a referral path", 2},
	domain.StageWarmLead:        {"Follow up with warm contact", 3},
	domain.StageApplied:         {"Follow up on application status", 5},
	domain.StageRecruiterScreen: {"Send thank-you and confirm next steps", 2},
	domain.StageHMInterview:     {"Send thank-you note to hiring manager", 1},
	domain.StageLoop:            {"Check in with recruiter on loop feedback", 3},
	domain.StageOfferPending:    {"Evaluate offer and respond", 2},
}

// TransitionRequest carries the optional parts of a stage transition.
type TransitionRequest struct {
	// CloseReason is required when the target stage is Closed and must
	// be absent otherwise.
	CloseReason *domain.CloseReason

	// Note, when set, is recorded in the ledger entry metadata.
	Note string
}

// Service is the stage machine: it validates and applies opportunity
// stage transitions and recomputes the next-action deadline. Any stage
// is reachable from any other; there is intentionally no transition
// graph, so a user can always move an opportunity backward to correct
// a mistake.
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

// NewService builds the stage machine.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pipeline.Service: repository is required")
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

// Transition moves an opportunity to target, recomputes its next
// action, and appends one "Stage Change" ledger entry, all applied
// atomically by the repository.
func (s *Service) Transition(ctx context.Context, id int64, target domain.Stage, req TransitionRequest) (domain.Opportunity, error) {
	if _, err := domain.ParseStage(string(target)); err != nil {
		return domain.Opportunity{}, err
	}

	opp, err := s.repo.GetOpportunity(ctx, id)
	if err != nil {
		return domain.Opportunity{}, err
	}

	today := domain.CivilDate(s.clock())
	previous := opp.Stage
	opp.Stage = target

	if target == domain.StageClosed {
		if req.CloseReason == nil {
			return domain.Opportunity{}, domain.NewValidationError(
				"a close reason is required to move an opportunity to Closed")
		}
		if _, err := domain.ParseCloseReason(string(*req.CloseReason)); err != nil {
			return domain.Opportunity{}, err
		}
		opp.CloseReason = req.CloseReason
		opp.DateClosed = &today
		opp.NextAction = ""
		opp.NextActionDate = nil
	} else {
		// Reopening (or any non-terminal move) clears the close fields
		// so close_reason stays non-null exactly when stage is Closed.
		opp.CloseReason = nil
		opp.DateClosed = nil

		if target == domain.StageApplied && opp.DateApplied == nil {
			opp.DateApplied = &today
		}

		policy := nextActionPolicy[target]
		due := today.AddDate(0, 0, policy.daysOut)
		opp.NextAction = policy.text
		opp.NextActionDate = &due
	}

	entry := domain.ActivityEntry{
		OpportunityID: &opp.ID,
		Type:          domain.ActivityStageChange,
		Description:   fmt.Sprintf("Stage changed: %s to %s", previous, target),
		Metadata: map[string]any{
			"from": string(previous),
			"to":   string(target),
		},
	}
	if req.Note != "" {
		entry.Metadata["note"] = req.Note
	}
	if opp.CloseReason != nil {
		entry.Metadata["close_reason"] = string(*opp.CloseReason)
	}

	if err := s.repo.ApplyTransition(ctx, opp, entry); err != nil {
		return domain.Opportunity{}, err
	}

	return opp, nil
}

// FlagStale returns open opportunities untouched for at least
// staleAfterDays days. Read-only; the daily stale check reports these
// without mutating anything.
func (s *Service) FlagStale(ctx context.Context, staleAfterDays int) ([]domain.Opportunity, error) {
	if staleAfterDays <= 0 {
		return nil, domain.NewValidationError("staleAfterDays must be positive, got %d", staleAfterDays)
	}
	cutoff := s.clock().AddDate(0, 0, -staleAfterDays)
	return s.repo.ListStaleOpportunities(ctx, cutoff)
}
