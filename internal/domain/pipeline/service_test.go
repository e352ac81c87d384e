package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mwhitford/jobops/internal/domain"
)

// fakeRepo holds opportunities in memory and applies transitions the
// way the SQLite store does: all or nothing.
type fakeRepo struct {
	opportunities map[int64]domain.Opportunity
	entries       []domain.ActivityEntry
	failApply     bool
}

func newFakeRepo(opps ...domain.Opportunity) *fakeRepo {
	r := &fakeRepo{opportunities: map[int64]domain.Opportunity{}}
	for _, opp := range opps {
		r.opportunities[opp.ID] = opp
	}
	return r
}

func (r *fakeRepo) GetOpportunity(ctx context.Context, id int64) (domain.Opportunity, error) {
	opp, ok := r.opportunities[id]
	if !ok {
		return domain.Opportunity{}, &domain.NotFoundError{Entity: "opportunity", ID: id}
	}
	return opp, nil
}

func (r *fakeRepo) ApplyTransition(ctx context.Context, opp domain.Opportunity, entry domain.ActivityEntry) error {
	if r.failApply {
		return errors.New("disk full")
	}
	if _, ok := r.opportunities[opp.ID]; !ok {
		return &domain.NotFoundError{Entity: "opportunity", ID: opp.ID}
	}
	r.opportunities[opp.ID] = opp
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeRepo) ListStaleOpportunities(ctx context.Context, cutoff time.Time) ([]domain.Opportunity, error) {
	var out []domain.Opportunity
	for _, opp := range r.opportunities {
		if opp.Stage != domain.StageClosed && opp.UpdatedAt.Before(cutoff) {
			out = append(out, opp)
		}
	}
	return out, nil
}

func fixedClock(t *testing.T, value string) func() time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return func() time.Time { return parsed }
}

func newTestService(t *testing.T, repo Repository, now string) *Service {
	t.Helper()
	s, err := NewService(repo, WithClock(fixedClock(t, now)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s
}

func TestTransitionRecomputesNextAction(t *testing.T) {
	repo := newFakeRepo(domain.Opportunity{
		ID:        1,
		Company:   "Acme Corp",
		RoleTitle: "Senior Data Manager",
		Stage:     domain.StageProspect,
	})
	s := newTestService(t, repo, "2026-03-02 10:00")

	opp, err := s.Transition(context.Background(), 1, domain.StageApplied, TransitionRequest{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if opp.Stage != domain.StageApplied {
		t.Fatalf("expected Applied, got %s", opp.Stage)
	}
	if opp.NextAction != "Follow up on application status" {
		t.Fatalf("unexpected next action: %q", opp.NextAction)
	}
	if opp.NextActionDate == nil || opp.NextActionDate.Format("2006-01-02") != "2026-03-07" {
		t.Fatalf("expected next action 5 days out, got %v", opp.NextActionDate)
	}
	if opp.DateApplied == nil || opp.DateApplied.Format("2006-01-02") != "2026-03-02" {
		t.Fatalf("expected date_applied stamped today, got %v", opp.DateApplied)
	}

	if len(repo.entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Type != domain.ActivityStageChange {
		t.Fatalf("unexpected entry type %s", entry.Type)
	}
	if entry.Metadata["from"] != "Prospect" || entry.Metadata["to"] != "Applied" {
		t.Fatalf("unexpected entry metadata: %v", entry.Metadata)
	}
}

func TestTransitionToClosedRequiresReason(t *testing.T) {
	repo := newFakeRepo(domain.Opportunity{ID: 1, Stage: domain.StageLoop})
	s := newTestService(t, repo, "2026-03-02 10:00")

	_, err := s.Transition(context.Background(), 1, domain.StageClosed, TransitionRequest{})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := repo.opportunities[1].Stage; got != domain.StageLoop {
		t.Fatalf("expected stage unchanged after rejected transition, got %s", got)
	}
}

func TestTransitionToClosedSetsCloseFields(t *testing.T) {
	due := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo(domain.Opportunity{
		ID:             1,
		Stage:          domain.StageOfferPending,
		NextAction:     "Evaluate offer and respond",
		NextActionDate: &due,
	})
	s := newTestService(t, repo, "2026-03-02 10:00")

	reason := domain.CloseOfferDeclined
	opp, err := s.Transition(context.Background(), 1, domain.StageClosed,
		TransitionRequest{CloseReason: &reason, Note: "comp below floor"})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if opp.CloseReason == nil || *opp.CloseReason != domain.CloseOfferDeclined {
		t.Fatalf("close reason not set: %+v", opp.CloseReason)
	}
	if opp.DateClosed == nil || opp.DateClosed.Format("2006-01-02") != "2026-03-02" {
		t.Fatalf("expected date_closed stamped today, got %v", opp.DateClosed)
	}
	if opp.NextAction != "" || opp.NextActionDate != nil {
		t.Fatal("expected next action cleared on close")
	}
	if repo.entries[0].Metadata["note"] != "comp below floor" {
		t.Fatalf("note missing from ledger metadata: %v", repo.entries[0].Metadata)
	}
}

func TestReopenClearsCloseFields(t *testing.T) {
	reason := domain.CloseGhosted
	closedOn := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo(domain.Opportunity{
		ID:          1,
		Stage:       domain.StageClosed,
		CloseReason: &reason,
		DateClosed:  &closedOn,
	})
	s := newTestService(t, repo, "2026-03-02 10:00")

	opp, err := s.Transition(context.Background(), 1, domain.StageWarmLead, TransitionRequest{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if opp.CloseReason != nil || opp.DateClosed != nil {
		t.Fatal("expected close fields cleared on reopen")
	}
	if opp.NextAction != "Follow up with warm contact" {
		t.Fatalf("unexpected next action after reopen: %q", opp.NextAction)
	}
}

func TestTransitionRejectsUnknownStage(t *testing.T) {
	repo := newFakeRepo(domain.Opportunity{ID: 1, Stage: domain.StageProspect})
	s := newTestService(t, repo, "2026-03-02 10:00")

	_, err := s.Transition(context.Background(), 1, domain.Stage("Negotiating"), TransitionRequest{})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTransitionUnknownOpportunity(t *testing.T) {
	s := newTestService(t, newFakeRepo(), "2026-03-02 10:00")

	_, err := s.Transition(context.Background(), 404, domain.StageApplied, TransitionRequest{})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestTransitionKeepsExistingDateApplied(t *testing.T) {
	applied := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo(domain.Opportunity{
		ID:          1,
		Stage:       domain.StageRecruiterScreen,
		DateApplied: &applied,
	})
	s := newTestService(t, repo, "2026-03-02 10:00")

	// A backward correction into Applied must not overwrite the
	// original application date.
	opp, err := s.Transition(context.Background(), 1, domain.StageApplied, TransitionRequest{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if opp.DateApplied == nil || !opp.DateApplied.Equal(applied) {
		t.Fatalf("expected date_applied preserved, got %v", opp.DateApplied)
	}
}

func TestTransitionSurfacesRepositoryError(t *testing.T) {
	repo := newFakeRepo(domain.Opportunity{ID: 1, Stage: domain.StageProspect})
	repo.failApply = true
	s := newTestService(t, repo, "2026-03-02 10:00")

	_, err := s.Transition(context.Background(), 1, domain.StageApplied, TransitionRequest{})
	if err == nil {
		t.Fatal("expected repository failure to surface")
	}
	if got := repo.opportunities[1].Stage; got != domain.StageProspect {
		t.Fatalf("expected stage unchanged after failed apply, got %s", got)
	}
}

func TestFlagStale(t *testing.T) {
	stale := domain.Opportunity{ID: 1, Stage: domain.StageApplied,
		UpdatedAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	fresh := domain.Opportunity{ID: 2, Stage: domain.StageApplied,
		UpdatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	closed := domain.Opportunity{ID: 3, Stage: domain.StageClosed,
		UpdatedAt: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}

	s := newTestService(t, newFakeRepo(stale, fresh, closed), "2026-03-02 10:00")

	got, err := s.FlagStale(context.Background(), 7)
	if err != nil {
		t.Fatalf("flag stale: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the untouched open opportunity, got %+v", got)
	}

	if _, err := s.FlagStale(context.Background(), 0); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for non-positive window, got %v", err)
	}
}
