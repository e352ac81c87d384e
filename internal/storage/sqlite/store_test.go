package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwhitford/jobops/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "jobops_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return &parsed
}

func createTestOpportunity(t *testing.T, store *Store, opp domain.Opportunity) int64 {
	t.Helper()
	id, err := store.CreateOpportunity(context.Background(), opp, domain.ActivityEntry{
		Type:        domain.ActivityNoteAdded,
		Description: "created in test",
	})
	if err != nil {
		t.Fatalf("create opportunity: %v", err)
	}
	return id
}

func TestOpportunityRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tier := 1
	family := domain.FamilyDataManager
	id := createTestOpportunity(t, store, domain.Opportunity{
		Company:        "Acme Corp",
		RoleTitle:      "Senior Data Manager",
		JobFamily:      &family,
		Tier:           &tier,
		Stage:          domain.StageProspect,
		Source:         domain.SourceJobBoard,
		JDURL:          "https://boards.example.com/jobs/1",
		JDKeywords:     []string{"sql", "dbt", "stakeholders"},
		NextAction:     "Research company and find a referral path",
		NextActionDate: datePtr(t, "2026-03-04"),
		DateAdded:      datePtr(t, "2026-03-02"),
	})

	opp, err := store.GetOpportunity(ctx, id)
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if opp.Company != "Acme Corp" || opp.RoleTitle != "Senior Data Manager" {
		t.Fatalf("unexpected identity fields: %+v", opp)
	}
	if opp.Stage != domain.StageProspect {
		t.Fatalf("expected Prospect stage, got %s", opp.Stage)
	}
	if opp.JobFamily == nil || *opp.JobFamily != domain.FamilyDataManager {
		t.Fatalf("job family not preserved: %+v", opp.JobFamily)
	}
	if len(opp.JDKeywords) != 3 || opp.JDKeywords[1] != "dbt" {
		t.Fatalf("keywords not preserved: %v", opp.JDKeywords)
	}
	if opp.NextActionDate == nil || opp.NextActionDate.Format(dateLayout) != "2026-03-04" {
		t.Fatalf("next action date not preserved: %v", opp.NextActionDate)
	}

	entries, err := store.ListActivity(ctx, &id, 10)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != domain.ActivityNoteAdded {
		t.Fatalf("expected one creation ledger entry, got %+v", entries)
	}
}

func TestGetOpportunityNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetOpportunity(context.Background(), 404)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestApplyTransitionRollsBackOnLedgerFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := createTestOpportunity(t, store, domain.Opportunity{
		Company:   "Globex",
		RoleTitle: "BI Lead",
		Stage:     domain.StageProspect,
	})

	opp, err := store.GetOpportunity(ctx, id)
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	opp.Stage = domain.StageApplied

	// An activity type outside the schema's closed set fails the ledger
	// insert, which must take the stage update down with it.
	err = store.ApplyTransition(ctx, opp, domain.ActivityEntry{
		OpportunityID: &id,
		Type:          domain.ActivityType("Bogus"),
	})
	if err == nil {
		t.Fatal("expected transition to fail on invalid ledger entry")
	}

	after, err := store.GetOpportunity(ctx, id)
	if err != nil {
		t.Fatalf("get opportunity after rollback: %v", err)
	}
	if after.Stage != domain.StageProspect {
		t.Fatalf("expected stage rollback to Prospect, got %s", after.Stage)
	}
}

func TestApplyTransitionPersistsCloseFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := createTestOpportunity(t, store, domain.Opportunity{
		Company:   "Initech",
		RoleTitle: "Analytics Manager",
		Stage:     domain.StageLoop,
	})

	opp, err := store.GetOpportunity(ctx, id)
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	reason := domain.CloseRejected
	opp.Stage = domain.StageClosed
	opp.CloseReason = &reason
	opp.DateClosed = datePtr(t, "2026-03-10")
	opp.NextAction = ""
	opp.NextActionDate = nil

	err = store.ApplyTransition(ctx, opp, domain.ActivityEntry{
		OpportunityID: &id,
		Type:          domain.ActivityStageChange,
		Description:   "Stage changed: Loop to Closed",
	})
	if err != nil {
		t.Fatalf("apply transition: %v", err)
	}

	after, err := store.GetOpportunity(ctx, id)
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if after.Stage != domain.StageClosed {
		t.Fatalf("expected Closed stage, got %s", after.Stage)
	}
	if after.CloseReason == nil || *after.CloseReason != domain.CloseRejected {
		t.Fatalf("close reason not persisted: %+v", after.CloseReason)
	}
	if after.NextActionDate != nil {
		t.Fatal("expected next action date cleared on close")
	}
}

func TestPostingURLExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createTestOpportunity(t, store, domain.Opportunity{
		Company:   "Acme Corp",
		RoleTitle: "Senior Data Manager",
		Stage:     domain.StageProspect,
		JDURL:     "https://boards.example.com/jobs/1",
	})

	exists, err := store.PostingURLExists(ctx, "https://boards.example.com/jobs/1")
	if err != nil {
		t.Fatalf("url lookup: %v", err)
	}
	if !exists {
		t.Fatal("expected exact URL to be found")
	}

	// Matching is exact-string; a query parameter makes a distinct URL.
	exists, err = store.PostingURLExists(ctx, "https://boards.example.com/jobs/1?ref=email")
	if err != nil {
		t.Fatalf("url lookup: %v", err)
	}
	if exists {
		t.Fatal("expected URL with extra query parameter to be distinct")
	}
}

func TestListStaleOpportunities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	openID := createTestOpportunity(t, store, domain.Opportunity{
		Company:   "Acme Corp",
		RoleTitle: "Senior Data Manager",
		Stage:     domain.StageApplied,
	})
	closedID := createTestOpportunity(t, store, domain.Opportunity{
		Company:   "Globex",
		RoleTitle: "BI Lead",
		Stage:     domain.StageProspect,
	})

	reason := domain.CloseWithdrawn
	closed, err := store.GetOpportunity(ctx, closedID)
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	closed.Stage = domain.StageClosed
	closed.CloseReason = &reason
	closed.DateClosed = datePtr(t, "2026-03-01")
	if err := store.ApplyTransition(ctx, closed, domain.ActivityEntry{
		OpportunityID: &closedID,
		Type:          domain.ActivityStageChange,
	}); err != nil {
		t.Fatalf("close opportunity: %v", err)
	}

	// A cutoff in the future makes freshly written rows stale; closed
	// rows stay excluded regardless.
	stale, err := store.ListStaleOpportunities(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != openID {
		t.Fatalf("expected only the open opportunity, got %+v", stale)
	}

	stale, err = store.ListStaleOpportunities(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected no stale rows with a past cutoff, got %d", len(stale))
	}
}

func TestTodayQueueView(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dueID := createTestOpportunity(t, store, domain.Opportunity{
		Company:        "Acme Corp",
		RoleTitle:      "Senior Data Manager",
		Stage:          domain.StageApplied,
		NextAction:     "Follow up on application status",
		NextActionDate: datePtr(t, "2020-01-02"),
	})
	createTestOpportunity(t, store, domain.Opportunity{
		Company:        "Globex",
		RoleTitle:      "BI Lead",
		Stage:          domain.StageProspect,
		NextAction:     "Research company and find a referral path",
		NextActionDate: datePtr(t, "2999-01-02"),
	})

	queue, err := store.TodayQueue(ctx)
	if err != nil {
		t.Fatalf("today queue: %v", err)
	}
	if len(queue) != 1 || queue[0].OpportunityID != dueID {
		t.Fatalf("expected only the past-due opportunity, got %+v", queue)
	}
}

func TestPipelineSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		createTestOpportunity(t, store, domain.Opportunity{
			Company:   "Acme Corp",
			RoleTitle: "Senior Data Manager",
			Stage:     domain.StageProspect,
		})
	}
	createTestOpportunity(t, store, domain.Opportunity{
		Company:   "Globex",
		RoleTitle: "BI Lead",
		Stage:     domain.StageApplied,
	})

	summary, err := store.PipelineSummary(ctx)
	if err != nil {
		t.Fatalf("pipeline summary: %v", err)
	}
	counts := map[domain.Stage]int{}
	for _, row := range summary {
		counts[row.Stage] = row.Count
	}
	if counts[domain.StageProspect] != 2 || counts[domain.StageApplied] != 1 {
		t.Fatalf("unexpected summary: %v", counts)
	}
}

func TestContactCadenceQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	newContact := func(name string) int64 {
		id, err := store.CreateContact(ctx, domain.Contact{
			FullName:    name,
			ContactType: domain.ContactRecruiter,
		}, domain.ActivityEntry{Type: domain.ActivityNoteAdded})
		if err != nil {
			t.Fatalf("create contact %s: %v", name, err)
		}
		return id
	}

	markDay0 := func(id int64, day string) domain.Contact {
		c, err := store.GetContact(ctx, id)
		if err != nil {
			t.Fatalf("get contact %d: %v", id, err)
		}
		c.OutreachDay0 = datePtr(t, day)
		if err := store.ApplyCadenceMark(ctx, c, domain.ActivityEntry{
			ContactID: &id,
			Type:      domain.ActivityOutreachSent,
		}); err != nil {
			t.Fatalf("mark day0: %v", err)
		}
		return c
	}

	sentID := newContact("Dana Recruiter")
	markDay0(sentID, "2026-03-01")

	respondedID := newContact("Riley Peer")
	responded := markDay0(respondedID, "2026-03-01")
	responded.ResponseStatus = domain.ResponseResponded
	if err := store.UpdateResponseStatus(ctx, responded, nil); err != nil {
		t.Fatalf("update response status: %v", err)
	}

	newContact("Quinn Untouched")

	candidates, err := store.ListCadenceCandidates(ctx)
	if err != nil {
		t.Fatalf("list cadence candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != sentID {
		t.Fatalf("expected only the pending contact as candidate, got %+v", candidates)
	}

	pending, err := store.ListPendingOutreach(ctx)
	if err != nil {
		t.Fatalf("list pending outreach: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != sentID {
		t.Fatalf("expected only the pending contact, got %+v", pending)
	}
}

func TestCadenceCheckRejectsDay3WithoutDay0(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateContact(ctx, domain.Contact{FullName: "Sam Alum"},
		domain.ActivityEntry{Type: domain.ActivityNoteAdded})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}

	c, err := store.GetContact(ctx, id)
	if err != nil {
		t.Fatalf("get contact: %v", err)
	}
	c.OutreachDay3 = datePtr(t, "2026-03-05")

	err = store.ApplyCadenceMark(ctx, c, domain.ActivityEntry{
		ContactID: &id,
		Type:      domain.ActivityFollowUpSent,
	})
	if err == nil {
		t.Fatal("expected schema to reject day3 before day0")
	}
}

func TestSchedulerState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	last, err := store.LastRunDate(ctx)
	if err != nil {
		t.Fatalf("read watermark: %v", err)
	}
	if last != "" {
		t.Fatalf("expected empty watermark on fresh database, got %q", last)
	}

	if err := store.SetLastRunDate(ctx, "2026-03-02"); err != nil {
		t.Fatalf("write watermark: %v", err)
	}
	last, err = store.LastRunDate(ctx)
	if err != nil {
		t.Fatalf("read watermark: %v", err)
	}
	if last != "2026-03-02" {
		t.Fatalf("expected persisted watermark, got %q", last)
	}

	// Repeated migrations must not reset the watermark.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
	last, err = store.LastRunDate(ctx)
	if err != nil {
		t.Fatalf("read watermark: %v", err)
	}
	if last != "2026-03-02" {
		t.Fatalf("expected watermark to survive migration, got %q", last)
	}
}
