package domain

import "time"

// Opportunity is a tracked job prospect moving through the pipeline.
// Opportunities are never deleted; closing is a terminal stage, not
// removal.
type Opportunity struct {
	ID             int64
	Company        string
	RoleTitle      string
	JobFamily      *JobFamily
	Tier           *int // 1 = top priority, 3 = low
	Stage          Stage
	Source         Source
	SalaryRange    string
	JDURL          string // posting URL; the external dedup key
	JDRaw          string
	JDKeywords     []string
	FitScore       *int // 1-10
	AIFitSummary   string
	NextAction     string
	NextActionDate *time.Time
	DateAdded      *time.Time
	DateApplied    *time.Time
	DateClosed     *time.Time
	CloseReason    *CloseReason // non-nil iff Stage == StageClosed
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Contact is a person attached to an opportunity, chased on the
// Day 0 / Day 3 / Day 7 outreach cadence. Each cadence date stays nil
// until that step is actually sent; day3 is only ever set after day0,
// and day7 only after day3.
type Contact struct {
	ID             int64
	OpportunityID  *int64
	FullName       string
	Title          string
	Company        string
	LinkedInURL    string
	Email          string
	ContactType    ContactType
	OutreachDay0   *time.Time
	OutreachDay3   *time.Time
	OutreachDay7   *time.Time
	ResponseStatus ResponseStatus
	CallCompleted  bool
	ReferralAsked  bool
	ReferralGiven  bool
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ActivityEntry is one immutable row in the append-only activity
// ledger. Every state-changing operation writes exactly one entry; no
// component ever updates or deletes one afterward.
type ActivityEntry struct {
	ID            int64
	OpportunityID *int64
	ContactID     *int64
	Type          ActivityType
	Description   string
	Metadata      map[string]any
	CreatedAt     time.Time
}

// QueueItem is one row of the "today's queue" view: an open
// opportunity whose next action is due today or overdue.
type QueueItem struct {
	OpportunityID  int64
	Company        string
	RoleTitle      string
	Stage          Stage
	Tier           *int
	NextAction     string
	NextActionDate *time.Time
}

// StageCount is one row of the pipeline summary view.
type StageCount struct {
	Stage Stage
	Count int
}

// CivilDate truncates t to its calendar date in UTC. Cadence math and
// the scheduler watermark operate on calendar days, not instants.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(CivilDate(b).Sub(CivilDate(a)).Hours() / 24)
}
