package domain

// Stage is one of the 8 funnel positions an opportunity moves through.
// Any stage is reachable from any other; corrections (moving backward)
// are a normal part of a human-driven pipeline.
type Stage string

const (
	StageProspect        Stage = "Prospect"
	StageWarmLead        Stage = "Warm Lead"
	StageApplied         Stage = "Applied"
	StageRecruiterScreen Stage = "Recruiter Screen"
	StageHMInterview     Stage = "HM Interview"
	StageLoop            Stage = "Loop"
	StageOfferPending    Stage = "Offer Pending"
	StageClosed          Stage = "Closed"
)

// StageOrder is the conventional display order of the pipeline.
var StageOrder = []Stage{
	StageProspect, StageWarmLead, StageApplied,
	StageRecruiterScreen, StageHMInterview,
	StageLoop, StageOfferPending, StageClosed,
}

// ParseStage maps the persisted string form to a Stage.
func ParseStage(s string) (Stage, error) {
	for _, st := range StageOrder {
		if string(st) == s {
			return st, nil
		}
	}
	return "", NewValidationError("unknown stage %q", s)
}

// CloseReason is required when an opportunity enters the Closed stage.
type CloseReason string

const (
	CloseRejected      CloseReason = "Rejected"
	CloseWithdrawn     CloseReason = "Withdrawn"
	CloseGhosted       CloseReason = "Ghosted"
	CloseOfferAccepted CloseReason = "Offer Accepted"
	CloseOfferDeclined CloseReason = "Offer Declined"
)

var closeReasons = []CloseReason{
	CloseRejected, CloseWithdrawn, CloseGhosted, CloseOfferAccepted, CloseOfferDeclined,
}

// ParseCloseReason maps the persisted string form to a CloseReason.
func ParseCloseReason(s string) (CloseReason, error) {
	for _, r := range closeReasons {
		if string(r) == s {
			return r, nil
		}
	}
	return "", NewValidationError("unknown close reason %q", s)
}

// Source records where an opportunity came from.
type Source string

const (
	SourceLinkedIn Source = "LinkedIn"
	SourceReferral Source = "Referral"
	SourceJobBoard Source = "Job Board"
	SourceOutbound Source = "Outbound"
	SourceOther    Source = "Other"
)

// JobFamily is a one-letter code for the role family being targeted.
type JobFamily string

const (
	FamilyAnalyticsManager JobFamily = "A"
	FamilyDataManager      JobFamily = "B"
	FamilyBIManager        JobFamily = "C"
	FamilyDecisionScience  JobFamily = "D"
	FamilyDirectorStretch  JobFamily = "E"
)

var jobFamilyLabels = map[JobFamily]string{
	FamilyAnalyticsManager: "Analytics Manager",
	FamilyDataManager:      "Data Manager",
	FamilyBIManager:        "BI Manager",
	FamilyDecisionScience:  "Decision Science",
	FamilyDirectorStretch:  "Director Stretch",
}

// Label returns the human-readable name for a job family code.
func (f JobFamily) Label() string {
	if label, ok := jobFamilyLabels[f]; ok {
		return label
	}
	return string(f)
}

// ContactType classifies a networking contact.
type ContactType string

const (
	ContactHiringManager  ContactType = "Hiring Manager"
	ContactPeer           ContactType = "Peer"
	ContactRecruiter      ContactType = "Recruiter"
	ContactAlumni         ContactType = "Alumni"
	ContactReferralSource ContactType = "Referral Source"
	ContactOther          ContactType = "Other"
)

// ResponseStatus tracks whether a contact has answered outreach.
type ResponseStatus string

const (
	ResponsePending          ResponseStatus = "Pending"
	ResponseResponded        ResponseStatus = "Responded"
	ResponseNone             ResponseStatus = "No Response"
	ResponseMeetingScheduled ResponseStatus = "Meeting Scheduled"
)

// Chaseable reports whether a contact in this status should still be
// pursued by the follow-up cadence.
func (s ResponseStatus) Chaseable() bool {
	return s == ResponsePending || s == ResponseNone
}

// CadenceStep identifies one of the three scheduled outreach touchpoints.
type CadenceStep string

const (
	StepDay0 CadenceStep = "day0"
	StepDay3 CadenceStep = "day3"
	StepDay7 CadenceStep = "day7"
)

func (s CadenceStep) String() string { return string(s) }

// ActivityType is the closed set of ledger entry kinds.
type ActivityType string

const (
	ActivityNoteAdded        ActivityType = "Note Added"
	ActivityStageChange      ActivityType = "Stage Change"
	ActivityOutreachSent     ActivityType = "Outreach Sent"
	ActivityFollowUpSent     ActivityType = "Follow-Up Sent"
	ActivityResponseReceived ActivityType = "Response Received"
	ActivityAIAction         ActivityType = "AI Action"
)
