package ai

// FitResult is the structured outcome of scoring a resume against a
// job description.
type FitResult struct {
	Score     int      `json:"fit_score"`
	Rationale string   `json:"score_rationale"`
	Strengths []string `json:"top_strengths"`
	Gaps      []string `json:"gaps_or_risks"`
	Keywords  []string `json:"ats_keywords"`
}

// OutreachContext describes who is being contacted and why.
type OutreachContext struct {
	ContactName  string
	ContactTitle string
	Company      string
	ContactType  string
	Hook         string
}

// OutreachDraft is the generated outreach copy.
type OutreachDraft struct {
	LinkedInNote string `json:"linkedin_note"`
	SubjectLine  string `json:"subject_line"`
	Email        string `json:"inmail_or_email"`
}
