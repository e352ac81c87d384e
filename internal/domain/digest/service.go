// Package digest assembles the daily digest: it gathers today's
// queue, due follow-ups, and the pipeline summary, and delegates the
// prose to the AI collaborator. The AI call is opaque and bounded; a
// failure here is a transient job failure, never a crash.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwhitford/jobops/internal/domain"
	"github.com/mwhitford/jobops/internal/domain/outreach"
	"github.com/mwhitford/jobops/pkg/logging"
)

const defaultAITimeout = 60 * time.Second

// Repository supplies the read-only reporting views and the ledger.
type Repository interface {
	TodayQueue(ctx context.Context) ([]domain.QueueItem, error)
	PipelineSummary(ctx context.Context) ([]domain.StageCount, error)
	AppendActivity(ctx context.Context, entry domain.ActivityEntry) error
}

// FollowUpSource computes due follow-ups; satisfied by the outreach
// service.
type FollowUpSource interface {
	DueFollowUps(ctx context.Context) ([]outreach.FollowUp, error)
}

// Summarizer is the AI collaborator: opaque text in, opaque text out.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Sender delivers the digest by email; optional.
type Sender interface {
	Send(to, subject, body string) error
}

// Service builds and records the daily digest
type Service struct {
	repo       Repository
	followUps  FollowUpSource
	summarizer Summarizer
	sender     Sender
	sendTo     string
	aiTimeout  time.Duration
	clock      func() time.Time
	logger     *logging.Logger
}

// Option configures Service
type Option func(*Service)

// WithClock sets a custom clock
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithAITimeout bounds the summarize call.
func WithAITimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.aiTimeout = d
		}
	}
}

// WithEmail delivers each digest to the given address.
func WithEmail(sender Sender, to string) Option {
	return func(s *Service) {
		s.sender = sender
		s.sendTo = to
	}
}

// NewService builds the digest service.
func NewService(repo Repository, followUps FollowUpSource, summarizer Summarizer, logger *logging.Logger, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("digest.Service: repository is required")
	}
	if followUps == nil {
		return nil, fmt.Errorf("digest.Service: follow-up source is required")
	}
	if summarizer == nil {
		return nil, fmt.Errorf("digest.Service: summarizer is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Service{
		repo:       repo,
		followUps:  followUps,
		summarizer: summarizer,
		aiTimeout:  defaultAITimeout,
		clock:      time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run assembles the digest, logs it to the ledger, and optionally
// emails it. Returns the digest text.
func (s *Service) Run(ctx context.Context) (string, error) {
	queue, err := s.repo.TodayQueue(ctx)
	if err != nil {
		return "", err
	}
	due, err := s.followUps.DueFollowUps(ctx)
	if err != nil {
		return "", err
	}
	summary, err := s.repo.PipelineSummary(ctx)
	if err != nil {
		return "", err
	}

	if len(queue) == 0 && len(due) == 0 && len(summary) == 0 {
		return "No active opportunities in the pipeline.", nil
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	text, err := s.summarizer.Summarize(aiCtx, buildPrompt(queue, due, summary))
	if err != nil {
		return "", &domain.TransientError{Op: "generate digest", Err: err}
	}

	entry := domain.ActivityEntry{
		Type:        domain.ActivityAIAction,
		Description: "Daily digest generated",
		Metadata: map[string]any{
			"queue_size":     len(queue),
			"follow_ups_due": len(due),
			"digest_date":    domain.CivilDate(s.clock()).Format("2006-01-02"),
		},
	}
	if err := s.repo.AppendActivity(ctx, entry); err != nil {
		return "", err
	}

	if s.sender != nil && s.sendTo != "" {
		subject := fmt.Sprintf("Job Search Daily Digest %s", domain.CivilDate(s.clock()).Format("2006-01-02"))
		if err := s.sender.Send(s.sendTo, subject, text); err != nil {
			// The digest itself succeeded; delivery is best-effort.
			s.logger.Warn("digest email delivery failed", "to", s.sendTo, "err", err)
		}
	}

	return text, nil
}

func buildPrompt(queue []domain.QueueItem, due []outreach.FollowUp, summary []domain.StageCount) string {
	var b strings.Builder

	b.WriteString("TODAY'S QUEUE:\n")
	if len(queue) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, item := range queue {
		fmt.Fprintf(&b, "  %s - %s [%s] next: %s\n", item.Company, item.RoleTitle, item.Stage, item.NextAction)
	}

	b.WriteString("\nFOLLOW-UPS DUE:\n")
	if len(due) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, f := range due {
		fmt.Fprintf(&b, "  %s: %s\n", f.Contact.FullName, f.Reason)
	}

	b.WriteString("\nPIPELINE SUMMARY:\n")
	for _, sc := range summary {
		fmt.Fprintf(&b, "  %s: %d\n", sc.Stage, sc.Count)
	}

	return b.String()
}
