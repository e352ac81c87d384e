package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mwhitford/jobops/internal/domain"
	"github.com/mwhitford/jobops/pkg/logging"
)

// Feed-created opportunities enter the pipeline as Prospects from this
// source.
const feedSource = domain.SourceJobBoard

// prospectNextAction mirrors the stage machine's Prospect policy so a
// freshly ingested posting lands with a due date already set.
const (
	prospectNextAction = "Research company and find a referral path"
	prospectDaysOut    = 2
)

// Result summarizes one poll pass across all sources.
type Result struct {
	Created int
	Skipped int
	Errors  []SourceError
}

// SourceError records one source's failure without aborting the pass.
type SourceError struct {
	Source string
	Err    error
}

// Service polls external job feeds and creates new Prospect
// opportunities, deduplicating on the exact posting URL so repeated
// runs never re-ingest the same posting.
type Service struct {
	repo     Repository
	fetcher  Fetcher
	keywords []string
	clock    func() time.Time
	logger   *logging.Logger
}

// Option configures Service
type Option func(*Service)

// WithClock sets a custom clock
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithKeywordFilter restricts ingestion to postings whose title
// contains at least one keyword (case-insensitive). An empty filter
// accepts everything.
func WithKeywordFilter(keywords []string) Option {
	return func(s *Service) {
		s.keywords = nil
		for _, kw := range keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				s.keywords = append(s.keywords, strings.ToLower(kw))
			}
		}
	}
}

// NewService builds the feed ingester.
func NewService(repo Repository, fetcher Fetcher, logger *logging.Logger, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ingest.Service: repository is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("ingest.Service: fetcher is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Service{
		repo:    repo,
		fetcher: fetcher,
		clock:   time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Poll fetches every source in order. Sources fail independently: a
// fetch or parse error is collected in the result and the remaining
// sources are still polled.
func (s *Service) Poll(ctx context.Context, sources []string) (Result, error) {
	var result Result

	for _, source := range sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}

		items, err := s.fetcher.Fetch(ctx, source)
		if err != nil {
			s.logger.Warn("feed fetch failed", "source", source, "err", err)
			result.Errors = append(result.Errors, SourceError{
				Source: source,
				Err:    &domain.TransientError{Op: "fetch feed", Err: err},
			})
			continue
		}

		for _, item := range items {
			if item.Link == "" {
				result.Skipped++
				continue
			}
			if !s.titleMatches(item.Title) {
				result.Skipped++
				continue
			}

			exists, err := s.repo.PostingURLExists(ctx, item.Link)
			if err != nil {
				result.Errors = append(result.Errors, SourceError{Source: source, Err: err})
				continue
			}
			if exists {
				result.Skipped++
				continue
			}

			id, err := s.createProspect(ctx, item.Title, item.Link, item.Description)
			if err != nil {
				result.Errors = append(result.Errors, SourceError{Source: source, Err: err})
				continue
			}

			s.logger.Info("feed posting ingested", "id", id, "title", item.Title, "url", item.Link)
			result.Created++
		}
	}

	return result, nil
}

func (s *Service) titleMatches(title string) bool {
	if len(s.keywords) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (s *Service) createProspect(ctx context.Context, title, link, description string) (int64, error) {
	today := domain.CivilDate(s.clock())
	due := today.AddDate(0, 0, prospectDaysOut)

	roleTitle, company := splitTitleCompany(title)
	if company == "" {
		company = "Unknown"
	}
	if roleTitle == "" {
		roleTitle = title
	}

	jdRaw := stripHTML(description)
	if jdRaw == "" {
		jdRaw = title
	}

	opp := domain.Opportunity{
		Company:        company,
		RoleTitle:      roleTitle,
		Stage:          domain.StageProspect,
		Source:         feedSource,
		JDURL:          link,
		JDRaw:          jdRaw,
		NextAction:     prospectNextAction,
		NextActionDate: &due,
		DateAdded:      &today,
	}

	entry := domain.ActivityEntry{
		Type:        domain.ActivityNoteAdded,
		Description: fmt.Sprintf("Auto-added from job feed: %s", title),
		Metadata:    map[string]any{"url": link},
	}

	return s.repo.CreateOpportunity(ctx, opp, entry)
}

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]+>`)
	titleSplitDashes = regexp.MustCompile(`^(.+?)\s*[|\x{2013}\x{2014}-]\s*(.+)$`)
)

// splitTitleCompany applies the common job-board title conventions:
// "Role at Company", "Role @ Company", "Role | Company", "Role - Company".
func splitTitleCompany(raw string) (roleTitle, company string) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)

	for _, sep := range []string{" at ", " @ "} {
		if idx := strings.Index(lower, sep); idx >= 0 {
			return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+len(sep):])
		}
	}

	if m := titleSplitDashes.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}

	return raw, ""
}

func stripHTML(text string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(text, " "))
}
