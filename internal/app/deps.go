package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhitford/jobops/internal/config"
	"github.com/mwhitford/jobops/internal/domain/digest"
	"github.com/mwhitford/jobops/internal/domain/ingest"
	"github.com/mwhitford/jobops/internal/domain/outreach"
	"github.com/mwhitford/jobops/internal/domain/pipeline"
	"github.com/mwhitford/jobops/internal/scheduler"
	"github.com/mwhitford/jobops/internal/storage/sqlite"
	"github.com/mwhitford/jobops/pkg/ai"
	"github.com/mwhitford/jobops/pkg/feed"
	"github.com/mwhitford/jobops/pkg/logging"
	"github.com/mwhitford/jobops/pkg/mailer"
)

// Resources are the assembled long-lived components of the core.
type Resources struct {
	Store     *sqlite.Store
	Pipeline  *pipeline.Service
	Outreach  *outreach.Service
	Ingest    *ingest.Service
	Digest    *digest.Service
	Scheduler *scheduler.Scheduler
}

// newResources is the manual initializer; InitializeResources in
// wire.go declares the same graph for wire.
func newResources(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Resources, error) {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: migrate: %w", err)
	}

	pipelineSvc, err := pipeline.NewService(store)
	if err != nil {
		return nil, err
	}
	outreachSvc, err := outreach.NewService(store)
	if err != nil {
		return nil, err
	}

	feedClient := feed.NewClient(feed.Config{})
	ingestSvc, err := ingest.NewService(store, feedClient, logger.Named("ingest"),
		ingest.WithKeywordFilter(cfg.FeedKeywords))
	if err != nil {
		return nil, err
	}

	digestOpts := []digest.Option{}
	if sender := buildMailer(cfg, logger); sender != nil {
		digestOpts = append(digestOpts, digest.WithEmail(sender, cfg.SMTP.DigestTo))
	}
	digestSvc, err := digest.NewService(store, outreachSvc,
		buildSummarizer(cfg, logger), logger.Named("digest"), digestOpts...)
	if err != nil {
		return nil, err
	}

	jobs := []scheduler.Job{
		staleCheckJob(pipelineSvc, outreachSvc, cfg.StaleAfterDays, logger),
		digestJob(digestSvc, logger),
		feedPollJob(ingestSvc, cfg.FeedURLs, logger),
	}
	sched, err := scheduler.New(store, cfg.RunAt, jobs, logger.Named("scheduler"))
	if err != nil {
		return nil, err
	}

	return &Resources{
		Store:     store,
		Pipeline:  pipelineSvc,
		Outreach:  outreachSvc,
		Ingest:    ingestSvc,
		Digest:    digestSvc,
		Scheduler: sched,
	}, nil
}

// buildSummarizer picks the AI collaborator. Without an API key the
// digest degrades to the raw briefing text instead of failing daily.
func buildSummarizer(cfg config.Config, logger *logging.Logger) digest.Summarizer {
	if cfg.AI.APIKey == "" {
		logger.Warn("no AI key configured, digests will use the raw briefing")
		return plainSummarizer{}
	}

	client, err := ai.NewClient(ai.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
	})
	if err != nil {
		logger.Warn("failed to initialize AI client", "err", err)
		return plainSummarizer{}
	}

	logger.Info("AI client initialized", "model", cfg.AI.Model)
	return client
}

// buildMailer returns nil when SMTP is not configured; digest email is
// optional.
func buildMailer(cfg config.Config, logger *logging.Logger) digest.Sender {
	if cfg.SMTP.Host == "" || cfg.SMTP.From == "" || cfg.SMTP.DigestTo == "" {
		return nil
	}

	m, err := mailer.New(mailer.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		From:       cfg.SMTP.From,
		SenderName: cfg.SMTP.SenderName,
	})
	if err != nil {
		logger.Warn("failed to initialize mailer", "err", err)
		return nil
	}

	logger.Info("digest email enabled", "to", cfg.SMTP.DigestTo)
	return m
}

type plainSummarizer struct{}

func (plainSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	return prompt, nil
}

// staleCheckJob reports open opportunities and unanswered contacts
// that have gone quiet. Read-only.
func staleCheckJob(pipelineSvc *pipeline.Service, outreachSvc *outreach.Service, staleAfterDays int, logger *logging.Logger) scheduler.Job {
	log := logger.Named("stale-check")
	return scheduler.Job{
		Name: "stale-check",
		Run: func(ctx context.Context) error {
			stale, err := pipelineSvc.FlagStale(ctx, staleAfterDays)
			if err != nil {
				return err
			}
			for _, opp := range stale {
				log.Warn("stale opportunity",
					"id", opp.ID, "company", opp.Company, "stage", opp.Stage,
					"last_update", opp.UpdatedAt.Format(time.DateOnly))
			}

			waiting, err := outreachSvc.StaleWaitingOn(ctx)
			if err != nil {
				return err
			}
			for _, c := range waiting {
				log.Warn("still waiting on contact",
					"id", c.ID, "name", c.FullName,
					"outreach_day0", c.OutreachDay0.Format(time.DateOnly))
			}

			log.Info("stale check finished", "stale_opportunities", len(stale), "waiting_on", len(waiting))
			return nil
		},
	}
}

func digestJob(digestSvc *digest.Service, logger *logging.Logger) scheduler.Job {
	log := logger.Named("digest")
	return scheduler.Job{
		Name: "digest",
		Run: func(ctx context.Context) error {
			text, err := digestSvc.Run(ctx)
			if err != nil {
				return err
			}
			log.Info("daily digest generated", "chars", len(text))
			return nil
		},
	}
}

func feedPollJob(ingestSvc *ingest.Service, sources []string, logger *logging.Logger) scheduler.Job {
	log := logger.Named("feed-poll")
	return scheduler.Job{
		Name: "feed-poll",
		Run: func(ctx context.Context) error {
			if len(sources) == 0 {
				log.Info("no feed sources configured")
				return nil
			}

			result, err := ingestSvc.Poll(ctx, sources)
			if err != nil {
				return err
			}
			for _, srcErr := range result.Errors {
				log.Warn("feed source failed", "source", srcErr.Source, "err", srcErr.Err)
			}
			log.Info("feed poll finished",
				"created", result.Created, "skipped", result.Skipped, "failed_sources", len(result.Errors))
			return nil
		},
	}
}
