//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/mwhitford/jobops/internal/config"
	"github.com/mwhitford/jobops/internal/domain/digest"
	"github.com/mwhitford/jobops/internal/domain/ingest"
	"github.com/mwhitford/jobops/internal/domain/outreach"
	"github.com/mwhitford/jobops/internal/domain/pipeline"
	"github.com/mwhitford/jobops/internal/scheduler"
	"github.com/mwhitford/jobops/internal/storage/sqlite"
	"github.com/mwhitford/jobops/pkg/feed"
	"github.com/mwhitford/jobops/pkg/logging"
)

// InitializeResources creates Resources with all components wired up
func InitializeResources(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Resources, error) {
	wire.Build(
		// Storage
		provideStore,
		wire.Bind(new(pipeline.Repository), new(*sqlite.Store)),
		wire.Bind(new(outreach.Repository), new(*sqlite.Store)),
		wire.Bind(new(ingest.Repository), new(*sqlite.Store)),
		wire.Bind(new(digest.Repository), new(*sqlite.Store)),
		wire.Bind(new(scheduler.StateStore), new(*sqlite.Store)),

		// Collaborators
		provideFeedClient,
		wire.Bind(new(ingest.Fetcher), new(*feed.Client)),
		provideSummarizer,
		provideSender,

		// Services
		providePipelineService,
		provideOutreachService,
		wire.Bind(new(digest.FollowUpSource), new(*outreach.Service)),
		provideIngestService,
		provideDigestService,

		// Scheduler
		provideJobs,
		provideScheduler,

		newWiredResources,
	)

	return &Resources{}, nil
}

// provideStore opens the database and runs migrations
func provideStore(ctx context.Context, cfg config.Config) (*sqlite.Store, error) {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// provideFeedClient creates the RSS/Atom fetch client
func provideFeedClient() *feed.Client {
	return feed.NewClient(feed.Config{})
}

// provideSummarizer picks the AI collaborator from config
func provideSummarizer(cfg config.Config, logger *logging.Logger) digest.Summarizer {
	return buildSummarizer(cfg, logger)
}

// provideSender picks the optional SMTP sender from config
func provideSender(cfg config.Config, logger *logging.Logger) digest.Sender {
	return buildMailer(cfg, logger)
}

func providePipelineService(repo pipeline.Repository) (*pipeline.Service, error) {
	return pipeline.NewService(repo)
}

func provideOutreachService(repo outreach.Repository) (*outreach.Service, error) {
	return outreach.NewService(repo)
}

func provideIngestService(cfg config.Config, repo ingest.Repository, fetcher ingest.Fetcher, logger *logging.Logger) (*ingest.Service, error) {
	return ingest.NewService(repo, fetcher, logger.Named("ingest"),
		ingest.WithKeywordFilter(cfg.FeedKeywords))
}

func provideDigestService(cfg config.Config, repo digest.Repository, followUps digest.FollowUpSource, summarizer digest.Summarizer, sender digest.Sender, logger *logging.Logger) (*digest.Service, error) {
	opts := []digest.Option{}
	if sender != nil && cfg.SMTP.DigestTo != "" {
		opts = append(opts, digest.WithEmail(sender, cfg.SMTP.DigestTo))
	}
	return digest.NewService(repo, followUps, summarizer, logger.Named("digest"), opts...)
}

// provideJobs builds the ordered daily sequence
func provideJobs(cfg config.Config, pipelineSvc *pipeline.Service, outreachSvc *outreach.Service, digestSvc *digest.Service, ingestSvc *ingest.Service, logger *logging.Logger) []scheduler.Job {
	return []scheduler.Job{
		staleCheckJob(pipelineSvc, outreachSvc, cfg.StaleAfterDays, logger),
		digestJob(digestSvc, logger),
		feedPollJob(ingestSvc, cfg.FeedURLs, logger),
	}
}

func provideScheduler(cfg config.Config, state scheduler.StateStore, jobs []scheduler.Job, logger *logging.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New(state, cfg.RunAt, jobs, logger.Named("scheduler"))
}

// newWiredResources creates the Resources struct
func newWiredResources(
	store *sqlite.Store,
	pipelineSvc *pipeline.Service,
	outreachSvc *outreach.Service,
	ingestSvc *ingest.Service,
	digestSvc *digest.Service,
	sched *scheduler.Scheduler,
) *Resources {
	return &Resources{
		Store:     store,
		Pipeline:  pipelineSvc,
		Outreach:  outreachSvc,
		Ingest:    ingestSvc,
		Digest:    digestSvc,
		Scheduler: sched,
	}
}
