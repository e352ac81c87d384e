package ingest

import (
	"context"

	"github.com/mwhitford/jobops/internal/domain"
	"github.com/mwhitford/jobops/pkg/feed"
)

// Repository persists ingested postings
type Repository interface {
	// PostingURLExists reports whether this exact posting URL was
	// already ingested
	PostingURLExists(ctx context.Context, url string) (bool, error)

	// CreateOpportunity inserts the opportunity and its ledger entry
	// as one atomic unit
	CreateOpportunity(ctx context.Context, opp domain.Opportunity, entry domain.ActivityEntry) (int64, error)
}

// Fetcher retrieves postings from one feed URL
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]feed.Item, error)
}
