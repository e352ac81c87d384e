package pipeline

import (
	"context"
	"time"

	"github.com/mwhitford/jobops/internal/domain"
)

// Repository persists opportunities and their stage transitions
type Repository interface {
	// GetOpportunity loads one opportunity; NotFoundError when absent
	GetOpportunity(ctx context.Context, id int64) (domain.Opportunity, error)

	// ApplyTransition writes the new stage fields and the ledger entry
	// as one atomic unit
	ApplyTransition(ctx context.Context, opp domain.Opportunity, entry domain.ActivityEntry) error

	// ListStaleOpportunities returns open opportunities with no update
	// since cutoff
	ListStaleOpportunities(ctx context.Context, cutoff time.Time) ([]domain.Opportunity, error)
}
