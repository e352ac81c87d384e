package outreach

import (
	"context"

	"github.com/mwhitford/jobops/internal/domain"
)

// Repository persists contacts and their cadence state
type Repository interface {
	// GetContact loads one contact; NotFoundError when absent
	GetContact(ctx context.Context, id int64) (domain.Contact, error)

	// ListCadenceCandidates returns contacts with day0 sent, a later
	// step unsent, and a still-chaseable response status
	ListCadenceCandidates(ctx context.Context) ([]domain.Contact, error)

	// ListPendingOutreach returns contacts with day0 sent and response
	// status still Pending
	ListPendingOutreach(ctx context.Context) ([]domain.Contact, error)

	// ApplyCadenceMark writes updated cadence dates and the ledger
	// entry as one atomic unit
	ApplyCadenceMark(ctx context.Context, c domain.Contact, entry domain.ActivityEntry) error

	// UpdateResponseStatus writes a response-status change, with an
	// optional ledger entry, atomically
	UpdateResponseStatus(ctx context.Context, c domain.Contact, entry *domain.ActivityEntry) error
}
