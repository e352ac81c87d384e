package sqlite

import (
	"github.com/mwhitford/jobops/internal/domain/digest"
	"github.com/mwhitford/jobops/internal/domain/ingest"
	"github.com/mwhitford/jobops/internal/domain/outreach"
	"github.com/mwhitford/jobops/internal/domain/pipeline"
	"github.com/mwhitford/jobops/internal/scheduler"
)

// Compile-time checks that Store satisfies every consumer interface.
var (
	_ pipeline.Repository  = (*Store)(nil)
	_ outreach.Repository  = (*Store)(nil)
	_ ingest.Repository    = (*Store)(nil)
	_ digest.Repository    = (*Store)(nil)
	_ scheduler.StateStore = (*Store)(nil)
)
