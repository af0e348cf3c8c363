package triage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/repository"
)

// SLAWindow is the pair of deadlines a policy yields for a ticket.
type SLAWindow struct {
	FirstResponseDue time.Time
	ResolutionDue    time.Time
}

// SLAResolver turns a department/priority pair into concrete deadlines.
// Department-specific policies shadow the org-wide defaults; a pair with
// no policy at either level resolves to no SLA at all, which is a valid
// outcome and not an error.
type SLAResolver struct {
	policies repository.SLAPolicyRepository
	now      func() time.Time
}

// NewSLAResolver constructs the resolver on the real clock.
func NewSLAResolver(policies repository.SLAPolicyRepository) *SLAResolver {
	return &SLAResolver{policies: policies, now: time.Now}
}

// Resolve returns the deadlines for the pair, or nil when no policy
// matches. A nil departmentID skips straight to the org defaults.
func (r *SLAResolver) Resolve(ctx context.Context, departmentID *string, priority domain.TicketPriority) (*SLAWindow, error) {
	policy, err := r.lookup(ctx, departmentID, priority)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, nil
	}
	firstResponse, resolution := policy.Deadlines(r.now())
	return &SLAWindow{FirstResponseDue: firstResponse, ResolutionDue: resolution}, nil
}

func (r *SLAResolver) lookup(ctx context.Context, departmentID *string, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	if departmentID != nil {
		policy, err := r.policies.Find(ctx, *departmentID, priority)
		if err == nil {
			return policy, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	policy, err := r.policies.FindDefault(ctx, priority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return policy, nil
}
