package triage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/repository"
)

func TestSLAResolverResolve(t *testing.T) {
	ctx := context.Background()
	reference := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	itID := "dept-it"
	policies := repository.NewMemorySLAPolicyRepository()
	require.NoError(t, policies.Upsert(ctx, &domain.SLAPolicy{
		DepartmentID:         &itID,
		Priority:             domain.TicketPriorityHigh,
		FirstResponseMinutes: 30,
		ResolutionMinutes:    240,
		EscalationMinutes:    60,
	}))
	require.NoError(t, policies.Upsert(ctx, &domain.SLAPolicy{
		Priority:             domain.TicketPriorityHigh,
		FirstResponseMinutes: 60,
		ResolutionMinutes:    480,
		EscalationMinutes:    120,
	}))

	resolver := NewSLAResolver(policies)
	resolver.now = func() time.Time { return reference }

	t.Run("department policy shadows the org default", func(t *testing.T) {
		window, err := resolver.Resolve(ctx, &itID, domain.TicketPriorityHigh)

		require.NoError(t, err)
		require.NotNil(t, window)
		assert.Equal(t, reference.Add(30*time.Minute), window.FirstResponseDue)
		assert.Equal(t, reference.Add(240*time.Minute), window.ResolutionDue)
	})

	t.Run("unknown department falls back to the org default", func(t *testing.T) {
		otherID := "dept-facilities"
		window, err := resolver.Resolve(ctx, &otherID, domain.TicketPriorityHigh)

		require.NoError(t, err)
		require.NotNil(t, window)
		assert.Equal(t, reference.Add(60*time.Minute), window.FirstResponseDue)
		assert.Equal(t, reference.Add(480*time.Minute), window.ResolutionDue)
	})

	t.Run("nil department uses the org default directly", func(t *testing.T) {
		window, err := resolver.Resolve(ctx, nil, domain.TicketPriorityHigh)

		require.NoError(t, err)
		require.NotNil(t, window)
		assert.Equal(t, reference.Add(60*time.Minute), window.FirstResponseDue)
	})

	t.Run("no policy at either level means no deadlines", func(t *testing.T) {
		window, err := resolver.Resolve(ctx, &itID, domain.TicketPriorityLow)

		require.NoError(t, err)
		assert.Nil(t, window)
	})

	t.Run("identical inputs yield identical deadlines", func(t *testing.T) {
		first, err := resolver.Resolve(ctx, &itID, domain.TicketPriorityHigh)
		require.NoError(t, err)
		second, err := resolver.Resolve(ctx, &itID, domain.TicketPriorityHigh)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}
