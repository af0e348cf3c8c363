package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/events"
	"github.com/helpdesk-kit/triage-service/internal/repository"
)

type captureNotifier struct {
	notified []string
	failFor  map[string]error
}

func (n *captureNotifier) NotifyBreach(_ context.Context, ticket *domain.Ticket) error {
	if err, ok := n.failFor[ticket.ID]; ok {
		return err
	}
	n.notified = append(n.notified, ticket.ID)
	return nil
}

// staleCandidateList serves a frozen candidate snapshot, the way a
// sweep on another node sees rows this node has since flagged.
type staleCandidateList struct {
	repository.TicketRepository
	stale []domain.Ticket
}

func (s *staleCandidateList) ListBreachCandidates(context.Context, time.Time, int) ([]domain.Ticket, error) {
	return s.stale, nil
}

func newTestMonitor(env *testEnv, notifier Notifier, tickets repository.TicketRepository, batchSize int, at time.Time) *SLAMonitor {
	if tickets == nil {
		tickets = env.tickets
	}
	monitor := NewSLAMonitor(MonitorDependencies{
		UnitOfWork: env.uow,
		TicketRepo: tickets,
		Notifier:   notifier,
		Dispatcher: env.bus,
		BatchSize:  batchSize,
		Logger:     zap.NewNop(),
	})
	monitor.now = func() time.Time { return at }
	return monitor
}

func seedOverdueTicket(t *testing.T, env *testEnv, priority domain.TicketPriority, due time.Time) *domain.Ticket {
	t.Helper()
	conversation := env.seedConversation()
	ticket := &domain.Ticket{
		ConversationID: conversation.ID,
		Title:          "Escalated: strong negative sentiment",
		Status:         domain.TicketStatusOpen,
		Priority:       priority,
		Reason:         "strong negative sentiment",
		SLADueAt:       &due,
	}
	require.NoError(t, env.tickets.Create(env.ctx, ticket))
	return ticket
}

func TestSweepFlagsBreaches(t *testing.T) {
	env := newTestEnv(t)
	sweepAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	due := sweepAt.Add(-5 * time.Minute)
	ticket := seedOverdueTicket(t, env, domain.TicketPriorityMedium, due)

	var breachEvent events.Event
	env.bus.Subscribe(events.EventSLABreached, func(_ context.Context, event events.Event) error {
		breachEvent = event
		return nil
	})

	notifier := &captureNotifier{}
	monitor := newTestMonitor(env, notifier, nil, 50, sweepAt)

	report, err := monitor.Sweep(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Flagged)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 0, report.NotifyErrs)
	assert.Equal(t, 0, report.Failed)

	current, err := env.tickets.GetByID(env.ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, current.SLABreached)
	assert.Equal(t, domain.TicketPriorityHigh, current.Priority)
	assert.Equal(t, 1, current.EscalationLevel)
	assert.Equal(t, domain.TicketStatusOpen, current.Status, "breach handling never touches status")

	breached := env.trailOf(ticket.ID, domain.EventTypeSLABreached)
	require.Len(t, breached, 1)
	require.NotNil(t, breached[0].NewValue)
	assert.Equal(t, due.UTC().Format(time.RFC3339), *breached[0].NewValue)

	escalated := env.trailOf(ticket.ID, domain.EventTypeEscalated)
	require.Len(t, escalated, 1)
	require.NotNil(t, escalated[0].OldValue)
	assert.Equal(t, "MEDIUM", *escalated[0].OldValue)
	require.NotNil(t, escalated[0].NewValue)
	assert.Equal(t, "HIGH", *escalated[0].NewValue)
	assert.Equal(t, domain.SystemActor, escalated[0].Actor)

	assert.Equal(t, []string{ticket.ID}, notifier.notified)

	require.Equal(t, ticket.ID, breachEvent.TicketID)
	payload, ok := breachEvent.Payload.(events.SLABreachedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TicketPriorityHigh, payload.Priority)
	assert.Equal(t, 1, payload.EscalationLevel)
	assert.True(t, payload.DueAt.Equal(due))

	t.Run("second sweep does not re-escalate", func(t *testing.T) {
		again, err := monitor.Sweep(env.ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Candidates)
		assert.Equal(t, 0, again.Flagged)

		current, err := env.tickets.GetByID(env.ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityHigh, current.Priority)
		assert.Equal(t, 1, current.EscalationLevel)
		assert.Len(t, env.trailOf(ticket.ID, domain.EventTypeEscalated), 1)
		assert.Len(t, notifier.notified, 1)
	})
}

func TestSweepCapsCriticalPriority(t *testing.T) {
	env := newTestEnv(t)
	sweepAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	ticket := seedOverdueTicket(t, env, domain.TicketPriorityCritical, sweepAt.Add(-time.Hour))

	monitor := newTestMonitor(env, &captureNotifier{}, nil, 50, sweepAt)

	report, err := monitor.Sweep(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Flagged)

	current, err := env.tickets.GetByID(env.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, current.Priority)
	assert.Equal(t, 1, current.EscalationLevel)

	escalated := env.trailOf(ticket.ID, domain.EventTypeEscalated)
	require.Len(t, escalated, 1)
	require.NotNil(t, escalated[0].OldValue)
	assert.Equal(t, "CRITICAL", *escalated[0].OldValue)
	require.NotNil(t, escalated[0].NewValue)
	assert.Equal(t, "CRITICAL", *escalated[0].NewValue)
}

func TestSweepSkipsConcurrentlyFlaggedTickets(t *testing.T) {
	env := newTestEnv(t)
	sweepAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	ticket := seedOverdueTicket(t, env, domain.TicketPriorityMedium, sweepAt.Add(-5*time.Minute))

	// Another sweep flags the ticket after this one captured its
	// candidate list.
	snapshot := *ticket
	flagged, err := env.tickets.MarkBreached(env.ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, flagged)

	notifier := &captureNotifier{}
	stale := &staleCandidateList{TicketRepository: env.tickets, stale: []domain.Ticket{snapshot}}
	monitor := newTestMonitor(env, notifier, stale, 50, sweepAt)

	report, err := monitor.Sweep(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Flagged)
	assert.Equal(t, 0, report.Notified)

	current, err := env.tickets.GetByID(env.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, current.Priority)
	assert.Equal(t, 0, current.EscalationLevel)
	assert.Empty(t, env.trailOf(ticket.ID, domain.EventTypeEscalated))
	assert.Empty(t, notifier.notified)
}

func TestSweepCountsNotifyFailures(t *testing.T) {
	env := newTestEnv(t)
	sweepAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	first := seedOverdueTicket(t, env, domain.TicketPriorityLow, sweepAt.Add(-10*time.Minute))
	second := seedOverdueTicket(t, env, domain.TicketPriorityLow, sweepAt.Add(-5*time.Minute))

	notifier := &captureNotifier{failFor: map[string]error{
		first.ID: errors.New("webhook unreachable"),
	}}
	monitor := newTestMonitor(env, notifier, nil, 50, sweepAt)

	report, err := monitor.Sweep(env.ctx)
	require.NoError(t, err, "notification failures never fail the sweep")
	assert.Equal(t, 2, report.Flagged)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 1, report.NotifyErrs)
	assert.Equal(t, []string{second.ID}, notifier.notified)

	for _, id := range []string{first.ID, second.ID} {
		current, err := env.tickets.GetByID(env.ctx, id)
		require.NoError(t, err)
		assert.True(t, current.SLABreached)
	}
}

func TestSweepHonorsBatchSize(t *testing.T) {
	env := newTestEnv(t)
	sweepAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	oldest := seedOverdueTicket(t, env, domain.TicketPriorityLow, sweepAt.Add(-20*time.Minute))
	middle := seedOverdueTicket(t, env, domain.TicketPriorityLow, sweepAt.Add(-15*time.Minute))
	newest := seedOverdueTicket(t, env, domain.TicketPriorityLow, sweepAt.Add(-10*time.Minute))

	monitor := newTestMonitor(env, &captureNotifier{}, nil, 2, sweepAt)

	report, err := monitor.Sweep(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Flagged)

	for _, id := range []string{oldest.ID, middle.ID} {
		current, err := env.tickets.GetByID(env.ctx, id)
		require.NoError(t, err)
		assert.True(t, current.SLABreached, "earliest deadlines go first")
	}
	remaining, err := env.tickets.GetByID(env.ctx, newest.ID)
	require.NoError(t, err)
	assert.False(t, remaining.SLABreached)
}
