package triage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/events"
	"github.com/helpdesk-kit/triage-service/internal/observability"
	"github.com/helpdesk-kit/triage-service/internal/repository"
)

// Notifier delivers SLA breach notifications. Delivery failures are
// reported in the sweep report, never re-raised.
type Notifier interface {
	NotifyBreach(ctx context.Context, ticket *domain.Ticket) error
}

// SweepReport summarizes one monitor pass.
type SweepReport struct {
	Candidates int
	Flagged    int
	Skipped    int
	Notified   int
	NotifyErrs int
	Failed     int
	Duration   time.Duration
}

// SLAMonitor flags tickets whose first-response deadline has passed.
// The breach flag is sticky: candidates require sla_breached = false
// and the flag is set under a conditional update, so each ticket
// escalates at most once per breach no matter how many sweeps run.
type SLAMonitor struct {
	uow        repository.UnitOfWork
	tickets    repository.TicketRepository
	notifier   Notifier
	dispatcher events.Dispatcher
	batchSize  int
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// MonitorDependencies bundles collaborators for the SLA monitor.
type MonitorDependencies struct {
	UnitOfWork repository.UnitOfWork
	TicketRepo repository.TicketRepository
	Notifier   Notifier
	Dispatcher events.Dispatcher
	BatchSize  int
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewSLAMonitor constructs the monitor.
func NewSLAMonitor(deps MonitorDependencies) *SLAMonitor {
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAMonitor{
		uow:        deps.UnitOfWork,
		tickets:    deps.TicketRepo,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		batchSize:  batchSize,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Sweep processes one batch of breach candidates: per ticket, set the
// breach flag, escalate priority one level, bump escalation_level and
// write the ESCALATED audit event in a single transaction, then notify
// after commit. Per-ticket failures are counted and logged; the sweep
// carries on.
func (m *SLAMonitor) Sweep(ctx context.Context) (SweepReport, error) {
	started := m.now()
	var report SweepReport

	candidates, err := m.tickets.ListBreachCandidates(ctx, started, m.batchSize)
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)

	var breached []*domain.Ticket
	for i := range candidates {
		escalated, err := m.breachOne(ctx, &candidates[i])
		if err != nil {
			report.Failed++
			m.logger.Error("sla breach handling failed",
				zap.String("ticket_id", candidates[i].ID),
				zap.Error(err))
			continue
		}
		if escalated == nil {
			report.Skipped++
			continue
		}
		report.Flagged++
		breached = append(breached, escalated)
	}

	for _, ticket := range breached {
		m.publishBreach(ctx, ticket)
		if m.notifier == nil {
			continue
		}
		if err := m.notifier.NotifyBreach(ctx, ticket); err != nil {
			report.NotifyErrs++
			m.metrics.RecordDegraded("notification")
			m.logger.Warn("breach notification failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
			continue
		}
		report.Notified++
	}

	report.Duration = m.now().Sub(started)
	m.metrics.RecordSLABreaches(report.Flagged)
	m.metrics.RecordSweep(report.Duration)

	if report.Flagged > 0 || report.Failed > 0 {
		m.logger.Info("sla sweep completed",
			zap.Int("candidates", report.Candidates),
			zap.Int("flagged", report.Flagged),
			zap.Int("skipped", report.Skipped),
			zap.Int("notified", report.Notified),
			zap.Int("failed", report.Failed),
			zap.Duration("duration", report.Duration))
	}
	return report, nil
}

// breachOne returns the escalated ticket, or nil when another sweep
// already flagged it.
func (m *SLAMonitor) breachOne(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	var escalated *domain.Ticket
	err := m.uow.WithConversationLock(ctx, ticket.ConversationID, func(repos repository.TxRepos) error {
		flagged, err := repos.Tickets.MarkBreached(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if !flagged {
			return nil
		}

		current, err := repos.Tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return err
		}
		oldPriority := current.Priority
		current.BumpPriority()
		current.EscalationLevel++
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}

		dueAt := ""
		if current.SLADueAt != nil {
			dueAt = current.SLADueAt.UTC().Format(time.RFC3339)
		}
		if err := repos.TicketEvents.Append(ctx, &domain.TicketEvent{
			TicketID:  current.ID,
			EventType: domain.EventTypeSLABreached,
			NewValue:  optionalValue(dueAt),
			Actor:     domain.SystemActor,
		}); err != nil {
			return err
		}

		oldValue := string(oldPriority)
		newValue := string(current.Priority)
		if err := repos.TicketEvents.Append(ctx, &domain.TicketEvent{
			TicketID:  current.ID,
			EventType: domain.EventTypeEscalated,
			OldValue:  &oldValue,
			NewValue:  &newValue,
			Actor:     domain.SystemActor,
		}); err != nil {
			return err
		}
		escalated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return escalated, nil
}

func (m *SLAMonitor) publishBreach(ctx context.Context, ticket *domain.Ticket) {
	if m.dispatcher == nil {
		return
	}
	payload := events.SLABreachedPayload{
		Priority:        ticket.Priority,
		EscalationLevel: ticket.EscalationLevel,
		DepartmentID:    ticket.DepartmentID,
	}
	if ticket.SLADueAt != nil {
		payload.DueAt = *ticket.SLADueAt
	}
	_ = m.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSLABreached,
		TicketID:  ticket.ID,
		Actor:     domain.SystemActor,
		Timestamp: m.now(),
		Payload:   payload,
	})
}
