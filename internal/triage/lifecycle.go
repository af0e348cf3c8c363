package triage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/events"
	"github.com/helpdesk-kit/triage-service/internal/observability"
	"github.com/helpdesk-kit/triage-service/internal/repository"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// EscalateInput carries one escalation decision into the lifecycle.
type EscalateInput struct {
	ConversationID string
	MessageID      string
	Priority       domain.TicketPriority
	Reason         string
	// Actor is recorded on the audit trail; empty means the pipeline
	// escalated on its own.
	Actor string
	// RepeatWindow overrides the configured dedup window when positive.
	RepeatWindow time.Duration
}

// EscalateResult reports the ticket the decision landed on.
type EscalateResult struct {
	Ticket  *domain.Ticket
	Created bool
}

// TicketLifecycleManager owns ticket creation and reuse. Within the
// repeat window a conversation holds at most one OPEN ticket; repeated
// escalations fold into it instead of piling up duplicates.
type TicketLifecycleManager struct {
	uow           repository.UnitOfWork
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	dispatcher    events.Dispatcher
	repeatWindow  time.Duration
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle manager.
type LifecycleDependencies struct {
	UnitOfWork       repository.UnitOfWork
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	Dispatcher       events.Dispatcher
	RepeatWindow     time.Duration
	Logger           *zap.Logger
	Metrics          *observability.Metrics
}

// NewTicketLifecycleManager constructs the manager.
func NewTicketLifecycleManager(deps LifecycleDependencies) *TicketLifecycleManager {
	window := deps.RepeatWindow
	if window <= 0 {
		window = 3 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketLifecycleManager{
		uow:           deps.UnitOfWork,
		conversations: deps.ConversationRepo,
		messages:      deps.MessageRepo,
		dispatcher:    deps.Dispatcher,
		repeatWindow:  window,
		logger:        logger,
		metrics:       deps.Metrics,
		now:           time.Now,
	}
}

// EvaluateAndEscalate folds the decision into the conversation's OPEN
// ticket when one was created within the repeat window, and creates a
// fresh OPEN ticket otherwise. The check-then-act runs under a
// per-conversation lock; if a concurrent writer still wins the create
// race the call retries once against the now-current row and then
// surfaces a ConsistencyConflict.
func (m *TicketLifecycleManager) EvaluateAndEscalate(ctx context.Context, input EscalateInput) (*EscalateResult, error) {
	if err := m.validate(ctx, &input); err != nil {
		return nil, err
	}

	result, err := m.escalateOnce(ctx, input)
	if err != nil && repository.IsUniqueViolation(err) {
		m.logger.Info("lost ticket creation race, retrying against current row",
			zap.String("conversation_id", input.ConversationID))
		result, err = m.escalateOnce(ctx, input)
		if err != nil && repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConsistencyConflict("concurrent ticket creation for conversation", map[string]any{
				"conversation_id": input.ConversationID,
			})
		}
	}
	if err != nil {
		return nil, err
	}

	m.afterEscalate(ctx, result, input)
	return result, nil
}

func (m *TicketLifecycleManager) validate(ctx context.Context, input *EscalateInput) error {
	if input.Actor == "" {
		input.Actor = domain.SystemActor
	}
	if input.Priority.Severity() == 0 {
		return apperrors.NewValidationError("unknown priority", map[string]any{
			"priority": string(input.Priority),
		})
	}
	if strings.TrimSpace(input.Reason) == "" {
		return apperrors.NewValidationError("reason is required", nil)
	}

	if _, err := m.conversations.GetByID(ctx, input.ConversationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("unknown conversation", map[string]any{
				"conversation_id": input.ConversationID,
			})
		}
		return err
	}

	if input.MessageID != "" {
		message, err := m.messages.GetByID(ctx, input.MessageID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("unknown message", map[string]any{
					"message_id": input.MessageID,
				})
			}
			return err
		}
		if message.ConversationID != input.ConversationID {
			return apperrors.NewValidationError("message does not belong to conversation", map[string]any{
				"message_id":      input.MessageID,
				"conversation_id": input.ConversationID,
			})
		}
	}
	return nil
}

func (m *TicketLifecycleManager) escalateOnce(ctx context.Context, input EscalateInput) (*EscalateResult, error) {
	window := input.RepeatWindow
	if window <= 0 {
		window = m.repeatWindow
	}
	cutoff := m.now().Add(-window)

	var result EscalateResult
	err := m.uow.WithConversationLock(ctx, input.ConversationID, func(repos repository.TxRepos) error {
		existing, err := repos.Tickets.FindReusable(ctx, input.ConversationID, cutoff)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if existing != nil {
			return m.reuseTicket(ctx, repos, existing, input, &result)
		}
		return m.createTicket(ctx, repos, input, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *TicketLifecycleManager) reuseTicket(ctx context.Context, repos repository.TxRepos, ticket *domain.Ticket, input EscalateInput, result *EscalateResult) error {
	oldPriority := ticket.Priority
	ticket.Priority = domain.MaxPriority(ticket.Priority, input.Priority)
	ticket.Reason = appendReason(ticket.Reason, input.Reason)
	if input.MessageID != "" {
		messageID := input.MessageID
		ticket.LastMessageID = &messageID
	}
	if err := repos.Tickets.Update(ctx, ticket); err != nil {
		return err
	}

	oldValue := string(oldPriority)
	newValue := string(ticket.Priority)
	event := &domain.TicketEvent{
		TicketID:  ticket.ID,
		EventType: domain.EventTypeReused,
		OldValue:  &oldValue,
		NewValue:  &newValue,
		Actor:     input.Actor,
	}
	if err := repos.TicketEvents.Append(ctx, event); err != nil {
		return err
	}

	result.Ticket = ticket
	result.Created = false
	return nil
}

func (m *TicketLifecycleManager) createTicket(ctx context.Context, repos repository.TxRepos, input EscalateInput, result *EscalateResult) error {
	messageID := input.MessageID
	ticket := &domain.Ticket{
		ConversationID: input.ConversationID,
		Title:          ticketTitle(input.Reason),
		Status:         domain.TicketStatusOpen,
		Priority:       input.Priority,
		Reason:         input.Reason,
	}
	if messageID != "" {
		ticket.LastMessageID = &messageID
	}
	if err := repos.Tickets.Create(ctx, ticket); err != nil {
		return err
	}

	newValue := string(ticket.Priority)
	event := &domain.TicketEvent{
		TicketID:  ticket.ID,
		EventType: domain.EventTypeCreated,
		NewValue:  &newValue,
		Actor:     input.Actor,
	}
	if err := repos.TicketEvents.Append(ctx, event); err != nil {
		return err
	}

	if err := repos.Conversations.UpdateStatus(ctx, input.ConversationID, domain.ConversationStatusEscalated); err != nil {
		return err
	}

	result.Ticket = ticket
	result.Created = true
	return nil
}

func (m *TicketLifecycleManager) afterEscalate(ctx context.Context, result *EscalateResult, input EscalateInput) {
	ticket := result.Ticket
	if result.Created {
		m.metrics.RecordTicket("created")
		m.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: ticket.ID,
			Actor:    input.Actor,
			Payload: events.TicketCreatedPayload{
				ConversationID: ticket.ConversationID,
				Priority:       ticket.Priority,
				Reason:         ticket.Reason,
				Title:          ticket.Title,
			},
		})
		return
	}

	m.metrics.RecordTicket("reused")
	m.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReused,
		TicketID: ticket.ID,
		Actor:    input.Actor,
		Payload: events.TicketReusedPayload{
			ConversationID: ticket.ConversationID,
			Priority:       ticket.Priority,
			Reason:         input.Reason,
		},
	})
}

// ApplyRouting persists the routing outcome, SLA window and agent
// assignment on the ticket in one transaction, together with the audit
// events. AI analytics fields are written even when the decision left
// the ticket unrouted.
func (m *TicketLifecycleManager) ApplyRouting(ctx context.Context, ticket *domain.Ticket, decision *RoutingDecision, window *SLAWindow, agentID *string) (*domain.Ticket, error) {
	var updated *domain.Ticket
	err := m.uow.WithConversationLock(ctx, ticket.ConversationID, func(repos repository.TxRepos) error {
		current, err := repos.Tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return err
		}

		var auditEvents []*domain.TicketEvent

		if decision != nil {
			current.AIConfidence = decision.AIConfidence
			current.AIPredictedDepartment = decision.AIPredictedDepartment
			if decision.Routed() {
				oldValue := ""
				if current.DepartmentID != nil {
					oldValue = *current.DepartmentID
				}
				current.DepartmentID = decision.DepartmentID
				current.RoutingMethod = decision.Method
				newValue := *decision.DepartmentID
				auditEvents = append(auditEvents, &domain.TicketEvent{
					TicketID:  current.ID,
					EventType: domain.EventTypeRouted,
					OldValue:  optionalValue(oldValue),
					NewValue:  &newValue,
					Actor:     domain.SystemActor,
				})
			}
		}

		if window != nil {
			firstResponse := window.FirstResponseDue
			resolution := window.ResolutionDue
			current.SLADueAt = &firstResponse
			current.SLAResolutionDueAt = &resolution
			newValue := firstResponse.UTC().Format(time.RFC3339)
			auditEvents = append(auditEvents, &domain.TicketEvent{
				TicketID:  current.ID,
				EventType: domain.EventTypeSLAApplied,
				NewValue:  &newValue,
				Actor:     domain.SystemActor,
			})
		}

		if agentID != nil {
			current.AssignedAgentID = agentID
			newValue := *agentID
			auditEvents = append(auditEvents, &domain.TicketEvent{
				TicketID:  current.ID,
				EventType: domain.EventTypeAssigned,
				NewValue:  &newValue,
				Actor:     domain.SystemActor,
			})
		}

		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}
		for _, event := range auditEvents {
			if err := repos.TicketEvents.Append(ctx, event); err != nil {
				return err
			}
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.afterRouting(ctx, updated, decision, window, agentID)
	return updated, nil
}

func (m *TicketLifecycleManager) afterRouting(ctx context.Context, ticket *domain.Ticket, decision *RoutingDecision, window *SLAWindow, agentID *string) {
	if decision.Routed() {
		m.publishEvent(ctx, events.Event{
			Type:     events.EventTicketRouted,
			TicketID: ticket.ID,
			Actor:    domain.SystemActor,
			Payload: events.TicketRoutedPayload{
				DepartmentID: *decision.DepartmentID,
				Method:       *decision.Method,
				Confidence:   decision.AIConfidence,
			},
		})
	}
	if window != nil {
		m.publishEvent(ctx, events.Event{
			Type:     events.EventSLAApplied,
			TicketID: ticket.ID,
			Actor:    domain.SystemActor,
			Payload: events.SLAAppliedPayload{
				Priority:           ticket.Priority,
				FirstResponseDueAt: window.FirstResponseDue,
				ResolutionDueAt:    window.ResolutionDue,
			},
		})
	}
	if agentID != nil {
		departmentID := ""
		if ticket.DepartmentID != nil {
			departmentID = *ticket.DepartmentID
		}
		m.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    domain.SystemActor,
			Payload: events.TicketAssignedPayload{
				AgentID:      *agentID,
				DepartmentID: departmentID,
			},
		})
	}
}

func (m *TicketLifecycleManager) publishEvent(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	_ = m.dispatcher.Publish(ctx, event)
}

func appendReason(existing, addition string) string {
	addition = strings.TrimSpace(addition)
	if existing == "" {
		return addition
	}
	if addition == "" {
		return existing
	}
	return existing + "; " + addition
}

// ticketTitle derives a short ticket title from the escalation reason.
func ticketTitle(reason string) string {
	const maxLen = 120
	title := "Escalated: " + reason
	if len(title) > maxLen {
		title = title[:maxLen]
	}
	return title
}

func optionalValue(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
