// Package service hosts the operator-facing application services that
// sit between the HTTP handlers and the triage pipeline.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/events"
	"github.com/helpdesk-kit/triage-service/internal/repository"
	"github.com/helpdesk-kit/triage-service/internal/triage"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// TicketService is the agent workbench over escalated tickets: listing,
// audit trails, status transitions, assignment and manual escalation.
// The triage pipeline owns ticket creation; this service only works
// existing rows.
type TicketService struct {
	uow           repository.UnitOfWork
	tickets       repository.TicketRepository
	ticketEvents  repository.TicketEventRepository
	conversations repository.ConversationRepository
	users         repository.UserRepository
	departments   repository.DepartmentRepository
	assigner      *triage.AgentAssigner
	triage        *triage.TriageService
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	UnitOfWork       repository.UnitOfWork
	TicketRepo       repository.TicketRepository
	TicketEventRepo  repository.TicketEventRepository
	ConversationRepo repository.ConversationRepository
	UserRepo         repository.UserRepository
	DepartmentRepo   repository.DepartmentRepository
	Assigner         *triage.AgentAssigner
	Triage           *triage.TriageService
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		uow:           deps.UnitOfWork,
		tickets:       deps.TicketRepo,
		ticketEvents:  deps.TicketEventRepo,
		conversations: deps.ConversationRepo,
		users:         deps.UserRepo,
		departments:   deps.DepartmentRepo,
		assigner:      deps.Assigner,
		triage:        deps.Triage,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
	}
}

// TicketListInput captures the ticket listing filters.
type TicketListInput struct {
	ConversationID *string
	DepartmentID   *string
	AgentID        *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	Breached       *bool
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// List returns tickets visible to the actor. Admins see everything;
// agents are scoped to their department, or to their own assignments
// when they have none.
func (s *TicketService) List(ctx context.Context, actor *domain.User, input TicketListInput) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	filter := repository.TicketFilter{
		ConversationID: input.ConversationID,
		DepartmentID:   input.DepartmentID,
		AgentID:        input.AgentID,
		Statuses:       input.Statuses,
		Priorities:     input.Priorities,
		Breached:       input.Breached,
		CreatedFrom:    input.CreatedFrom,
		CreatedTo:      input.CreatedTo,
		Limit:          input.Limit,
		Offset:         input.Offset,
	}
	s.applyAgentScope(&filter, actor)
	return s.tickets.ListWithFilter(ctx, filter)
}

// Get returns a ticket with its audit trail.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, []domain.TicketEvent, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !s.canAccess(ctx, actor, ticket) {
		return nil, nil, apperrors.NewPermissionDenied("ticket outside caller scope")
	}
	trail, err := s.ticketEvents.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, trail, nil
}

// UpdateStatus moves a ticket through its lifecycle. Resolution stamps
// resolved_at, closing stamps closed_at, reopening clears both.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(ctx, actor, ticket) {
		return nil, apperrors.NewPermissionDenied("ticket outside caller scope")
	}

	var (
		oldStatus domain.TicketStatus
		updated   *domain.Ticket
	)
	err = s.uow.WithConversationLock(ctx, ticket.ConversationID, func(repos repository.TxRepos) error {
		current, err := repos.Tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if !validTransition(current.Status, newStatus) {
			return apperrors.NewValidationError("invalid status transition", map[string]any{
				"from": string(current.Status),
				"to":   string(newStatus),
			})
		}

		oldStatus = current.Status
		now := time.Now()
		switch newStatus {
		case domain.TicketStatusResolved:
			current.ResolvedAt = &now
		case domain.TicketStatusClosed:
			current.ClosedAt = &now
		case domain.TicketStatusInProgress:
			current.ResolvedAt = nil
			current.ClosedAt = nil
		}
		current.Status = newStatus
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}

		oldValue := string(oldStatus)
		newValue := string(newStatus)
		if err := repos.TicketEvents.Append(ctx, &domain.TicketEvent{
			TicketID:  current.ID,
			EventType: domain.EventTypeStatusChanged,
			OldValue:  &oldValue,
			NewValue:  &newValue,
			Actor:     actor.ID,
		}); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
			Comment:   comment,
		},
	})
	return updated, nil
}

// UpdatePriority changes a ticket's priority. SLA deadlines are not
// recomputed; they reflect the commitment made at creation time.
func (s *TicketService) UpdatePriority(ctx context.Context, actor *domain.User, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if newPriority.Severity() == 0 {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{
			"priority": string(newPriority),
		})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(ctx, actor, ticket) {
		return nil, apperrors.NewPermissionDenied("ticket outside caller scope")
	}

	var (
		oldPriority domain.TicketPriority
		updated     *domain.Ticket
	)
	err = s.uow.WithConversationLock(ctx, ticket.ConversationID, func(repos repository.TxRepos) error {
		current, err := repos.Tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if current.Priority == newPriority {
			updated = current
			oldPriority = current.Priority
			return nil
		}

		oldPriority = current.Priority
		current.Priority = newPriority
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}

		oldValue := string(oldPriority)
		newValue := string(newPriority)
		if err := repos.TicketEvents.Append(ctx, &domain.TicketEvent{
			TicketID:  current.ID,
			EventType: domain.EventTypePriorityChanged,
			OldValue:  &oldValue,
			NewValue:  &newValue,
			Actor:     actor.ID,
		}); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldPriority != updated.Priority {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: updated.ID,
			Actor:    actor.ID,
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: oldPriority,
				NewPriority: updated.Priority,
			},
		})
	}
	return updated, nil
}

// Assign sets the ticket's agent. An empty agentID picks the least
// loaded active agent in the ticket's department. Replacing an existing
// assignee counts as a reassignment.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, agentID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(ctx, actor, ticket) {
		return nil, apperrors.NewPermissionDenied("ticket outside caller scope")
	}

	if agentID == "" {
		picked, err := s.assigner.Assign(ctx, ticket.DepartmentID)
		if err != nil {
			return nil, err
		}
		if picked == nil {
			return nil, apperrors.NewValidationError("no eligible agent for department", map[string]any{
				"ticket_id": ticketID,
			})
		}
		agentID = *picked
	} else {
		agent, err := s.users.GetByID(ctx, agentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
			}
			return nil, err
		}
		if agent.Status != domain.UserStatusActive || !agent.HasRole(domain.RoleAgent) {
			return nil, apperrors.NewValidationError("assignee is not an active agent", map[string]any{
				"agent_id": agentID,
			})
		}
	}

	var updated *domain.Ticket
	err = s.uow.WithConversationLock(ctx, ticket.ConversationID, func(repos repository.TxRepos) error {
		current, err := repos.Tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if current.AssignedAgentID != nil && *current.AssignedAgentID == agentID {
			updated = current
			return nil
		}

		oldAgent := current.AssignedAgentID
		if oldAgent != nil {
			current.ReassignedCount++
		}
		current.AssignedAgentID = &agentID
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}

		newValue := agentID
		if err := repos.TicketEvents.Append(ctx, &domain.TicketEvent{
			TicketID:  current.ID,
			EventType: domain.EventTypeAssigned,
			OldValue:  oldAgent,
			NewValue:  &newValue,
			Actor:     actor.ID,
		}); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	departmentID := ""
	if updated.DepartmentID != nil {
		departmentID = *updated.DepartmentID
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: updated.ID,
		Actor:    actor.ID,
		Payload: events.TicketAssignedPayload{
			AgentID:      agentID,
			DepartmentID: departmentID,
		},
	})
	return updated, nil
}

// Escalate funnels an operator escalation through the triage lifecycle,
// so it reuses the conversation's open ticket instead of stacking a
// duplicate. messageID defaults to the ticket's last triggering message.
func (s *TicketService) Escalate(ctx context.Context, actor *domain.User, ticketID string, priority domain.TicketPriority, reason, messageID string) (*triage.EscalateResult, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(ctx, actor, ticket) {
		return nil, apperrors.NewPermissionDenied("ticket outside caller scope")
	}
	if messageID == "" && ticket.LastMessageID != nil {
		messageID = *ticket.LastMessageID
	}
	return s.triage.EscalateTicket(ctx, ticket.ConversationID, messageID, actor.ID, priority, reason)
}

// ListDepartments returns the active routing targets.
func (s *TicketService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.departments.ListActive(ctx)
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

// applyAgentScope narrows a list filter for non-admin callers: agents
// with a department see that department, agents without one see only
// their own assignments.
func (s *TicketService) applyAgentScope(filter *repository.TicketFilter, actor *domain.User) {
	if actor.IsAdmin() {
		return
	}
	if actor.DepartmentID != nil {
		filter.DepartmentID = actor.DepartmentID
		return
	}
	agentID := actor.ID
	filter.AgentID = &agentID
}

// canAccess reports ticket visibility: admins always, agents by
// assignment or department (unrouted tickets are visible to any agent),
// and the conversation owner for their own ticket.
func (s *TicketService) canAccess(ctx context.Context, actor *domain.User, ticket *domain.Ticket) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if actor.HasRole(domain.RoleAgent) {
		if ticket.AssignedAgentID != nil && *ticket.AssignedAgentID == actor.ID {
			return true
		}
		if ticket.DepartmentID == nil {
			return true
		}
		return actor.DepartmentID != nil && *actor.DepartmentID == *ticket.DepartmentID
	}

	conversation, err := s.conversations.GetByID(ctx, ticket.ConversationID)
	if err != nil {
		s.logger.Warn("conversation lookup failed during access check",
			zap.String("conversation_id", ticket.ConversationID),
			zap.Error(err))
		return false
	}
	return conversation.UserID == actor.ID
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func validTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
