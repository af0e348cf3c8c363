package events

import (
	"time"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketReused          EventType = "ticket_reused"
	EventTicketRouted          EventType = "ticket_routed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventSLAApplied            EventType = "sla_applied"
	EventSLABreached           EventType = "sla_breached"
)

// Event represents a domain event emitted after ticket state committed.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ConversationID string                `json:"conversation_id"`
	Priority       domain.TicketPriority `json:"priority"`
	Reason         string                `json:"reason"`
	Title          string                `json:"title"`
}

// TicketReusedPayload payload.
type TicketReusedPayload struct {
	ConversationID string                `json:"conversation_id"`
	Priority       domain.TicketPriority `json:"priority"`
	Reason         string                `json:"reason"`
}

// TicketRoutedPayload payload.
type TicketRoutedPayload struct {
	DepartmentID string               `json:"department_id"`
	Method       domain.RoutingMethod `json:"method"`
	Confidence   *float64             `json:"confidence,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID      string `json:"agent_id"`
	DepartmentID string `json:"department_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// SLAAppliedPayload payload.
type SLAAppliedPayload struct {
	Priority           domain.TicketPriority `json:"priority"`
	FirstResponseDueAt time.Time             `json:"first_response_due_at"`
	ResolutionDueAt    time.Time             `json:"resolution_due_at"`
}

// SLABreachedPayload payload. DueAt is the first-response deadline that
// was missed.
type SLABreachedPayload struct {
	Priority        domain.TicketPriority `json:"priority"`
	DueAt           time.Time             `json:"due_at"`
	EscalationLevel int                   `json:"escalation_level"`
	DepartmentID    *string               `json:"department_id,omitempty"`
}
