package domain

import "time"

// TicketEventType captures what happened to a ticket.
type TicketEventType string

const (
	EventTypeCreated         TicketEventType = "CREATED"
	EventTypeReused          TicketEventType = "REUSED"
	EventTypePriorityChanged TicketEventType = "PRIORITY_CHANGED"
	EventTypeEscalated       TicketEventType = "ESCALATED"
	EventTypeRouted          TicketEventType = "ROUTED"
	EventTypeAssigned        TicketEventType = "ASSIGNED"
	EventTypeSLAApplied      TicketEventType = "SLA_APPLIED"
	EventTypeSLABreached     TicketEventType = "SLA_BREACHED"
	EventTypeStatusChanged   TicketEventType = "STATUS_CHANGED"
)

// SystemActor is recorded on events the pipeline emits on its own.
const SystemActor = "system"

// TicketEvent is an immutable audit trail entry. Events are only ever
// appended, never updated or deleted.
type TicketEvent struct {
	ID        string
	TicketID  string
	EventType TicketEventType
	OldValue  *string
	NewValue  *string
	Actor     string
	CreatedAt time.Time
}
