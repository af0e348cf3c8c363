package dto

import (
	"time"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// TicketResponse is the wire view of a ticket.
type TicketResponse struct {
	ID                    string                `json:"id"`
	ConversationID        string                `json:"conversation_id"`
	Title                 string                `json:"title"`
	Status                domain.TicketStatus   `json:"status"`
	Priority              domain.TicketPriority `json:"priority"`
	Reason                string                `json:"reason"`
	DepartmentID          *string               `json:"department_id,omitempty"`
	AssignedAgentID       *string               `json:"assigned_agent_id,omitempty"`
	RoutingMethod         *domain.RoutingMethod `json:"routing_method,omitempty"`
	AIConfidence          *float64              `json:"ai_confidence,omitempty"`
	AIPredictedDepartment *string               `json:"ai_predicted_department,omitempty"`
	SLADueAt              *time.Time            `json:"sla_due_at,omitempty"`
	SLAResolutionDueAt    *time.Time            `json:"sla_resolution_due_at,omitempty"`
	SLABreached           bool                  `json:"sla_breached"`
	EscalationLevel       int                   `json:"escalation_level"`
	ReassignedCount       int                   `json:"reassigned_count"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
	ResolvedAt            *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt              *time.Time            `json:"closed_at,omitempty"`
}

// TicketEventResponse is one audit trail row.
type TicketEventResponse struct {
	ID        string                 `json:"id"`
	EventType domain.TicketEventType `json:"event_type"`
	OldValue  *string                `json:"old_value,omitempty"`
	NewValue  *string                `json:"new_value,omitempty"`
	Actor     string                 `json:"actor"`
	CreatedAt time.Time              `json:"created_at"`
}

// TicketDetailResponse pairs a ticket with its audit trail.
type TicketDetailResponse struct {
	TicketResponse
	Events []TicketEventResponse `json:"events"`
}

// EscalateTicketRequest payload for manual escalation. MessageID is
// optional and defaults to the ticket's last triggering message.
type EscalateTicketRequest struct {
	Priority  domain.TicketPriority `json:"priority"`
	Reason    string                `json:"reason"`
	MessageID string                `json:"message_id,omitempty"`
}

// UpdateTicketStatusRequest payload for agent status transitions.
type UpdateTicketStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment,omitempty"`
}

// AssignTicketRequest payload. An empty AgentID requests least-loaded
// auto-assignment within the ticket's department.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id,omitempty"`
}

// DepartmentResponse describes a routing target.
type DepartmentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}
