package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Severity returns the ordering rank of a priority. Unknown values rank
// below LOW so they never win an escalation comparison.
func (p TicketPriority) Severity() int {
	switch p {
	case TicketPriorityLow:
		return 1
	case TicketPriorityMedium:
		return 2
	case TicketPriorityHigh:
		return 3
	case TicketPriorityCritical:
		return 4
	default:
		return 0
	}
}

// MaxPriority returns the more severe of two priorities.
func MaxPriority(a, b TicketPriority) TicketPriority {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// RoutingMethod records how a ticket reached its department.
type RoutingMethod string

const (
	RoutingMethodAI       RoutingMethod = "AI"
	RoutingMethodFallback RoutingMethod = "FALLBACK"
)

// Ticket is the aggregate for escalated support conversations.
// SLADueAt is the monitored first-response commitment; the resolution
// deadline is carried for reporting only.
type Ticket struct {
	ID                    string
	ConversationID        string
	Title                 string
	Status                TicketStatus
	Priority              TicketPriority
	Reason                string
	DepartmentID          *string
	AssignedAgentID       *string
	RoutingMethod         *RoutingMethod
	AIConfidence          *float64
	AIPredictedDepartment *string
	SLADueAt              *time.Time
	SLAResolutionDueAt    *time.Time
	SLABreached           bool
	EscalationLevel       int
	ReassignedCount       int
	LastMessageID         *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	ResolvedAt            *time.Time
	ClosedAt              *time.Time
}

// BumpPriority raises priority one level, CRITICAL capping at itself.
func (t *Ticket) BumpPriority() {
	switch t.Priority {
	case TicketPriorityLow:
		t.Priority = TicketPriorityMedium
	case TicketPriorityMedium:
		t.Priority = TicketPriorityHigh
	case TicketPriorityHigh:
		t.Priority = TicketPriorityCritical
	}
}
