package domain

import "time"

// SLAPolicy defines response and resolution targets for a department
// and priority pair. A nil DepartmentID marks an org-wide default that
// applies when no department-specific row exists.
type SLAPolicy struct {
	ID                   string
	DepartmentID         *string
	Priority             TicketPriority
	FirstResponseMinutes int
	ResolutionMinutes    int
	EscalationMinutes    int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Deadlines computes the concrete due times from a reference instant.
func (p *SLAPolicy) Deadlines(from time.Time) (firstResponse, resolution time.Time) {
	firstResponse = from.Add(time.Duration(p.FirstResponseMinutes) * time.Minute)
	resolution = from.Add(time.Duration(p.ResolutionMinutes) * time.Minute)
	return firstResponse, resolution
}
