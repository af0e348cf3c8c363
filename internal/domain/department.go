package domain

import "time"

// Department is a routing target for escalated tickets.
type Department struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoutingRule maps a keyword to a department for fallback routing.
// Rules are evaluated in (Position, ID) order and the first match wins.
type RoutingRule struct {
	ID           string
	Keyword      string
	DepartmentID string
	Position     int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
