package triage

import (
	"context"

	"github.com/helpdesk-kit/triage-service/internal/repository"
)

// AgentAssigner selects the least-loaded active agent of a department.
// Load is the count of OPEN tickets currently assigned; ties break on
// ascending agent id so the pick is deterministic.
type AgentAssigner struct {
	users repository.UserRepository
}

// NewAgentAssigner constructs the assigner.
func NewAgentAssigner(users repository.UserRepository) *AgentAssigner {
	return &AgentAssigner{users: users}
}

// Assign returns the chosen agent id, or nil when no agent is eligible.
// An unrouted ticket draws from every department's agents rather than
// staying unassigned.
func (a *AgentAssigner) Assign(ctx context.Context, departmentID *string) (*string, error) {
	loads, err := a.users.ListAgentLoads(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, nil
	}

	// Loads arrive ordered by open tickets then id; the first row is
	// the winner.
	agentID := loads[0].AgentID
	return &agentID, nil
}
