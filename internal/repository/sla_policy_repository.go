package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// SLAPolicyRepository manages SLA policy rows.
type SLAPolicyRepository interface {
	// Find returns the department-specific policy for the pair, or
	// pgx.ErrNoRows.
	Find(ctx context.Context, departmentID string, priority domain.TicketPriority) (*domain.SLAPolicy, error)
	// FindDefault returns the org-wide policy for the priority, or
	// pgx.ErrNoRows.
	FindDefault(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error)
	Upsert(ctx context.Context, policy *domain.SLAPolicy) error
	List(ctx context.Context) ([]domain.SLAPolicy, error)
}

type slaPolicyRepository struct {
	db Querier
}

// NewSLAPolicyRepository builds the repository.
func NewSLAPolicyRepository(db Querier) SLAPolicyRepository {
	return &slaPolicyRepository{db: db}
}

const slaPolicyColumns = `id, department_id, priority, first_response_minutes, resolution_minutes, escalation_minutes, created_at, updated_at`

func (r *slaPolicyRepository) Find(ctx context.Context, departmentID string, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT ` + slaPolicyColumns + `
        FROM sla_policies WHERE department_id=$1 AND priority=$2`
	return r.fetchSingle(ctx, query, departmentID, priority)
}

func (r *slaPolicyRepository) FindDefault(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT ` + slaPolicyColumns + `
        FROM sla_policies WHERE department_id IS NULL AND priority=$1`
	return r.fetchSingle(ctx, query, priority)
}

func (r *slaPolicyRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.SLAPolicy, error) {
	var policy domain.SLAPolicy
	if err := scanSLAPolicy(r.db.QueryRow(ctx, query, args...), &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) Upsert(ctx context.Context, policy *domain.SLAPolicy) error {
	if policy.DepartmentID == nil {
		const query = `
            INSERT INTO sla_policies (department_id, priority, first_response_minutes, resolution_minutes, escalation_minutes)
            VALUES (NULL,$1,$2,$3,$4)
            ON CONFLICT (priority) WHERE department_id IS NULL
            DO UPDATE SET first_response_minutes=EXCLUDED.first_response_minutes,
                          resolution_minutes=EXCLUDED.resolution_minutes,
                          escalation_minutes=EXCLUDED.escalation_minutes, updated_at=NOW()
            RETURNING id, created_at, updated_at`
		return r.db.QueryRow(ctx, query,
			policy.Priority,
			policy.FirstResponseMinutes,
			policy.ResolutionMinutes,
			policy.EscalationMinutes,
		).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
	}

	const query = `
        INSERT INTO sla_policies (department_id, priority, first_response_minutes, resolution_minutes, escalation_minutes)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (department_id, priority) WHERE department_id IS NOT NULL
        DO UPDATE SET first_response_minutes=EXCLUDED.first_response_minutes,
                      resolution_minutes=EXCLUDED.resolution_minutes,
                      escalation_minutes=EXCLUDED.escalation_minutes, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		policy.DepartmentID,
		policy.Priority,
		policy.FirstResponseMinutes,
		policy.ResolutionMinutes,
		policy.EscalationMinutes,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT ` + slaPolicyColumns + `
        FROM sla_policies ORDER BY department_id NULLS FIRST, priority`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := scanSLAPolicy(rows, &policy); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

func scanSLAPolicy(row pgx.Row, policy *domain.SLAPolicy) error {
	return row.Scan(
		&policy.ID,
		&policy.DepartmentID,
		&policy.Priority,
		&policy.FirstResponseMinutes,
		&policy.ResolutionMinutes,
		&policy.EscalationMinutes,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
}
