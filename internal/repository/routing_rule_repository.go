package repository

import (
	"context"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// RoutingRuleRepository manages fallback keyword rules.
type RoutingRuleRepository interface {
	Create(ctx context.Context, rule *domain.RoutingRule) error
	// ListActive returns enabled rules in evaluation order.
	ListActive(ctx context.Context) ([]domain.RoutingRule, error)
}

type routingRuleRepository struct {
	db Querier
}

// NewRoutingRuleRepository builds the repository.
func NewRoutingRuleRepository(db Querier) RoutingRuleRepository {
	return &routingRuleRepository{db: db}
}

func (r *routingRuleRepository) Create(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        INSERT INTO routing_rules (keyword, department_id, position, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		rule.Keyword,
		rule.DepartmentID,
		rule.Position,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *routingRuleRepository) ListActive(ctx context.Context) ([]domain.RoutingRule, error) {
	const query = `
        SELECT id, keyword, department_id, position, is_active, created_at, updated_at
        FROM routing_rules WHERE is_active = TRUE
        ORDER BY position ASC, id ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoutingRule
	for rows.Next() {
		var rule domain.RoutingRule
		if err := rows.Scan(
			&rule.ID,
			&rule.Keyword,
			&rule.DepartmentID,
			&rule.Position,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
