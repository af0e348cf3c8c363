package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

const ticketColumns = `id, conversation_id, title, status, priority, reason, department_id,
               assigned_agent_id, routing_method, ai_confidence, ai_predicted_department,
               sla_due_at, sla_resolution_due_at, sla_breached,
               escalation_level, reassigned_count, last_message_id,
               created_at, updated_at, resolved_at, closed_at`

// TicketFilter captures list parameters for the ticket endpoints.
type TicketFilter struct {
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

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// FindReusable returns the OPEN ticket for the conversation created
	// after the cutoff, or pgx.ErrNoRows.
	FindReusable(ctx context.Context, conversationID string, cutoff time.Time) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListBreachCandidates returns OPEN, not yet flagged tickets whose
	// first-response deadline passed before now.
	ListBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error)
	// MarkBreached flips sla_breached on a single ticket. It reports
	// false when another sweep already flagged it.
	MarkBreached(ctx context.Context, ticketID string) (bool, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (conversation_id, title, status, priority, reason, department_id,
            assigned_agent_id, routing_method, ai_confidence, ai_predicted_department,
            sla_due_at, sla_resolution_due_at, sla_breached,
            escalation_level, reassigned_count, last_message_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.ConversationID,
		ticket.Title,
		ticket.Status,
		ticket.Priority,
		ticket.Reason,
		ticket.DepartmentID,
		ticket.AssignedAgentID,
		ticket.RoutingMethod,
		ticket.AIConfidence,
		ticket.AIPredictedDepartment,
		ticket.SLADueAt,
		ticket.SLAResolutionDueAt,
		ticket.SLABreached,
		ticket.EscalationLevel,
		ticket.ReassignedCount,
		ticket.LastMessageID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, reason=$3, department_id=$4,
            assigned_agent_id=$5, routing_method=$6, ai_confidence=$7, ai_predicted_department=$8,
            sla_due_at=$9, sla_resolution_due_at=$10, sla_breached=$11,
            escalation_level=$12, reassigned_count=$13, last_message_id=$14,
            resolved_at=$15, closed_at=$16, updated_at=NOW()
        WHERE id=$17`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.Reason,
		ticket.DepartmentID,
		ticket.AssignedAgentID,
		ticket.RoutingMethod,
		ticket.AIConfidence,
		ticket.AIPredictedDepartment,
		ticket.SLADueAt,
		ticket.SLAResolutionDueAt,
		ticket.SLABreached,
		ticket.EscalationLevel,
		ticket.ReassignedCount,
		ticket.LastMessageID,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) FindReusable(ctx context.Context, conversationID string, cutoff time.Time) (*domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE conversation_id=$1 AND status='OPEN' AND created_at >= $2
        ORDER BY created_at DESC
        LIMIT 1`, ticketColumns)
	return r.fetchSingle(ctx, query, conversationID, cutoff)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ConversationID != nil {
		args = append(args, *filter.ConversationID)
		clauses = append(clauses, fmt.Sprintf("conversation_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Breached != nil {
		args = append(args, *filter.Breached)
		clauses = append(clauses, fmt.Sprintf("sla_breached=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 200
	}
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE status='OPEN'
          AND sla_breached = FALSE
          AND sla_due_at IS NOT NULL
          AND sla_due_at < $1
        ORDER BY sla_due_at
        LIMIT %d`, ticketColumns, limit)

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) MarkBreached(ctx context.Context, ticketID string) (bool, error) {
	// Guarded on sla_breached so two overlapping sweeps cannot both
	// claim the flip.
	const query = `
        UPDATE tickets SET sla_breached = TRUE, updated_at = NOW()
        WHERE id=$1 AND sla_breached = FALSE`
	cmd, err := r.db.Exec(ctx, query, ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ConversationID,
		&ticket.Title,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Reason,
		&ticket.DepartmentID,
		&ticket.AssignedAgentID,
		&ticket.RoutingMethod,
		&ticket.AIConfidence,
		&ticket.AIPredictedDepartment,
		&ticket.SLADueAt,
		&ticket.SLAResolutionDueAt,
		&ticket.SLABreached,
		&ticket.EscalationLevel,
		&ticket.ReassignedCount,
		&ticket.LastMessageID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
