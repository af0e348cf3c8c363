package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// ConversationRepository persists chat sessions.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Conversation, error)
	UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) error
	Touch(ctx context.Context, id string) error
}

type conversationRepository struct {
	db Querier
}

// NewConversationRepository instantiates repository.
func NewConversationRepository(db Querier) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	if conversation.Status == "" {
		conversation.Status = domain.ConversationStatusOpen
	}
	const query = `
        INSERT INTO conversations (user_id, title, status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		conversation.UserID,
		conversation.Title,
		conversation.Status,
	).Scan(&conversation.ID, &conversation.CreatedAt, &conversation.UpdatedAt)
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	const query = `
        SELECT id, user_id, title, status, created_at, updated_at
        FROM conversations WHERE id=$1`

	var conversation domain.Conversation
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&conversation.ID,
		&conversation.UserID,
		&conversation.Title,
		&conversation.Status,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, user_id, title, status, created_at, updated_at
        FROM conversations WHERE user_id=$1
        ORDER BY updated_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Conversation
	for rows.Next() {
		var conversation domain.Conversation
		if err := rows.Scan(
			&conversation.ID,
			&conversation.UserID,
			&conversation.Title,
			&conversation.Status,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, conversation)
	}
	return result, rows.Err()
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) error {
	const query = `UPDATE conversations SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) Touch(ctx context.Context, id string) error {
	const query = `UPDATE conversations SET updated_at=NOW() WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
