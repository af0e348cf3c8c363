package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// MessageRepository persists conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// ListRecentUserMessages returns the latest user-authored messages
	// for a conversation, newest first.
	ListRecentUserMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]domain.Message, error)
	UpdateSentiment(ctx context.Context, id string, score float64) error
}

type messageRepository struct {
	db Querier
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(db Querier) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	const query = `
        INSERT INTO messages (conversation_id, sender, body, sentiment_score)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		message.ConversationID,
		message.Sender,
		message.Body,
		message.SentimentScore,
	).Scan(&message.ID, &message.CreatedAt)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	const query = `
        SELECT id, conversation_id, sender, body, sentiment_score, created_at
        FROM messages WHERE id=$1`

	var message domain.Message
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&message.ID,
		&message.ConversationID,
		&message.Sender,
		&message.Body,
		&message.SentimentScore,
		&message.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ListRecentUserMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 3
	}
	const query = `
        SELECT id, conversation_id, sender, body, sentiment_score, created_at
        FROM messages
        WHERE conversation_id=$1 AND sender='USER'
        ORDER BY created_at DESC, id DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, conversation_id, sender, body, sentiment_score, created_at
        FROM messages
        WHERE conversation_id=$1
        ORDER BY created_at ASC, id ASC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) UpdateSentiment(ctx context.Context, id string, score float64) error {
	const query = `UPDATE messages SET sentiment_score=$1 WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, score, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.Sender,
			&message.Body,
			&message.SentimentScore,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, message)
	}
	return result, rows.Err()
}
