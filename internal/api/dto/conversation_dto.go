package dto

import (
	"time"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// CreateConversationRequest payload.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// ConversationResponse describes a chat session.
type ConversationResponse struct {
	ID        string                    `json:"id"`
	UserID    string                    `json:"user_id"`
	Title     string                    `json:"title"`
	Status    domain.ConversationStatus `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// PostMessageRequest payload for the chat pipeline.
type PostMessageRequest struct {
	Body string `json:"body"`
}

// MessageResponse represents one conversation message.
type MessageResponse struct {
	ID             string               `json:"id"`
	ConversationID string               `json:"conversation_id"`
	Sender         domain.MessageSender `json:"sender"`
	Body           string               `json:"body"`
	SentimentScore *float64             `json:"sentiment_score,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// TriageOutcomeResponse reports what the pipeline did with a message.
// Degraded is set when a triage step failed; the message itself was
// still stored.
type TriageOutcomeResponse struct {
	MessageID      string          `json:"message_id"`
	SentimentScore float64         `json:"sentiment_score"`
	SentimentLabel string          `json:"sentiment_label"`
	Escalated      bool            `json:"escalated"`
	TicketCreated  bool            `json:"ticket_created"`
	Ticket         *TicketResponse `json:"ticket,omitempty"`
	Degraded       bool            `json:"degraded,omitempty"`
}
