package domain

import "time"

// ConversationStatus tracks whether a session is still live and whether
// it has been escalated to a ticket.
type ConversationStatus string

const (
	ConversationStatusOpen      ConversationStatus = "OPEN"
	ConversationStatusClosed    ConversationStatus = "CLOSED"
	ConversationStatusEscalated ConversationStatus = "ESCALATED"
)

// Conversation is a support chat session between a user and the assistant.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	Status    ConversationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageSender indicates who authored a message.
type MessageSender string

const (
	SenderUser      MessageSender = "USER"
	SenderAssistant MessageSender = "ASSISTANT"
)

// Message is a single utterance in a conversation. SentimentScore is
// filled in by the triage pipeline after analysis and stays nil for
// assistant messages.
type Message struct {
	ID             string
	ConversationID string
	Sender         MessageSender
	Body           string
	SentimentScore *float64
	CreatedAt      time.Time
}
