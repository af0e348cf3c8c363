package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/repository"
	"github.com/helpdesk-kit/triage-service/internal/triage"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// ConversationService manages support chat sessions and feeds inbound
// user messages to the triage pipeline.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	triage        *triage.TriageService
	logger        *zap.Logger
}

// ConversationDependencies bundles collaborators for the conversation service.
type ConversationDependencies struct {
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	Triage           *triage.TriageService
	Logger           *zap.Logger
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		conversations: deps.ConversationRepo,
		messages:      deps.MessageRepo,
		triage:        deps.Triage,
		logger:        logger,
	}
}

// Create opens a conversation owned by the actor.
func (s *ConversationService) Create(ctx context.Context, actor *domain.User, title string) (*domain.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Support conversation"
	}
	conversation := &domain.Conversation{
		UserID: actor.ID,
		Title:  title,
		Status: domain.ConversationStatusOpen,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// List returns the actor's own conversations.
func (s *ConversationService) List(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.conversations.ListByUser(ctx, actor.ID, limit, offset)
}

// PostMessage appends a user message to the conversation and runs triage
// on it. Only the owner may post; admins may post on behalf of a user
// when reproducing an issue.
func (s *ConversationService) PostMessage(ctx context.Context, actor *domain.User, conversationID, body string) (*triage.Outcome, error) {
	if _, err := s.authorize(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	return s.triage.HandleUserMessage(ctx, conversationID, body)
}

// Close marks the conversation closed; the triage pipeline rejects
// further messages on it. Only the owner or an admin may close.
func (s *ConversationService) Close(ctx context.Context, actor *domain.User, conversationID string) (*domain.Conversation, error) {
	conversation, err := s.authorize(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("conversation belongs to another user")
	}
	if conversation.Status == domain.ConversationStatusClosed {
		return conversation, nil
	}
	if err := s.conversations.UpdateStatus(ctx, conversationID, domain.ConversationStatusClosed); err != nil {
		return nil, err
	}
	conversation.Status = domain.ConversationStatusClosed
	return conversation, nil
}

// ListMessages returns the conversation's transcript, oldest first.
func (s *ConversationService) ListMessages(ctx context.Context, actor *domain.User, conversationID string, limit, offset int) ([]domain.Message, error) {
	if _, err := s.authorize(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.messages.ListByConversation(ctx, conversationID, limit, offset)
}

// authorize loads the conversation and checks the actor may touch it.
// Agents get read access for workbench context, admins full access.
func (s *ConversationService) authorize(ctx context.Context, actor *domain.User, conversationID string) (*domain.Conversation, error) {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("conversation", map[string]any{
				"conversation_id": conversationID,
			})
		}
		return nil, err
	}
	if conversation.UserID == actor.ID {
		return conversation, nil
	}
	if actor.IsAdmin() || actor.HasRole(domain.RoleAgent) {
		return conversation, nil
	}
	return nil, apperrors.NewPermissionDenied("conversation belongs to another user")
}
