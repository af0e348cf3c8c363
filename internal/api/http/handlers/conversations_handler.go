package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/triage-service/internal/api/dto"
	"github.com/helpdesk-kit/triage-service/internal/auth"
	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/service"
	"github.com/helpdesk-kit/triage-service/internal/triage"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// ConversationsHandler manages chat sessions and the message intake
// that drives triage.
type ConversationsHandler struct {
	service *service.ConversationService
}

// NewConversationsHandler constructs handler.
func NewConversationsHandler(conversationService *service.ConversationService) *ConversationsHandler {
	return &ConversationsHandler{service: conversationService}
}

// CreateConversation POST /conversations.
func (h *ConversationsHandler) CreateConversation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	conversation, err := h.service.Create(c.Context(), principal.User, req.Title)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": conversationResponse(conversation)})
}

// ListConversations GET /conversations.
func (h *ConversationsHandler) ListConversations(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	conversations, err := h.service.List(c.Context(), principal.User, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.ConversationResponse, 0, len(conversations))
	for i := range conversations {
		items = append(items, conversationResponse(&conversations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// PostMessage POST /conversations/:id/messages. The response reports
// what triage did with the message, including any ticket it created or
// bumped.
func (h *ConversationsHandler) PostMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	outcome, err := h.service.PostMessage(c.Context(), principal.User, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": outcomeResponse(outcome)})
}

// CloseConversation POST /conversations/:id/close.
func (h *ConversationsHandler) CloseConversation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	conversation, err := h.service.Close(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationResponse(conversation)})
}

// ListMessages GET /conversations/:id/messages.
func (h *ConversationsHandler) ListMessages(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	messages, err := h.service.ListMessages(c.Context(), principal.User, c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, messageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func conversationResponse(conversation *domain.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ID:        conversation.ID,
		UserID:    conversation.UserID,
		Title:     conversation.Title,
		Status:    conversation.Status,
		CreatedAt: conversation.CreatedAt,
		UpdatedAt: conversation.UpdatedAt,
	}
}

func messageResponse(message *domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		Sender:         message.Sender,
		Body:           message.Body,
		SentimentScore: message.SentimentScore,
		CreatedAt:      message.CreatedAt,
	}
}

func outcomeResponse(outcome *triage.Outcome) dto.TriageOutcomeResponse {
	resp := dto.TriageOutcomeResponse{
		MessageID:      outcome.MessageID,
		SentimentScore: outcome.SentimentScore,
		SentimentLabel: outcome.SentimentLabel,
		Escalated:      outcome.Escalated,
		TicketCreated:  outcome.Created,
		Degraded:       outcome.TriageErr != nil,
	}
	if outcome.Ticket != nil {
		ticket := ticketResponse(outcome.Ticket)
		resp.Ticket = &ticket
	}
	return resp
}
