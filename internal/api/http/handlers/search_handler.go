package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/triage-service/internal/api/dto"
	"github.com/helpdesk-kit/triage-service/internal/auth"
	"github.com/helpdesk-kit/triage-service/internal/retrieval"
	"github.com/helpdesk-kit/triage-service/internal/sentiment"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// SearchHandler exposes knowledge retrieval, the sentiment probe and
// the caller's derived access profile.
type SearchHandler struct {
	retrieval *retrieval.Service
	analyzer  sentiment.Analyzer
}

// NewSearchHandler constructs handler.
func NewSearchHandler(retrievalService *retrieval.Service, analyzer sentiment.Analyzer) *SearchHandler {
	return &SearchHandler{retrieval: retrievalService, analyzer: analyzer}
}

// SearchKnowledge POST /knowledge/search. The caller's identity decides
// which documents are even considered; there is no unfiltered mode.
func (h *SearchHandler) SearchKnowledge(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.KnowledgeSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.retrieval.Search(c.Context(), principal.AccessContext(), req.Query, req.TicketID, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.KnowledgeSearchResponse{
		Documents: result.Documents,
		Filter:    result.Filter,
	}})
}

// AnalyzeSentiment POST /sentiment/analyze. Scores arbitrary text with
// the same analyzer the pipeline uses, for tuning and debugging.
func (h *SearchHandler) AnalyzeSentiment(c *fiber.Ctx) error {
	var req dto.AnalyzeSentimentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("text required", nil)
	}
	score := h.analyzer.Score(req.Text)
	return c.JSON(fiber.Map{"data": dto.AnalyzeSentimentResponse{
		Score: score,
		Label: sentiment.Label(score),
	}})
}

// AccessProfile GET /access/me.
func (h *SearchHandler) AccessProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	userCtx := principal.AccessContext()
	return c.JSON(fiber.Map{"data": dto.AccessProfileResponse{
		UserID:            userCtx.UserID,
		Roles:             userCtx.Roles,
		Department:        userCtx.Department,
		Verified:          userCtx.Verified,
		Admin:             userCtx.IsAdmin(),
		AllowedVisibility: userCtx.AllowedVisibility(),
	}})
}
